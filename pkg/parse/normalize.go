package parse

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL for deduplication.
// It lowercases the scheme and host, removes default ports (80 for http, 443 for https),
// ensures an empty path becomes "/", and removes fragments and query strings.
// Trailing slashes are kept: "/about" and "/about/" are distinct pages.
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" && normalized.Opaque == "" {
		normalized.Path = "/"
	}

	normalized.Fragment = ""
	normalized.RawFragment = ""
	normalized.RawQuery = ""
	normalized.ForceQuery = false

	return normalized.String()
}

// ResolveLink resolves href against base and normalizes the result.
// Non-web schemes such as mailto: and tel: resolve too. Returns false for
// hrefs that cannot be parsed and for http(s) URLs without a host.
func ResolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if isWebScheme(resolved.Scheme) && resolved.Host == "" {
		return "", false
	}
	return NormalizeURL(resolved), true
}

// IsWebURL reports whether rawURL is an absolute http(s) URL
func IsWebURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && isWebScheme(u.Scheme) && u.Host != ""
}

func isWebScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}

// NormalizeSeedURL prepares user input as the crawl start URL:
// "https://" is prepended when no http(s) scheme is present and a trailing
// slash is appended unless the URL already ends in one or names a .html/.php file.
// The result then goes through NormalizeURL so it matches discovered links.
func NormalizeSeedURL(raw string) string {
	seed := strings.TrimSpace(raw)
	lower := strings.ToLower(seed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		seed = "https://" + seed
	}
	if !strings.HasSuffix(seed, "/") && !strings.Contains(seed, ".html") && !strings.Contains(seed, ".php") {
		seed += "/"
	}
	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return seed
	}
	return NormalizeURL(u)
}

// SameHost reports whether two absolute URLs share a hostname
func SameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Hostname(), ub.Hostname())
}
