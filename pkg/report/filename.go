package report

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

var (
	invalidFilenameChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`) // Characters invalid in Windows/Unix filenames
	consecutiveUnderscores = regexp.MustCompile(`_+`)
)

const maxFilenameLength = 100

// SanitizeFilename cleans a string to be safe for use as a filename component
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_ ")

	if len(sanitized) > maxFilenameLength {
		sanitized = strings.ToValidUTF8(sanitized[:maxFilenameLength], "")
		sanitized = strings.Trim(sanitized, "_ ")
	}

	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}

// Extension returns the file extension for format, dot included
func Extension(format Format) string {
	switch format {
	case FormatHTML:
		return ".html"
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	}
	return ".md"
}

// FileName names a saved report: host, JST date and the first eight
// characters of the diagnosis ID.
func FileName(r *models.DiagnosisResult, format Format) string {
	host := r.URL
	if u, err := url.Parse(r.URL); err == nil && u.Host != "" {
		host = u.Host
	}
	name := fmt.Sprintf("%s_%s", SanitizeFilename(host), r.CreatedAt.In(jst).Format("20060102"))
	if r.ID != "" {
		id := SanitizeFilename(r.ID)
		if len(id) > 8 {
			id = id[:8]
		}
		name += "_" + id
	}
	return name + Extension(format)
}
