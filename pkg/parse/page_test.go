package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/aio-diagnoser/pkg/utils"
)

const fullPage = `<!DOCTYPE html>
<html lang="ja">
<head>
  <meta charset="UTF-8">
  <title> 東京のWeb制作 | Example </title>
  <meta name="description" content="東京のWeb制作会社です">
  <meta name="keywords" content="web,制作">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <meta property="og:title" content="Example">
  <meta property="og:description" content="desc">
  <meta property="og:image" content="https://example.com/og.png">
  <link rel="canonical" href="https://example.com/">
  <script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization","name":"Example"}</script>
  <script type="application/ld+json">{ this is not json }</script>
  <script type="application/ld+json">[{"@type":"WebSite"}]</script>
  <script>var tracking = "faq contact";</script>
  <style>.x { color: red; }</style>
</head>
<body>
  <header><a href="/header-link">Header</a>ヘッダー</header>
  <nav><a href="/about/">About</a><a href="/about/#team">Team</a></nav>
  <h1> Web制作 </h1>
  <h2>サービス</h2><h2>実績</h2>
  <h3>詳細</h3>
  <p>当社は   東京の
     Web制作会社です。</p>
  <img src="/a.png" alt="ロゴ">
  <img src="/b.png">
  <a href="https://partner.example.org/page?ref=1">Partner</a>
  <a href="https://partner.example.org/page">Partner again</a>
  <a href="mailto:info@example.com">Mail</a>
  <a href="service.html?x=1#y">Service</a>
  <footer><a href="/privacy">Privacy</a>フッター</footer>
</body>
</html>`

func TestParsePage_Metadata(t *testing.T) {
	page, err := ParsePage("https://example.com/", fullPage)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/", page.URL)
	assert.Equal(t, "東京のWeb制作 | Example", page.Title)
	assert.Equal(t, "東京のWeb制作会社です", page.MetaDescription)
	assert.Equal(t, "web,制作", page.MetaKeywords)
	assert.Equal(t, "https://example.com/", page.Canonical)
	assert.Equal(t, "width=device-width, initial-scale=1", page.Viewport)
	assert.Equal(t, "UTF-8", page.Charset)
	assert.Equal(t, "ja", page.Lang)
	assert.Len(t, page.OGTags, 3)
	assert.Equal(t, "Example", page.OGTags["og:title"])
	assert.True(t, page.HasSSL)
}

func TestParsePage_HeadingsAndStructuredData(t *testing.T) {
	page, err := ParsePage("https://example.com/", fullPage)
	require.NoError(t, err)

	assert.Equal(t, []string{"Web制作"}, page.Headings.H1)
	assert.Equal(t, []string{"サービス", "実績"}, page.Headings.H2)
	assert.Equal(t, []string{"詳細"}, page.Headings.H3)
	assert.Empty(t, page.Headings.H4)

	// The malformed block is dropped, the array block is kept as a value
	require.Len(t, page.StructuredData, 2)
	assert.Equal(t, "Organization", page.StructuredData[0]["@type"])
	assert.Contains(t, page.StructuredData[1], "@value")
}

func TestParsePage_Links(t *testing.T) {
	page, err := ParsePage("https://example.com/", fullPage)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/header-link",
		"https://example.com/about/",
		"https://example.com/service.html",
		"https://example.com/privacy",
	}, page.InternalLinks, "nav/header/footer links are kept and deduplicated in discovery order")
	assert.Equal(t, []string{"https://partner.example.org/page", "mailto:info@example.com"}, page.ExternalLinks)
}

func TestParsePage_NonWebLinksAreExternal(t *testing.T) {
	html := `<html><body>
  <a href="mailto:info@example.com">Mail</a>
  <a href="tel:0312345678">Call</a>
  <a href="https://other.org/">Other</a>
  <a href="/contact">Contact</a>
</body></html>`

	page, err := ParsePage("https://example.com/", html)
	require.NoError(t, err)

	assert.Equal(t, []string{"mailto:info@example.com", "tel:0312345678", "https://other.org/"}, page.ExternalLinks)
	assert.Equal(t, []string{"https://example.com/contact"}, page.InternalLinks, "only http(s) links on the site are crawlable")
}

func TestParsePage_TextAndImages(t *testing.T) {
	page, err := ParsePage("https://example.com/", fullPage)
	require.NoError(t, err)

	assert.NotContains(t, page.TextContent, "ヘッダー")
	assert.NotContains(t, page.TextContent, "フッター")
	assert.NotContains(t, page.TextContent, "tracking")
	assert.NotContains(t, page.TextContent, "color: red")
	assert.Contains(t, page.TextContent, "当社は 東京の Web制作会社です。")
	assert.Equal(t, len([]rune(page.TextContent)), page.WordCount)

	require.Len(t, page.Images, 2)
	assert.Equal(t, "ロゴ", page.Images[0].Alt)
	assert.Equal(t, "", page.Images[1].Alt)
}

func TestParsePage_SignalFlags(t *testing.T) {
	page, err := ParsePage("https://example.com/", fullPage)
	require.NoError(t, err)

	assert.False(t, page.HasFAQ, "words in removed script must not count")
	assert.True(t, page.HasContactInfo, "mailto link counts as contact")
	assert.False(t, page.HasAddress)
	assert.False(t, page.HasPhone)
}

func TestParsePage_KeywordHeuristics(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		faq     bool
		contact bool
		address bool
		phone   bool
	}{
		{"faq text", "<p>よくある質問</p>", true, false, false, false},
		{"faq latin uppercase", "<p>FAQ</p>", true, false, false, false},
		{"q&a", "<p>Q&amp;A</p>", true, false, false, false},
		{"faq schema", `<script type="application/ld+json">{"@type":"FAQPage"}</script>`, true, false, false, false},
		{"contact text", "<p>お問い合わせはこちら</p>", false, true, false, false},
		{"address text", "<p>所在地：東京都</p>", false, false, true, false},
		{"address element", "<address>Tokyo</address>", false, false, true, false},
		{"phone text", "<p>電話番号</p>", false, false, false, true},
		{"tel link", `<a href="tel:0312345678">call</a>`, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParsePage("http://example.com/", "<html><body>"+tt.body+"</body></html>")
			require.NoError(t, err)
			assert.Equal(t, tt.faq, page.HasFAQ, "HasFAQ")
			assert.Equal(t, tt.contact, page.HasContactInfo, "HasContactInfo")
			assert.Equal(t, tt.address, page.HasAddress, "HasAddress")
			assert.Equal(t, tt.phone, page.HasPhone, "HasPhone")
			assert.False(t, page.HasSSL)
		})
	}
}

func TestParsePage_CharsetFromHTTPEquiv(t *testing.T) {
	html := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=Shift_JIS"></head><body></body></html>`
	page, err := ParsePage("https://example.com/", html)
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=Shift_JIS", page.Charset)
}

func TestParsePage_EmptyDocument(t *testing.T) {
	page, err := ParsePage("https://example.com/", "")
	require.NoError(t, err)
	assert.Equal(t, "", page.Title)
	assert.Equal(t, 0, page.WordCount)
	assert.Empty(t, page.InternalLinks)
	assert.Empty(t, page.StructuredData)
}

func TestParsePage_InvalidURL(t *testing.T) {
	_, err := ParsePage("not a url", "<html></html>")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrParsing))
}
