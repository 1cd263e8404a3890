package detect

import (
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

func newTestDetector() *ContentDetector {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewContentDetector(logrus.NewEntry(log))
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return doc
}

func TestDetectBuilders(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Builder
	}{
		{
			name: "wordpress generator",
			html: `<html><head><meta name="generator" content="WordPress 6.5.2"></head><body><div class="entry-content"><p>本文</p></div></body></html>`,
			want: BuilderWordPress,
		},
		{
			name: "wordpress assets",
			html: `<html><head><link rel="stylesheet" href="/wp-content/themes/clinic/style.css"></head><body><main>本文</main></body></html>`,
			want: BuilderWordPress,
		},
		{
			name: "wordpress block classes",
			html: `<html><body><p class="wp-block-paragraph">本文</p></body></html>`,
			want: BuilderWordPress,
		},
		{
			name: "wix",
			html: `<html><head><meta name="generator" content="Wix.com Website Builder"></head><body><main id="PAGES_CONTAINER">本文</main></body></html>`,
			want: BuilderWix,
		},
		{
			name: "wix wins over embedded wp assets",
			html: `<html><body><img src="https://static.wixstatic.com/media/a.jpg"><img src="https://blog.example/wp-content/b.jpg"></body></html>`,
			want: BuilderWix,
		},
		{
			name: "shopify script",
			html: `<html><head><script src="https://cdn.shopify.com/s/files/theme.js"></script></head><body><main id="MainContent">商品</main></body></html>`,
			want: BuilderShopify,
		},
		{
			name: "jimdo class prefix",
			html: `<html><body><div class="jtpl-main"><div id="content_area">本文</div></div></body></html>`,
			want: BuilderJimdo,
		},
		{
			name: "squarespace",
			html: `<html><head><link href="https://static1.squarespace.com/static/site.css"></head><body><main id="page">本文</main></body></html>`,
			want: BuilderSquarespace,
		},
		{
			name: "studio",
			html: `<html><head><meta name="generator" content="STUDIO"></head><body><main>本文</main></body></html>`,
			want: BuilderStudio,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newTestDetector().Detect(mustDoc(t, tt.html), &url.URL{Scheme: "https", Host: "clinic.example"})
			if result.Builder != tt.want {
				t.Errorf("Detect() builder = %s, want %s", result.Builder, tt.want)
			}
			if result.Fallback {
				t.Error("Expected Fallback to be false for a recognized builder")
			}
			if result.Selector != BuilderSelector(tt.want) {
				t.Errorf("Selector = %q, want %q", result.Selector, BuilderSelector(tt.want))
			}
		})
	}
}

func TestDetectUnknownFallback(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head><title>手作りサイト</title></head>
<body><div id="wrap"><h1>ようこそ</h1><p>静的HTMLで作られたページです。</p></div></body>
</html>`

	result := newTestDetector().Detect(mustDoc(t, html), &url.URL{Scheme: "https", Host: "plain.example"})

	if result.Builder != BuilderUnknown {
		t.Errorf("Expected builder %s, got %s", BuilderUnknown, result.Builder)
	}
	if !result.Fallback {
		t.Error("Expected Fallback to be true")
	}
	if result.Selector != "" {
		t.Errorf("Expected empty selector, got %q", result.Selector)
	}
}

func TestCaching(t *testing.T) {
	wp := mustDoc(t, `<html><head><meta name="generator" content="WordPress 6.4"></head><body></body></html>`)
	plain := mustDoc(t, `<html><body><p>plain</p></body></html>`)

	detector := newTestDetector()
	pageURL1, _ := url.Parse("https://www.example.com/page1")
	pageURL2, _ := url.Parse("https://example.com/page2")

	if got := detector.Detect(wp, pageURL1).Builder; got != BuilderWordPress {
		t.Errorf("First detection: expected %s, got %s", BuilderWordPress, got)
	}

	// Same host without www: the cached answer wins over the plain document
	if got := detector.Detect(plain, pageURL2).Builder; got != BuilderWordPress {
		t.Errorf("Cached detection: expected %s, got %s", BuilderWordPress, got)
	}

	if detector.cache.Len() != 1 {
		t.Errorf("Expected cache size 1, got %d", detector.cache.Len())
	}
}

func TestSelectorCache(t *testing.T) {
	cache := NewSelectorCache()

	if _, ok := cache.Get("example.com"); ok {
		t.Error("Expected empty cache to return false")
	}

	result := DetectionResult{Builder: BuilderWix, Selector: "main"}
	cache.Set("Example.com", result)

	got, ok := cache.Get("www.example.com")
	if !ok {
		t.Fatal("Expected to find cached result")
	}
	if got != result {
		t.Errorf("Expected %+v, got %+v", result, got)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected size 1, got %d", cache.Len())
	}
}

func TestBuilderSelector_Unknown(t *testing.T) {
	if got := BuilderSelector(BuilderUnknown); got != "" {
		t.Errorf("BuilderSelector(unknown) = %q, want empty", got)
	}
}

func TestReadable(t *testing.T) {
	html := `<!DOCTYPE html>
<html><head><title>院長ブログ</title></head>
<body>
<div id="menu"><a href="/">ホーム</a> <a href="/access">アクセス</a></div>
<div id="wrap">
<div class="post">
<h2>歯周病の予防について</h2>
<p>歯周病は日本人が歯を失う原因の第一位です。毎日の歯磨きに加えて、定期的な歯科検診で歯石を取り除くことが大切です。</p>
<p>当院では三か月ごとの定期検診をおすすめしています。歯科衛生士が一人ひとりに合わせたブラッシング指導を行います。</p>
<p>歯ぐきからの出血や口臭が気になる方は、早めにご相談ください。初期の歯周病であれば、短期間の治療で改善が期待できます。</p>
</div>
</div>
</body></html>`

	pageURL, _ := url.Parse("https://clinic.example/blog/1")
	content, err := Readable(mustDoc(t, html), pageURL)
	if err != nil {
		t.Fatalf("Readable() error = %v", err)
	}
	if content.Length() != 1 {
		t.Fatalf("Expected a single wrapping element, got %d", content.Length())
	}
	text := content.Text()
	if !strings.Contains(text, "定期検診") {
		t.Errorf("Expected article text, got %q", text)
	}
}
