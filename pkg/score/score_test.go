package score

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

// optimizedSite builds n fully optimized pages: FAQPage and four more schema
// types, 3000+ characters each, complete meta coverage and HTTPS everywhere.
func optimizedSite(n int) []*models.PageRecord {
	body := "当社のサービスとは何かをご説明します。・対応エリア ・料金 実績は10%向上、2024年更新。" +
		strings.Repeat("地域に根ざした丁寧な対応を心がけています。", 160) +
		" お問い合わせ 所在地 電話"

	pages := make([]*models.PageRecord, 0, n)
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("/service-%d", i)
		switch i {
		case 1:
			path = "/about"
		case 2:
			path = "/privacy"
		}
		url := "https://example.com" + path

		var internal []string
		for j := 0; j < 8; j++ {
			internal = append(internal, fmt.Sprintf("https://example.com/link-%d-%d", i, j))
		}

		sd := []map[string]any{
			{"@type": "FAQPage"},
			{"@type": "BreadcrumbList"},
		}
		if i == 0 {
			sd = append(sd,
				map[string]any{"@type": "Organization"},
				map[string]any{"@type": []any{"LocalBusiness", "WebSite"}},
			)
		}

		pages = append(pages, &models.PageRecord{
			URL:             url,
			Title:           fmt.Sprintf("Webサービス ページ%d", i),
			MetaDescription: "説明文",
			OGTags: map[string]string{
				"og:title": "t", "og:description": "d", "og:image": "i", "og:url": url,
			},
			Canonical: url,
			Headings: models.Headings{
				H1: []string{"Webサービスのご案内"},
				H2: []string{"概要", "料金", "事例"},
				H3: []string{"a", "b", "c"},
			},
			StructuredData: sd,
			TextContent:    body,
			WordCount:      len([]rune(body)),
			Images:         []models.Image{{Src: "/a.png", Alt: "写真"}},
			InternalLinks:  internal,
			ExternalLinks:  []string{fmt.Sprintf("https://partner%d.example.org/", i)},
			HasSSL:         true,
			HasFAQ:         true,
			HasContactInfo: true,
			HasAddress:     true,
			HasPhone:       true,
			Viewport:       "width=device-width",
			Charset:        "UTF-8",
			Lang:           "ja",
		})
	}
	return pages
}

// bareSite builds n plain-HTTP pages with short text and no structured data
func bareSite(n int) []*models.PageRecord {
	pages := make([]*models.PageRecord, 0, n)
	for i := 0; i < n; i++ {
		pages = append(pages, &models.PageRecord{
			URL:         fmt.Sprintf("http://example.com/p%d", i),
			Title:       fmt.Sprintf("Page %d", i),
			TextContent: "short text",
			WordCount:   100,
		})
	}
	return pages
}

func TestAnalyze_OptimizedSiteRanksA(t *testing.T) {
	pages := optimizedSite(15)
	require.GreaterOrEqual(t, pages[0].WordCount, 3000)

	b := Analyze(pages)

	assert.GreaterOrEqual(t, b.TotalScore, 90)
	assert.Equal(t, models.RankA, b.Rank)
	assert.Equal(t, b.Scores.Total(), b.TotalScore)
	for _, d := range b.Details.Axes() {
		assert.Equal(t, 20, d.Score, "%s: issues=%v", d.Label, d.Issues)
		assert.Empty(t, d.Issues, d.Label)
		assert.NotEmpty(t, d.Comment)
	}
	assert.Len(t, b.PageScores, 15)
}

func TestAnalyze_BareSiteRanksE(t *testing.T) {
	b := Analyze(bareSite(3))

	assert.LessOrEqual(t, b.Scores.StructuredData, 7)
	assert.LessOrEqual(t, b.Scores.AIReadiness, 7)
	assert.Less(t, b.TotalScore, 35)
	assert.Equal(t, models.RankE, b.Rank)

	assert.Equal(t, 0, b.Scores.StructuredData)
	assert.Equal(t, 6, b.Scores.ContentQuality)
	assert.Equal(t, 2, b.Scores.TechnicalSEO)
	assert.Equal(t, 0, b.Scores.Authority)
	assert.Equal(t, 2, b.Scores.AIReadiness)
	assert.Equal(t, "構造化データがほぼ未実装です。このままではAI検索で認識されず、競合に完全に埋もれます",
		b.Details.StructuredData.Comment)
}

func TestAnalyze_Idempotent(t *testing.T) {
	pages := optimizedSite(4)
	pages = append(pages, bareSite(2)...)

	first := Analyze(pages)
	second := Analyze(pages)
	assert.Equal(t, first, second)
}

func TestAnalyze_ScoresStayInRange(t *testing.T) {
	sets := map[string][]*models.PageRecord{
		"empty":     nil,
		"bare":      bareSite(1),
		"optimized": optimizedSite(20),
		"mixed":     append(optimizedSite(3), bareSite(7)...),
	}
	for name, pages := range sets {
		t.Run(name, func(t *testing.T) {
			b := Analyze(pages)
			for _, d := range b.Details.Axes() {
				assert.GreaterOrEqual(t, d.Score, 0)
				assert.LessOrEqual(t, d.Score, AxisMax)
				assert.Equal(t, AxisMax, d.MaxScore)
				assert.NotNil(t, d.Issues)
				assert.NotNil(t, d.Recommendations)
			}
			assert.GreaterOrEqual(t, b.TotalScore, 0)
			assert.LessOrEqual(t, b.TotalScore, 100)
			assert.Equal(t, models.RankForScore(b.TotalScore), b.Rank)
		})
	}
}

func TestStructuredData_Findings(t *testing.T) {
	d := StructuredData(bareSite(2))

	assert.Equal(t, "構造化データ", d.Label)
	assert.Equal(t, []string{
		"構造化データ（JSON-LD）が検出されませんでした。AI検索では致命的な欠落です",
		"構造化データの種類が0種類のみです。AI検索で競合に大きく差をつけられています",
		"FAQスキーマが未実装です。AIが回答を直接引用する最も重要な要素が欠けています",
		"LocalBusinessまたはOrganization構造化データが未実装です",
	}, d.Issues)
	assert.Len(t, d.Recommendations, 5, "breadcrumb adds a recommendation without an issue")
}

func TestStructuredData_FewBlocks(t *testing.T) {
	pages := bareSite(1)
	pages[0].StructuredData = []map[string]any{{"@type": "Organization"}, {"@type": "Question"}}

	d := StructuredData(pages)

	// 4 (present) + 2 (two types) + 5 (Question) + 2 (Organization)
	assert.Equal(t, 13, d.Score)
	assert.Contains(t, d.Issues, "構造化データの総数が2件と少なく、AI検索への訴求力が弱い状態です")
	assert.Equal(t, "構造化データは実装されていますが、種類や網羅性に改善の余地があります", d.Comment)
}

func TestContentQuality_MultipleH1Penalty(t *testing.T) {
	pages := bareSite(2)
	for _, p := range pages {
		p.Headings.H1 = []string{"Page", "Other"}
	}

	d := ContentQuality(pages)

	// h1 rate 1.0 (+3), multiple H1 (-1), titles (+2), unique (+2), "page" in H1 (+3)
	assert.Equal(t, 9, d.Score)
	assert.Contains(t, d.Issues, "2ページでH1タグが複数設定されています。ページの主題がAIに正しく伝わりません")
}

func TestContentQuality_DuplicateAndMissingTitles(t *testing.T) {
	pages := bareSite(3)
	pages[1].Title = pages[0].Title
	pages[2].Title = ""

	d := ContentQuality(pages)

	assert.Contains(t, d.Issues, "タイトルが設定されていないページがあります。最も基本的なSEO要素が欠けています")
	assert.Contains(t, d.Issues, "重複するタイトルが検出されました。AIがページを区別できず、引用対象から外れやすくなります")
	assert.Contains(t, d.Issues, "平均テキスト量が100文字と大幅に不足しています。AI検索が参照するには情報量が圧倒的に足りません")
	assert.Contains(t, d.Issues, "H1タグが設定されているページが0%のみです。基本的なSEO対策ができていません")
}

func TestTechnicalSEO_AltRate(t *testing.T) {
	pages := bareSite(1)
	pages[0].Images = []models.Image{{Alt: "a"}, {}, {}, {}}

	d := TechnicalSEO(pages)

	assert.Equal(t, 0, d.Score)
	assert.Contains(t, d.Issues, "画像のalt属性設定率が25%と低いです。AIがコンテンツを正しく理解できません")
	assert.Contains(t, d.Issues, "メタディスクリプションが設定されているページが0%のみです。AIがページ内容を要約する手がかりが不足しています")
}

func TestAuthority_PageCountAndPolicyPages(t *testing.T) {
	pages := bareSite(5)
	pages[0].Title = "会社概要"
	pages[1].URL = "http://example.com/privacy-policy"

	d := Authority(pages)

	// 5 pages (+1), about (+2), privacy (+2)
	assert.Equal(t, 5, d.Score)
	assert.NotContains(t, d.Issues, "会社概要ページが見つかりません。E-E-A-T（信頼性）の観点で大きなマイナスです")

	small := Authority(bareSite(2))
	assert.Contains(t, small.Issues, "クロール可能なページ数が2ページと大幅に不足しています。サイトの情報量がAI検索の要求を満たしていません")
}

func TestAIReadiness_ContentSignals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"nothing", "plain words", 2},
		{"definition", "SEOとは何か", 4},
		{"list marker", "・項目", 4},
		{"numeric data", "実績100件", 4},
		{"date", "2023/04 公開", 3},
		{"date kanji also numeric", "2023年", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := bareSite(1)
			pages[0].TextContent = tt.text
			d := AIReadiness(pages)
			assert.Equal(t, tt.want, d.Score)
		})
	}
}

func TestAIReadiness_ImageHeavySite(t *testing.T) {
	pages := bareSite(1)
	pages[0].Images = make([]models.Image, 31)

	d := AIReadiness(pages)

	assert.Equal(t, 0, d.Score)
	assert.Contains(t, d.Issues, "画像が多くテキストの比率が低い可能性があります。AIはテキスト情報を重視します")
}

func TestCommentTiers(t *testing.T) {
	tiers := commentTiers{"best", "good", "fair", "poor"}
	tests := []struct {
		score int
		want  string
	}{
		{20, "best"}, {16, "best"}, {15, "good"}, {12, "good"},
		{11, "fair"}, {7, "fair"}, {6, "poor"}, {0, "poor"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tiers.pick(tt.score), "score %d", tt.score)
	}
}

func TestPageScores_FullyOptimizedPage(t *testing.T) {
	scores := PageScores(optimizedSite(1))

	require.Len(t, scores, 1)
	assert.Equal(t, 95, scores[0].Score)
	assert.Empty(t, scores[0].Issues)
	assert.Equal(t, "https://example.com/service-0", scores[0].URL)
}

func TestPageScores_EmptyPage(t *testing.T) {
	scores := PageScores([]*models.PageRecord{{URL: "http://example.com/"}})

	require.Len(t, scores, 1)
	assert.Equal(t, 0, scores[0].Score)
	assert.Equal(t, "(タイトルなし)", scores[0].Title)
	assert.Equal(t, []string{
		"タイトル未設定",
		"メタディスクリプション未設定",
		"H1タグ未設定",
		"H2タグ未設定",
		"OGPタグ不足",
		"構造化データ未設定",
		"canonical未設定",
		"viewport未設定",
		"テキスト量不足",
		"SSL未対応",
		"lang属性未設定",
		"内部リンク不足",
		"FAQ構造なし",
	}, scores[0].Issues)
}

func TestPageScores_PartialCredit(t *testing.T) {
	page := &models.PageRecord{
		URL:            "https://example.com/",
		Title:          "Home",
		Headings:       models.Headings{H1: []string{"a", "b"}, H2: []string{"x"}},
		OGTags:         map[string]string{"og:a": "", "og:b": "", "og:c": ""},
		StructuredData: []map[string]any{{"@type": "WebPage"}},
		WordCount:      1200,
		Images:         []models.Image{{Alt: "ok"}, {}},
		InternalLinks:  []string{"1", "2", "3"},
		HasSSL:         true,
	}

	scores := PageScores([]*models.PageRecord{page})

	// title 8 + h2 2 + og 4 + sd 4 + text 5 + ssl 8 + links 2
	assert.Equal(t, 33, scores[0].Score)
	assert.Contains(t, scores[0].Issues, "H1タグが複数設定")
	assert.Contains(t, scores[0].Issues, "画像alt属性: 1/2設定済み")
}
