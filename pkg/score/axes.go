package score

import (
	"math"
	"regexp"
	"strings"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

var (
	specificDataRe = regexp.MustCompile(`\d+[%年月万円件]`)
	dateRe         = regexp.MustCompile(`20\d{2}[年/\-]`)

	definitionMarkers = []string{"とは", "について", "特徴", "メリット", "サービス内容"}
)

// StructuredData scores JSON-LD coverage and schema variety
func StructuredData(pages []*models.PageRecord) models.ScoreDetail {
	var c checklist

	totalBlocks := 0
	for _, p := range pages {
		totalBlocks += len(p.StructuredData)
	}
	if totalBlocks > 0 {
		c.award(4)
		switch {
		case totalBlocks >= 5:
			c.award(3)
		case totalBlocks >= 3:
			c.award(1)
		default:
			c.issue("構造化データの総数が%d件と少なく、AI検索への訴求力が弱い状態です", totalBlocks)
		}
	} else {
		c.issue("構造化データ（JSON-LD）が検出されませんでした。AI検索では致命的な欠落です")
		c.recommend("Schema.orgに基づくJSON-LDマークアップを早急に追加してください（Organization、LocalBusiness、FAQ等）")
	}

	types := make(map[string]bool)
	for _, p := range pages {
		for _, t := range p.SchemaTypes() {
			types[t] = true
		}
	}
	switch n := len(types); {
	case n >= 4:
		c.award(4)
	case n == 3:
		c.award(3)
	case n == 2:
		c.award(2)
	case n == 1:
		c.award(1)
	}
	if len(types) < 3 {
		c.issue("構造化データの種類が%d種類のみです。AI検索で競合に大きく差をつけられています", len(types))
		c.recommend("Organization、BreadcrumbList、FAQPage、Product、LocalBusiness等の複数の構造化データを実装してください")
	}

	if types["FAQPage"] || types["Question"] {
		c.award(5)
	} else {
		c.issue("FAQスキーマが未実装です。AIが回答を直接引用する最も重要な要素が欠けています")
		c.recommend("FAQPageスキーマを実装してください。AI検索での引用確率を劇的に向上させる最重要施策です")
	}

	if types["BreadcrumbList"] {
		c.award(2)
	} else {
		c.recommend("BreadcrumbList構造化データを追加し、サイト階層をAIに正しく伝えてください")
	}

	if types["LocalBusiness"] || types["Organization"] {
		c.award(2)
	} else {
		c.issue("LocalBusinessまたはOrganization構造化データが未実装です")
		c.recommend("LocalBusiness構造化データを追加し、住所・電話番号・営業時間等をマークアップしてください")
	}

	return c.detail("構造化データ", commentTiers{
		"構造化データが充実しており、AI検索に最適化されています",
		"構造化データは実装されていますが、種類や網羅性に改善の余地があります",
		"構造化データの実装が不十分です。AI検索での可視性が大幅に制限されています",
		"構造化データがほぼ未実装です。このままではAI検索で認識されず、競合に完全に埋もれます",
	})
}

// ContentQuality scores text volume, heading structure and title hygiene
func ContentQuality(pages []*models.PageRecord) models.ScoreDetail {
	var c checklist

	totalChars := 0
	for _, p := range pages {
		totalChars += p.WordCount
	}
	avgChars := float64(totalChars) / float64(max(len(pages), 1))
	switch {
	case avgChars >= 3000:
		c.award(5)
	case avgChars >= 2000:
		c.award(3)
	case avgChars >= 1000:
		c.award(2)
	case avgChars >= 500:
		c.award(1)
	default:
		c.issue("平均テキスト量が%d文字と大幅に不足しています。AI検索が参照するには情報量が圧倒的に足りません", int(math.Round(avgChars)))
	}
	if avgChars < 2000 {
		c.recommend("各ページに最低2000文字以上の専門的で有益なコンテンツを追加してください。AIが引用元として選ぶには十分な情報量が必要です")
	}

	h1Rate := rate(pages, func(p *models.PageRecord) bool { return len(p.Headings.H1) > 0 })
	switch {
	case h1Rate >= 1.0:
		c.award(3)
	case h1Rate >= 0.8:
		c.award(2)
	case h1Rate >= 0.5:
		c.award(1)
	default:
		c.issue("H1タグが設定されているページが%d%%のみです。基本的なSEO対策ができていません", percent(h1Rate))
	}
	if h1Rate < 1.0 {
		c.recommend("全ページにH1タグを必ず設定してください。AIがページの主題を理解する上で不可欠です")
	}

	h2Rate := rate(pages, func(p *models.PageRecord) bool { return len(p.Headings.H2) > 0 })
	switch {
	case h2Rate >= 0.8:
		c.award(3)
	case h2Rate >= 0.5:
		c.award(1)
	default:
		c.issue("H2タグによるコンテンツ構造化が大幅に不足しています。AIが情報を抽出できない状態です")
	}
	if h2Rate < 0.8 {
		c.recommend("H2・H3タグで情報を階層的に整理してください。AIが段落ごとに情報を理解・引用しやすくなります")
	}

	multiH1 := count(pages, func(p *models.PageRecord) bool { return len(p.Headings.H1) > 1 })
	if multiH1 > 0 {
		c.award(-1)
		c.issue("%dページでH1タグが複数設定されています。ページの主題がAIに正しく伝わりません", multiH1)
		c.recommend("各ページのH1タグは1つに統一してください。複数あるとAIが主題を誤認します")
	} else {
		c.award(2)
	}

	if all(pages, func(p *models.PageRecord) bool { return p.Title != "" }) {
		c.award(2)
	} else {
		c.issue("タイトルが設定されていないページがあります。最も基本的なSEO要素が欠けています")
		c.recommend("全ページに固有で描写的なタイトルを設定してください")
	}

	if titlesUnique(pages) {
		c.award(2)
	} else {
		c.issue("重複するタイトルが検出されました。AIがページを区別できず、引用対象から外れやすくなります")
		c.recommend("各ページに固有のタイトルを設定してください。同じタイトルはAI検索でマイナス評価です")
	}

	if some(pages, titleMatchesH1) {
		c.award(3)
	} else {
		c.issue("タイトルとH1の関連性が低く、AIがページの主題を正確に理解できていない可能性があります")
	}

	return c.detail("コンテンツ品質", commentTiers{
		"コンテンツの品質と構造が優れており、AIが情報を抽出しやすい状態です",
		"コンテンツの基本は整っていますが、量と構造の両面で改善の余地があります",
		"コンテンツの品質・構造に複数の問題があり、AI検索での評価が低い状態です",
		"コンテンツの品質が大幅に不足しています。このままではAI検索で引用される見込みはほぼありません",
	})
}

// TechnicalSEO scores meta tag coverage, HTTPS, language and image alt text
func TechnicalSEO(pages []*models.PageRecord) models.ScoreDetail {
	var c checklist

	descRate := rate(pages, func(p *models.PageRecord) bool { return p.MetaDescription != "" })
	switch {
	case descRate >= 1.0:
		c.award(3)
	case descRate >= 0.8:
		c.award(2)
	case descRate >= 0.5:
		c.award(1)
	default:
		c.issue("メタディスクリプションが設定されているページが%d%%のみです。AIがページ内容を要約する手がかりが不足しています", percent(descRate))
	}
	if descRate < 1.0 {
		c.recommend("全ページにメタディスクリプションを設定してください（120〜160文字推奨）。AIの要約精度に直接影響します")
	}

	ogpRate := rate(pages, func(p *models.PageRecord) bool { return len(p.OGTags) >= 3 })
	switch {
	case ogpRate >= 0.8:
		c.award(3)
	case ogpRate >= 0.5:
		c.award(1)
	default:
		c.issue("OGPタグ（Open Graph Protocol）の設定が不十分です。SNSやAI検索での表示品質が低下します")
	}
	if ogpRate < 0.8 {
		c.recommend("og:title, og:description, og:image, og:url を全ページに設定してください")
	}

	canonicalRate := rate(pages, func(p *models.PageRecord) bool { return p.Canonical != "" })
	switch {
	case canonicalRate >= 0.8:
		c.award(2)
	case canonicalRate >= 0.5:
		c.award(1)
	default:
		c.issue("canonicalタグが未設定のページが多数あります。重複コンテンツとみなされるリスクがあります")
		c.recommend("重複コンテンツを防ぐため、全ページにcanonicalタグを設定してください")
	}

	if all(pages, func(p *models.PageRecord) bool { return p.Viewport != "" }) {
		c.award(3)
	} else {
		c.issue("viewportメタタグが未設定のページがあります。モバイル対応が不完全でAI検索での評価が下がります")
		c.recommend("全ページにviewportメタタグを設定してください。モバイルフレンドリーはAI検索の重要な評価基準です")
	}

	if all(pages, func(p *models.PageRecord) bool { return p.HasSSL }) {
		c.award(3)
	} else {
		c.issue("HTTPSに対応していないページがあります。セキュリティの欠如はAIの信頼性評価に直接マイナスです")
		c.recommend("SSL証明書を導入し、全ページをHTTPS化してください。AI検索は安全なサイトを優先します")
	}

	if some(pages, func(p *models.PageRecord) bool { return p.Lang != "" }) {
		c.award(2)
	} else {
		c.issue("html要素にlang属性が設定されていません。AIが言語を正しく判定できません")
		c.recommend(`<html lang="ja">を設定してください`)
	}

	totalImages, withAlt := 0, 0
	for _, p := range pages {
		for _, img := range p.Images {
			totalImages++
			if img.Alt != "" {
				withAlt++
			}
		}
	}
	altRate := 1.0
	if totalImages > 0 {
		altRate = float64(withAlt) / float64(totalImages)
	}
	switch {
	case altRate >= 0.95:
		c.award(2)
	case altRate >= 0.7:
		c.award(1)
	default:
		c.issue("画像のalt属性設定率が%d%%と低いです。AIがコンテンツを正しく理解できません", percent(altRate))
		c.recommend("全画像に描写的なalt属性を設定してください。AIの画像理解とアクセシビリティ向上に不可欠です")
	}

	if some(pages, func(p *models.PageRecord) bool { return p.Charset != "" }) {
		c.award(2)
	} else {
		c.issue("charset（文字エンコーディング）が指定されていません")
	}

	return c.detail("技術的最適化", commentTiers{
		"技術的なSEO対策が十分に行われています",
		"基本的な技術対策はされていますが、不足している重要項目があります",
		"技術的な最適化に複数の重大な問題点があり、AI検索での評価が大幅に低下しています",
		"技術的な最適化が致命的に不足しています。早急な対応が必要です",
	})
}

// Authority scores trust signals: HTTPS, contact details, site size and policy pages
func Authority(pages []*models.PageRecord) models.ScoreDetail {
	var c checklist

	if all(pages, func(p *models.PageRecord) bool { return p.HasSSL }) {
		c.award(3)
	} else {
		c.issue("HTTPS化されていないページがあり、信頼性が大幅に低下しています")
		c.recommend("全ページをHTTPS化してください。AI検索はセキュアなサイトを優先的に引用します")
	}

	if some(pages, func(p *models.PageRecord) bool { return p.HasContactInfo }) {
		c.award(3)
	} else {
		c.issue("お問い合わせ情報が見つかりません。事業者の実在性が確認できず信頼性が低い状態です")
		c.recommend("連絡先情報（メール、問い合わせフォーム）を明示してください")
	}

	if some(pages, func(p *models.PageRecord) bool { return p.HasAddress }) {
		c.award(3)
	} else {
		c.issue("所在地・住所情報が見つかりません。ローカルビジネスとしてAIに認識されません")
		c.recommend("会社の所在地を明記し、LocalBusiness構造化データに含めてください")
	}

	if some(pages, func(p *models.PageRecord) bool { return p.HasPhone }) {
		c.award(2)
	} else {
		c.issue("電話番号が見つかりません。実在する事業者であることの証明が弱い状態です")
		c.recommend("電話番号を掲載し、tel:リンクを設定してください")
	}

	externalLinks := 0
	for _, p := range pages {
		externalLinks += len(p.ExternalLinks)
	}
	switch {
	case externalLinks >= 10:
		c.award(2)
	case externalLinks >= 5:
		c.award(1)
	default:
		c.issue("外部の権威あるサイトへのリンクが少なく、コンテンツの裏付けが弱い状態です")
		c.recommend("信頼できる外部サイト（業界団体、公的機関等）へのリンクを追加すると権威性が向上します")
	}

	switch n := len(pages); {
	case n >= 15:
		c.award(3)
	case n >= 10:
		c.award(2)
	case n >= 5:
		c.award(1)
	default:
		c.issue("クロール可能なページ数が%dページと大幅に不足しています。サイトの情報量がAI検索の要求を満たしていません", n)
		c.recommend("最低でも10ページ以上のコンテンツを用意し、サイトの専門性と情報量をアピールしてください")
	}

	if some(pages, isAboutPage) {
		c.award(2)
	} else {
		c.issue("会社概要ページが見つかりません。E-E-A-T（信頼性）の観点で大きなマイナスです")
		c.recommend("会社概要ページを作成し、代表者名・設立年・実績等を明記してください。AIは信頼性の高いソースを優先します")
	}

	if some(pages, isPrivacyPage) {
		c.award(2)
	} else {
		c.issue("プライバシーポリシーページが見つかりません。信頼性と法的コンプライアンスの面で問題があります")
		c.recommend("プライバシーポリシーページを作成してください")
	}

	return c.detail("権威性・信頼性", commentTiers{
		"権威性と信頼性を示す情報が十分に揃っています",
		"基本的な信頼性情報はありますが、E-E-A-Tの観点で補強が必要です",
		"信頼性を示す情報が不足しており、AIが引用元として選びにくい状態です",
		"権威性・信頼性の情報が致命的に不足しています。AI検索で引用される可能性は極めて低いです",
	})
}

// AIReadiness scores how easily generative engines can extract and quote the content
func AIReadiness(pages []*models.PageRecord) models.ScoreDetail {
	var c checklist

	if some(pages, func(p *models.PageRecord) bool { return p.HasFAQ }) {
		c.award(4)
	} else {
		c.issue("FAQ（よくある質問）コンテンツが見つかりません。AIO対策の最重要要素が欠けています")
		c.recommend("FAQページを作成し、FAQPage構造化データ付きで実装してください。AIが回答を生成する際に直接引用される最も効果的な対策です")
	}

	structureRate := rate(pages, func(p *models.PageRecord) bool {
		return len(p.Headings.H2) >= 3 && p.WordCount >= 800
	})
	switch {
	case structureRate >= 0.6:
		c.award(4)
	case structureRate >= 0.3:
		c.award(2)
	default:
		c.issue("AIが要約しやすいコンテンツ構造になっているページがほとんどありません")
		c.recommend("H2見出しで段落を区切り、各セクションに800文字以上の充実した内容を配置してください")
	}

	hasDefinitions := some(pages, func(p *models.PageRecord) bool {
		text := strings.ToLower(p.TextContent)
		for _, marker := range definitionMarkers {
			if strings.Contains(text, marker) {
				return true
			}
		}
		return false
	})
	if hasDefinitions {
		c.award(2)
	} else {
		c.issue("「〇〇とは」のような定義・説明コンテンツが見当たりません")
		c.recommend("「〇〇とは」のような明確な定義・説明コンテンツを追加してください。AIが直接引用しやすい形式です")
	}

	if some(pages, func(p *models.PageRecord) bool {
		return strings.Contains(p.TextContent, "・") || len(p.Headings.H3) >= 3
	}) {
		c.award(2)
	} else {
		c.issue("箇条書き・リスト形式のコンテンツがありません")
		c.recommend("情報を箇条書きやリスト形式で整理すると、AIが情報を抽出しやすくなります")
	}

	if some(pages, func(p *models.PageRecord) bool { return specificDataRe.MatchString(p.TextContent) }) {
		c.award(2)
	} else {
		c.issue("具体的な数値データ（実績数、年数等）がありません。AIは具体性の高い情報を優先します")
		c.recommend("具体的な数値データ（実績数、年数等）を掲載すると、AIの回答に引用されやすくなります")
	}

	totalImages, totalChars := 0, 0
	for _, p := range pages {
		totalImages += len(p.Images)
		totalChars += p.WordCount
	}
	imagesPerPage := float64(totalImages) / float64(max(len(pages), 1))
	if totalChars > 0 && imagesPerPage <= 20 {
		c.award(2)
	} else if imagesPerPage > 30 {
		c.issue("画像が多くテキストの比率が低い可能性があります。AIはテキスト情報を重視します")
	}

	totalInternal := 0
	for _, p := range pages {
		totalInternal += len(p.InternalLinks)
	}
	avgInternal := float64(totalInternal) / float64(max(len(pages), 1))
	switch {
	case avgInternal >= 8:
		c.award(3)
	case avgInternal >= 5:
		c.award(2)
	case avgInternal >= 3:
		c.award(1)
	default:
		c.issue("内部リンクが大幅に不足しています。AIがサイト全体の情報を把握できない状態です")
		c.recommend("関連ページ同士を内部リンクで密接に接続してください。AIがサイト全体を巡回しやすくなります")
	}

	if some(pages, func(p *models.PageRecord) bool { return dateRe.MatchString(p.TextContent) }) {
		c.award(1)
	} else {
		c.issue("コンテンツに日付情報がなく、情報の鮮度が不明です。AIは最新の情報を優先的に引用します")
		c.recommend("コンテンツに更新日や公開日を明記し、定期的にコンテンツを更新してください")
	}

	return c.detail("AI対応度", commentTiers{
		"AI検索に最適化されたコンテンツ構造です",
		"AI対応の基本はできていますが、引用率を上げるにはさらなる最適化が必要です",
		"AI検索への対応が不十分です。このままでは競合にAI検索の顧客を奪われるリスクがあります",
		"AI検索で引用される可能性が極めて低い状態です。根本的な対策が急務です",
	})
}

func titlesUnique(pages []*models.PageRecord) bool {
	seen := make(map[string]bool)
	for _, p := range pages {
		if p.Title == "" {
			continue
		}
		if seen[p.Title] {
			return false
		}
		seen[p.Title] = true
	}
	return true
}

// titleMatchesH1 reports whether a title word longer than two characters appears in the first H1
func titleMatchesH1(p *models.PageRecord) bool {
	if len(p.Headings.H1) == 0 || p.Title == "" {
		return false
	}
	h1 := strings.ToLower(p.Headings.H1[0])
	for _, w := range strings.Fields(strings.ToLower(p.Title)) {
		if len([]rune(w)) > 2 && strings.Contains(h1, w) {
			return true
		}
	}
	return false
}

func isAboutPage(p *models.PageRecord) bool {
	return strings.Contains(p.URL, "about") || strings.Contains(p.URL, "company") ||
		strings.Contains(p.Title, "会社概要") || strings.Contains(p.Title, "企業情報") ||
		strings.Contains(p.Title, "About")
}

func isPrivacyPage(p *models.PageRecord) bool {
	return strings.Contains(p.URL, "privacy") || strings.Contains(p.URL, "policy") ||
		strings.Contains(p.Title, "プライバシー") || strings.Contains(p.Title, "個人情報")
}
