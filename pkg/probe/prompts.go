package probe

import (
	"fmt"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

func assessmentPrompt(t Target, queryCount, citedCount int, level string) string {
	return fmt.Sprintf(`
以下のウェブサイトのAI検索最適化（AIO）の状態を厳しく評価してください。
改善が必要な点を中心に、率直で具体的な指摘をお願いします。
日本語で200文字以内で回答してください。

【評価条件】
- AI検索での引用テスト結果: %d件の質問中%d件でのみ言及あり（%s）
- 引用されなかった場合は「このままではAI検索で競合に顧客を奪われるリスクが高い」旨を含めてください
- 甘い評価は避け、具体的な問題点と危機感を伝えてください

【サイト情報】
URL: %s
業種: %s
地域: %s
サイトタイトル: %s
サイト概要: %s

評価と改善の緊急性を述べてください。`,
		queryCount, citedCount, level,
		t.URL, t.Industry, t.Region, t.SiteTitle, t.SiteDescription)
}

func suggestionPrompt(t Target, queryCount, citedCount int, rate float64) string {
	return fmt.Sprintf(`
以下のウェブサイトのAI検索最適化（AIO）のために、最も緊急度の高い改善提案を5つ箇条書きで述べてください。
日本語で回答してください。
AI検索テストでの引用率: %d件中%d件（%d%%）
具体的で実行可能な提案を、緊急度の高い順に述べてください。

URL: %s
業種: %s
地域: %s

箇条書きのみで回答してください（「・」で始めてください）`,
		queryCount, citedCount, percent(rate),
		t.URL, t.Industry, t.Region)
}

func fallbackAssessment(queryCount, citedCount int) string {
	if citedCount == 0 {
		return fmt.Sprintf("%d件のAI検索テストで一度も引用されませんでした。現状のままではAI検索で完全に無視される状態であり、競合他社に顧客を奪われるリスクが極めて高いです。", queryCount)
	}
	return fmt.Sprintf("%d件のテスト中%d件でサイトが言及されましたが、引用率は不十分です。", queryCount, citedCount)
}

func fallbackSuggestions() []string {
	return []string{
		"【最優先】FAQページを作成し、FAQPage構造化データを実装する",
		"【緊急】業種特有の専門用語を含む詳細なコンテンツを2000文字以上で作成する",
		"【重要】地域名×業種名を含むローカルSEO対策を強化する",
		"【推奨】定期的にコンテンツを更新し、AIが参照する情報の鮮度を維持する",
		"【推奨】業界団体や公的機関からの被リンクを獲得する",
	}
}

// unreachableResult is returned when the LLM could not be reached for any query
func unreachableResult() *models.AICheckResult {
	result := unavailableResult()
	result.CitationContext = "Gemini APIに接続できませんでした。ネットワーク接続を確認してください。"
	result.OverallAssessment = "AI引用チェックを実行できませんでした。Gemini APIへの接続が確立できなかったため、スコアはサイト構造の分析結果のみで算出しています。"
	return result
}

// unavailableResult is returned when no LLM client could be constructed
func unavailableResult() *models.AICheckResult {
	return &models.AICheckResult{
		IsCited:           false,
		CitationContext:   "Gemini APIに接続できませんでした。APIキーを確認してください。",
		Queries:           []models.CitationQueryResult{},
		OverallAssessment: "AI引用チェックを実行できませんでした。設定ファイルのgemini.api_keyまたは環境変数GEMINI_API_KEYを設定してください。",
		ImprovementSuggestions: []string{
			"【最優先】FAQ構造化データを実装する",
			"【緊急】業種特有の専門コンテンツを充実させる",
			"【重要】地域名を含むローカルSEO対策を行う",
		},
	}
}
