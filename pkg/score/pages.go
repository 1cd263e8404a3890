package score

import (
	"fmt"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

const untitledPage = "(タイトルなし)"

// PageScores computes a 0..100 score and issue labels for every page
func PageScores(pages []*models.PageRecord) []models.PageScore {
	scores := make([]models.PageScore, 0, len(pages))
	for _, p := range pages {
		scores = append(scores, pageScore(p))
	}
	return scores
}

func pageScore(p *models.PageRecord) models.PageScore {
	score := 0
	issues := []string{}
	check := func(ok bool, points int, issue string) {
		if ok {
			score += points
		} else {
			issues = append(issues, issue)
		}
	}

	check(p.Title != "", 8, "タイトル未設定")
	check(p.MetaDescription != "", 8, "メタディスクリプション未設定")

	switch len(p.Headings.H1) {
	case 1:
		score += 8
	case 0:
		issues = append(issues, "H1タグ未設定")
	default:
		issues = append(issues, "H1タグが複数設定")
	}

	switch h2 := len(p.Headings.H2); {
	case h2 >= 3:
		score += 5
	case h2 > 0:
		score += 2
	default:
		issues = append(issues, "H2タグ未設定")
	}

	switch og := len(p.OGTags); {
	case og >= 4:
		score += 8
	case og >= 3:
		score += 4
	default:
		issues = append(issues, "OGPタグ不足")
	}

	switch sd := len(p.StructuredData); {
	case sd >= 2:
		score += 10
	case sd > 0:
		score += 4
	default:
		issues = append(issues, "構造化データ未設定")
	}

	check(p.Canonical != "", 4, "canonical未設定")
	check(p.Viewport != "", 4, "viewport未設定")

	switch {
	case p.WordCount >= 2000:
		score += 10
	case p.WordCount >= 1000:
		score += 5
	case p.WordCount >= 500:
		score += 2
	default:
		issues = append(issues, "テキスト量不足")
	}

	// Pages without images neither gain nor lose here.
	if len(p.Images) > 0 {
		withAlt := 0
		for _, img := range p.Images {
			if img.Alt != "" {
				withAlt++
			}
		}
		check(withAlt == len(p.Images), 5, fmt.Sprintf("画像alt属性: %d/%d設定済み", withAlt, len(p.Images)))
	}

	check(p.HasSSL, 8, "SSL未対応")
	check(p.Lang != "", 4, "lang属性未設定")

	switch links := len(p.InternalLinks); {
	case links >= 5:
		score += 5
	case links >= 3:
		score += 2
	default:
		issues = append(issues, "内部リンク不足")
	}

	check(p.HasFAQ, 8, "FAQ構造なし")

	title := p.Title
	if title == "" {
		title = untitledPage
	}
	return models.PageScore{
		URL:    p.URL,
		Title:  title,
		Score:  min(score, 100),
		Issues: issues,
	}
}
