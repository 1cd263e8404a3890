// Package score implements the rule-based AIO scoring engine.
//
// Each axis is a pure function over the full page set. Points are accumulated
// from a fixed checklist; every failed check appends its issue and/or
// recommendation text, so the lists enumerate all failures, not just the first.
package score

import (
	"fmt"
	"math"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

// AxisMax is the maximum score of one axis
const AxisMax = 20

// Baseline is the rule-based evaluation of a page set, before AI citation fusion
type Baseline struct {
	TotalScore int
	Rank       models.Rank
	Scores     models.ScoreBreakdown
	Details    models.ScoreDetails
	PageScores []models.PageScore
}

// Analyze runs all five axes plus per-page scoring over pages
func Analyze(pages []*models.PageRecord) Baseline {
	details := models.ScoreDetails{
		StructuredData: StructuredData(pages),
		ContentQuality: ContentQuality(pages),
		TechnicalSEO:   TechnicalSEO(pages),
		Authority:      Authority(pages),
		AIReadiness:    AIReadiness(pages),
	}
	scores := models.ScoreBreakdown{
		StructuredData: details.StructuredData.Score,
		ContentQuality: details.ContentQuality.Score,
		TechnicalSEO:   details.TechnicalSEO.Score,
		Authority:      details.Authority.Score,
		AIReadiness:    details.AIReadiness.Score,
	}
	total := scores.Total()
	return Baseline{
		TotalScore: total,
		Rank:       models.RankForScore(total),
		Scores:     scores,
		Details:    details,
		PageScores: PageScores(pages),
	}
}

// commentTiers are the summaries for scores >=16, >=12, >=7 and below
type commentTiers [4]string

func (t commentTiers) pick(score int) string {
	switch {
	case score >= 16:
		return t[0]
	case score >= 12:
		return t[1]
	case score >= 7:
		return t[2]
	default:
		return t[3]
	}
}

// checklist accumulates points and findings for one axis
type checklist struct {
	score           int
	issues          []string
	recommendations []string
}

func (c *checklist) award(points int) { c.score += points }

func (c *checklist) issue(format string, args ...any) {
	c.issues = append(c.issues, fmt.Sprintf(format, args...))
}

func (c *checklist) recommend(text string) {
	c.recommendations = append(c.recommendations, text)
}

func (c *checklist) detail(label string, comments commentTiers) models.ScoreDetail {
	score := min(max(c.score, 0), AxisMax)
	issues := c.issues
	if issues == nil {
		issues = []string{}
	}
	recs := c.recommendations
	if recs == nil {
		recs = []string{}
	}
	return models.ScoreDetail{
		Score:           score,
		MaxScore:        AxisMax,
		Label:           label,
		Comment:         comments.pick(score),
		Issues:          issues,
		Recommendations: recs,
	}
}

// rate returns matched/len(pages), treating an empty set as one page
func rate(pages []*models.PageRecord, match func(*models.PageRecord) bool) float64 {
	return float64(count(pages, match)) / float64(max(len(pages), 1))
}

func count(pages []*models.PageRecord, match func(*models.PageRecord) bool) int {
	n := 0
	for _, p := range pages {
		if match(p) {
			n++
		}
	}
	return n
}

func some(pages []*models.PageRecord, match func(*models.PageRecord) bool) bool {
	for _, p := range pages {
		if match(p) {
			return true
		}
	}
	return false
}

func all(pages []*models.PageRecord, match func(*models.PageRecord) bool) bool {
	for _, p := range pages {
		if !match(p) {
			return false
		}
	}
	return true
}

func percent(r float64) int {
	return int(math.Round(r * 100))
}
