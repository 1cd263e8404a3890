// Package fusion blends the rule-based baseline with the AI citation outcome.
package fusion

import (
	"math"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
	"github.com/Sriram-PR/aio-diagnoser/pkg/score"
)

const (
	minTotal     = 10
	minAxis      = 2
	minPageScore = 5
)

// CitationRate returns citedCount/totalQueries, treating zero queries as a
// denominator of one
func CitationRate(aiCheck *models.AICheckResult) float64 {
	total := len(aiCheck.Queries)
	if total == 0 {
		total = 1
	}
	return float64(aiCheck.CitedCount()) / float64(total)
}

// Multiplier returns the penalty applied for a citation rate
func Multiplier(rate float64) float64 {
	switch {
	case rate <= 0:
		return 0.40
	case rate < 0.5:
		return 0.60
	case rate < 1.0:
		return 0.80
	default:
		return 1.0
	}
}

// Fuse scales every numeric score of baseline by the multiplier for the
// citation rate of aiCheck and recomputes the rank. Text fields are carried
// over unchanged. With a nil aiCheck the baseline is returned as is.
// The returned value never shares slices with baseline.
func Fuse(baseline score.Baseline, aiCheck *models.AICheckResult) score.Baseline {
	if aiCheck == nil {
		return clone(baseline)
	}
	m := Multiplier(CitationRate(aiCheck))

	scale := func(v, floor int) int {
		return max(floor, int(math.Round(float64(v)*m)))
	}
	axis := func(d models.ScoreDetail) models.ScoreDetail {
		out := cloneDetail(d)
		out.Score = scale(d.Score, minAxis)
		return out
	}

	details := models.ScoreDetails{
		StructuredData: axis(baseline.Details.StructuredData),
		ContentQuality: axis(baseline.Details.ContentQuality),
		TechnicalSEO:   axis(baseline.Details.TechnicalSEO),
		Authority:      axis(baseline.Details.Authority),
		AIReadiness:    axis(baseline.Details.AIReadiness),
	}
	scores := models.ScoreBreakdown{
		StructuredData: scale(baseline.Scores.StructuredData, minAxis),
		ContentQuality: scale(baseline.Scores.ContentQuality, minAxis),
		TechnicalSEO:   scale(baseline.Scores.TechnicalSEO, minAxis),
		Authority:      scale(baseline.Scores.Authority, minAxis),
		AIReadiness:    scale(baseline.Scores.AIReadiness, minAxis),
	}

	pageScores := make([]models.PageScore, len(baseline.PageScores))
	for i, ps := range baseline.PageScores {
		pageScores[i] = models.PageScore{
			URL:    ps.URL,
			Title:  ps.Title,
			Score:  scale(ps.Score, minPageScore),
			Issues: append([]string{}, ps.Issues...),
		}
	}

	total := scale(baseline.TotalScore, minTotal)
	return score.Baseline{
		TotalScore: total,
		Rank:       models.RankForScore(total),
		Scores:     scores,
		Details:    details,
		PageScores: pageScores,
	}
}

func clone(b score.Baseline) score.Baseline {
	out := b
	out.Details = models.ScoreDetails{
		StructuredData: cloneDetail(b.Details.StructuredData),
		ContentQuality: cloneDetail(b.Details.ContentQuality),
		TechnicalSEO:   cloneDetail(b.Details.TechnicalSEO),
		Authority:      cloneDetail(b.Details.Authority),
		AIReadiness:    cloneDetail(b.Details.AIReadiness),
	}
	out.PageScores = make([]models.PageScore, len(b.PageScores))
	for i, ps := range b.PageScores {
		ps.Issues = append([]string{}, ps.Issues...)
		out.PageScores[i] = ps
	}
	return out
}

func cloneDetail(d models.ScoreDetail) models.ScoreDetail {
	d.Issues = append([]string{}, d.Issues...)
	d.Recommendations = append([]string{}, d.Recommendations...)
	return d
}
