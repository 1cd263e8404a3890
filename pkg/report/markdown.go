package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

// shownQueries caps how many probe answers the report quotes
const shownQueries = 2

var jst = time.FixedZone("JST", 9*60*60)

// Markdown writes the full human-readable report
func Markdown(w io.Writer, r *models.DiagnosisResult) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# AIO診断レポート\n\n")
	fmt.Fprintf(bw, "- URL: %s\n", r.URL)
	fmt.Fprintf(bw, "- 業種: %s\n", orDash(r.Industry))
	fmt.Fprintf(bw, "- 地域: %s\n", orDash(r.Region))
	fmt.Fprintf(bw, "- 診断日時: %s\n", r.CreatedAt.In(jst).Format("2006/01/02 15:04"))
	fmt.Fprintf(bw, "- 分析ページ数: %d\n", r.PagesAnalyzed)
	if r.ID != "" {
		fmt.Fprintf(bw, "- 診断ID: `%s`\n", r.ID)
	}

	fmt.Fprintf(bw, "\n## 総合AIOスコア: %d / 100（ランク %s）\n\n", r.TotalScore, r.Rank)
	fmt.Fprintf(bw, "%s\n\n", RankComment(r.Rank, r.TotalScore))

	fmt.Fprintf(bw, "| 評価軸 | スコア |\n|---|---|\n")
	for _, d := range r.ScoreDetails.Axes() {
		fmt.Fprintf(bw, "| %s | %d / %d |\n", cell(d.Label), d.Score, d.MaxScore)
	}

	fmt.Fprintf(bw, "\n## 詳細スコア分析\n")
	for _, d := range r.ScoreDetails.Axes() {
		writeDetail(bw, d)
	}

	if r.AICheck != nil {
		writeAICheck(bw, r.AICheck)
	}

	if len(r.PageScores) > 0 {
		fmt.Fprintf(bw, "\n## ページ別分析\n\n")
		fmt.Fprintf(bw, "| ページ | URL | スコア | 課題 |\n|---|---|---|---|\n")
		for _, p := range r.PageScores {
			issues := "-"
			if len(p.Issues) > 0 {
				issues = cell(strings.Join(p.Issues, "、"))
			}
			fmt.Fprintf(bw, "| %s | %s | %d | %s |\n", cell(p.Title), cell(p.URL), p.Score, issues)
		}

		urls := make([]string, len(r.PageScores))
		for i, p := range r.PageScores {
			urls[i] = p.URL
		}
		fmt.Fprintf(bw, "\n## サイト構造\n\n```\n%s```\n", PathTree(urls))
	}

	return bw.Flush()
}

func writeDetail(w io.Writer, d models.ScoreDetail) {
	fmt.Fprintf(w, "\n### %s（%d / %d）\n\n", d.Label, d.Score, d.MaxScore)
	if d.Comment != "" {
		fmt.Fprintf(w, "%s\n\n", d.Comment)
	}
	if len(d.Issues) > 0 {
		fmt.Fprintf(w, "**課題**\n\n")
		for _, issue := range d.Issues {
			fmt.Fprintf(w, "- %s\n", issue)
		}
		fmt.Fprintln(w)
	}
	if len(d.Recommendations) > 0 {
		fmt.Fprintf(w, "**改善提案**\n\n")
		for _, rec := range d.Recommendations {
			fmt.Fprintf(w, "- %s\n", rec)
		}
	}
}

func writeAICheck(w io.Writer, ai *models.AICheckResult) {
	fmt.Fprintf(w, "\n## AI検索対応分析\n\n")
	if ai.IsCited {
		fmt.Fprintf(w, "**AIの回答にサイトが引用されました**\n\n")
	} else {
		fmt.Fprintf(w, "**AIの回答にサイトが引用されませんでした**\n\n")
	}
	if ai.CitationContext != "" {
		fmt.Fprintf(w, "%s\n\n", ai.CitationContext)
	}

	for i, q := range ai.Queries {
		if i == shownQueries {
			break
		}
		mark := "引用なし"
		if q.Cited {
			mark = "引用あり"
		}
		fmt.Fprintf(w, "> **Q. %s**（%s）\n>\n> %s\n\n", q.Query, mark, quote(q.Response))
	}

	if ai.OverallAssessment != "" {
		fmt.Fprintf(w, "### AIによる総合評価\n\n%s\n\n", ai.OverallAssessment)
	}
	if len(ai.ImprovementSuggestions) > 0 {
		fmt.Fprintf(w, "### AIからの改善提案\n\n")
		for _, s := range ai.ImprovementSuggestions {
			fmt.Fprintf(w, "- %s\n", s)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// cell makes s safe inside a Markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// quote keeps a multi-line answer inside one blockquote
func quote(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n> ")
}
