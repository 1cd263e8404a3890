// Package report renders a DiagnosisResult for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

// Format names an output encoding
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat accepts the CLI spellings of a format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want md, html, json or yaml)", s)
}

// Render writes result to w in format
func Render(w io.Writer, format Format, result *models.DiagnosisResult) error {
	switch format {
	case FormatMarkdown:
		return Markdown(w, result)
	case FormatHTML:
		return HTML(w, result)
	case FormatJSON:
		return JSON(w, result)
	case FormatYAML:
		return YAML(w, result)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// JSON writes result using the camelCase report contract
func JSON(w io.Writer, result *models.DiagnosisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

// YAML writes result with snake_case keys
func YAML(w io.Writer, result *models.DiagnosisResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return err
	}
	return enc.Close()
}

// RankComment is the headline verdict shown next to the total score
func RankComment(rank models.Rank, score int) string {
	switch rank {
	case models.RankA:
		return fmt.Sprintf("総合スコア%d点。AI検索への最適化が高いレベルで達成されています。ただし競合も対策を進めているため、油断は禁物です。", score)
	case models.RankB:
		return fmt.Sprintf("総合スコア%d点。AI検索への基本対応はできていますが、このままでは競合に差をつけられるリスクがあります。重点的な改善が推奨されます。", score)
	case models.RankC:
		return fmt.Sprintf("総合スコア%d点。AI検索への対応が不十分な状態です。このままではAI経由の集客機会を逃し、競合に顧客を奪われる恐れがあります。早期の改善が必要です。", score)
	case models.RankD:
		return fmt.Sprintf("総合スコア%d点。AI検索での可視性が非常に低い状態です。ホームページがAI検索で表示されず、潜在顧客にリーチできていません。基本的な対策から早急に取り組む必要があります。", score)
	case models.RankE:
		return fmt.Sprintf("総合スコア%d点。AI検索で認識される可能性がほぼゼロの危機的な状態です。現状のホームページでは、AI時代の集客に全く対応できておらず、ビジネスへの深刻な影響が懸念されます。至急の対策が不可欠です。", score)
	}
	return ""
}
