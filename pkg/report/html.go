package report

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

// Raw HTML stays disabled: titles and LLM answers come from third parties
var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

const htmlStyle = `body{font-family:"Hiragino Sans","Noto Sans JP",sans-serif;max-width:960px;margin:2em auto;padding:0 1em;color:#1e293b;line-height:1.7}
table{border-collapse:collapse;width:100%}th,td{border:1px solid #e2e8f0;padding:6px 10px;text-align:left;vertical-align:top}
blockquote{margin:1em 0;padding:.5em 1em;background:#f8fafc;border-left:4px solid #94a3b8}`

// HTML writes a standalone HTML page rendered from the Markdown report
func HTML(w io.Writer, r *models.DiagnosisResult) error {
	var src bytes.Buffer
	if err := Markdown(&src, r); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := htmlRenderer.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}

	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>AIO診断レポート - %s</title>
<style>%s</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(r.URL), htmlStyle, body.String())
	return err
}
