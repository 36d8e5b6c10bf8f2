package explore

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in reports is escaped since WithUnsafe is not set.
var reportRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderReport converts a Markdown analysis report to HTML.
func RenderReport(report string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := reportRenderer.Convert([]byte(report), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
