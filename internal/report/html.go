package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/repolens-dev/repolens/internal/aggregate"
)

//go:embed templates/report.html.tmpl
var htmlTemplateText string

// htmlTemplate is parsed once at init; a broken embedded template is a
// build defect.
var htmlTemplate = template.Must(
	template.New("report").Funcs(template.FuncMap{
		"prettyJSON": prettyJSON,
	}).Parse(htmlTemplateText),
)

// renderHTML writes the standalone HTML document.
func renderHTML(w io.Writer, rep *aggregate.Report) error {
	err := htmlTemplate.Execute(w, rep)
	if err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	return nil
}

// prettyJSON renders any payload as indented JSON for the detail blocks.
func prettyJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	return string(data), nil
}
