// Package report renders an aggregated analysis report into its document
// representations: canonical JSON, Markdown, HTML, and colored console text.
// The report value itself is the compatibility surface; renderers only
// reshape it.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/repolens-dev/repolens/internal/aggregate"
)

// Supported format identifiers.
const (
	FormatJSON     = "json"
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatText     = "text"
)

// ErrUnsupportedFormat is returned for format names outside the supported set.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// supportedFormats maps each format to its file extension.
var supportedFormats = map[string]string{
	FormatJSON:     ".json",
	FormatMarkdown: ".md",
	FormatHTML:     ".html",
	FormatText:     ".txt",
}

// SupportedFormats returns the supported format names, sorted.
func SupportedFormats() []string {
	names := make([]string, 0, len(supportedFormats))
	for name := range supportedFormats {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Render writes one representation of the report to w.
func Render(w io.Writer, format string, rep *aggregate.Report) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, rep)
	case FormatMarkdown:
		return renderMarkdown(w, rep)
	case FormatHTML:
		return renderHTML(w, rep)
	case FormatText:
		return renderConsole(w, rep, false)
	default:
		return fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, format, strings.Join(SupportedFormats(), ", "))
	}
}

// RenderConsole writes the colored console representation. Color is applied
// only when enabled; pipes and files get plain text.
func RenderConsole(w io.Writer, rep *aggregate.Report, colored bool) error {
	return renderConsole(w, rep, colored)
}

// WriteFiles renders the report into basePath+ext for every requested
// format and returns the written paths. The format list is validated as a
// whole before anything is written.
func WriteFiles(basePath string, rep *aggregate.Report, formats []string) ([]string, error) {
	for _, format := range formats {
		if _, ok := supportedFormats[format]; !ok {
			return nil, fmt.Errorf("%w: %q (supported: %s)",
				ErrUnsupportedFormat, format, strings.Join(SupportedFormats(), ", "))
		}
	}

	dir := filepath.Dir(basePath)

	mkdirErr := os.MkdirAll(dir, 0o755)
	if mkdirErr != nil {
		return nil, fmt.Errorf("create report directory: %w", mkdirErr)
	}

	written := make([]string, 0, len(formats))

	for _, format := range formats {
		path := basePath + supportedFormats[format]

		file, createErr := os.Create(path)
		if createErr != nil {
			return written, fmt.Errorf("create %s: %w", path, createErr)
		}

		renderErr := Render(file, format, rep)

		closeErr := file.Close()
		if renderErr != nil {
			return written, fmt.Errorf("render %s: %w", format, renderErr)
		}

		if closeErr != nil {
			return written, fmt.Errorf("close %s: %w", path, closeErr)
		}

		written = append(written, path)
	}

	return written, nil
}

// renderJSON writes the canonical JSON document.
func renderJSON(w io.Writer, rep *aggregate.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(rep)
	if err != nil {
		return fmt.Errorf("encode report json: %w", err)
	}

	return nil
}
