package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/repolens-dev/repolens/internal/aggregate"
	"github.com/repolens-dev/repolens/internal/analysis"
	"github.com/repolens-dev/repolens/internal/analyzers/performance"
	"github.com/repolens-dev/repolens/internal/analyzers/security"
	"github.com/repolens-dev/repolens/internal/analyzers/structural"
)

// renderMarkdown writes the Markdown document: a metadata header followed by
// one section per analyzer in report order.
func renderMarkdown(w io.Writer, rep *aggregate.Report) error {
	var b strings.Builder

	b.WriteString("# Codebase Analysis Report\n\n")
	fmt.Fprintf(&b, "- **Repository:** %s\n", rep.Meta.Repository)
	fmt.Fprintf(&b, "- **Run ID:** %s\n", rep.Meta.RunID)
	fmt.Fprintf(&b, "- **Overall status:** %s\n", rep.OverallStatus)
	fmt.Fprintf(&b, "- **Files:** %d (%s)\n", rep.Meta.FileCount, humanize.Bytes(uint64(rep.Meta.TotalBytes)))
	fmt.Fprintf(&b, "- **Finished:** %s\n", rep.Meta.FinishedAt.Format("2006-01-02 15:04:05 MST"))

	for _, entry := range rep.Results {
		b.WriteString("\n")
		writeMarkdownSection(&b, entry)
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	return nil
}

// writeMarkdownSection writes one analyzer's section, degrading to the
// outcome state when the analyzer produced no payload.
func writeMarkdownSection(b *strings.Builder, entry aggregate.Entry) {
	fmt.Fprintf(b, "## %s\n\n", sectionTitle(entry.Analyzer))

	if !entry.Outcome.OK() {
		fmt.Fprintf(b, "Analyzer did not complete: %s", statusNoun(entry.Outcome.State))

		if entry.Outcome.Message != "" {
			fmt.Fprintf(b, " (%s)", entry.Outcome.Message)
		}

		b.WriteString("\n")

		return
	}

	switch payload := entry.Outcome.Payload.(type) {
	case structural.Result:
		writeStructuralMarkdown(b, payload)
	case security.Result:
		writeSecurityMarkdown(b, payload)
	case performance.Result:
		writePerformanceMarkdown(b, payload)
	default:
		b.WriteString("No renderer for this payload.\n")
	}
}

// sectionTitle maps analyzer names to section headings.
func sectionTitle(analyzer string) string {
	switch analyzer {
	case structural.Name:
		return "Structural Overview"
	case security.Name:
		return "Security Findings"
	case performance.Name:
		return "Performance Issues"
	default:
		return analyzer
	}
}

func writeStructuralMarkdown(b *strings.Builder, res structural.Result) {
	fmt.Fprintf(b, "- **Files analyzed:** %d\n", res.FileCount)
	fmt.Fprintf(b, "- **Total lines:** %s\n", humanize.Comma(int64(res.TotalLines)))
	fmt.Fprintf(b, "- **Functions detected:** %d\n", res.FunctionCount)

	if len(res.Languages) > 0 {
		b.WriteString("- **Languages:**\n")

		for _, lang := range res.Languages {
			fmt.Fprintf(b, "  - %s: %d files, %s lines\n",
				lang.Name, lang.Files, humanize.Comma(int64(lang.Lines)))
		}
	}
}

func writeSecurityMarkdown(b *strings.Builder, res security.Result) {
	if res.Count == 0 {
		b.WriteString("No critical security findings detected.\n")

		return
	}

	for _, finding := range res.Findings {
		fmt.Fprintf(b, "- `%s:%d` %s: %s", finding.File, finding.Line, finding.Rule, finding.Detail)

		if finding.Advisory != nil && finding.Advisory.Severity != "" {
			fmt.Fprintf(b, " (advisory: %s severity, source %s)",
				finding.Advisory.Severity, finding.Advisory.Source)
		}

		b.WriteString("\n")
	}
}

func writePerformanceMarkdown(b *strings.Builder, res performance.Result) {
	if res.Count == 0 {
		b.WriteString("No significant performance issues detected.\n")

		return
	}

	for _, issue := range res.Issues {
		fmt.Fprintf(b, "- `%s`: %s (%s)\n", issue.File, issue.Issue, issue.Detail)
	}
}

// statusNoun renders an outcome state for prose contexts.
func statusNoun(state analysis.State) string {
	switch state {
	case analysis.StateSuccess:
		return "success"
	case analysis.StateTimedOut:
		return "timed out"
	case analysis.StateFailure:
		return "failed"
	default:
		return string(state)
	}
}
