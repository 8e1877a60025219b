package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/repolens-dev/repolens/internal/aggregate"
	"github.com/repolens-dev/repolens/internal/analysis"
	"github.com/repolens-dev/repolens/internal/analyzers/performance"
	"github.com/repolens-dev/repolens/internal/analyzers/security"
	"github.com/repolens-dev/repolens/internal/analyzers/structural"
)

// consoleFindingLimit caps how many findings each section prints to the
// terminal. Full listings live in the file formats.
const consoleFindingLimit = 10

// renderConsole writes the terminal representation: a status line, an
// outcome table, and a truncated findings list per analyzer.
func renderConsole(w io.Writer, rep *aggregate.Report, colored bool) error {
	color.NoColor = !colored //nolint:reassign // intentional override of library global

	var b strings.Builder

	fmt.Fprintf(&b, "Repository %s  (%d files, %s)\n",
		rep.Meta.Repository, rep.Meta.FileCount, humanize.Bytes(uint64(rep.Meta.TotalBytes)))
	fmt.Fprintf(&b, "Overall status: %s\n\n", statusColor(rep.OverallStatus).Sprint(strings.ToUpper(string(rep.OverallStatus))))

	b.WriteString(outcomeTable(rep))
	b.WriteString("\n")

	for _, entry := range rep.Results {
		writeConsoleSection(&b, entry)
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write console report: %w", err)
	}

	return nil
}

// outcomeTable renders the per-analyzer summary table.
func outcomeTable(rep *aggregate.Report) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Analyzer", "State", "Elapsed", "Summary"})

	for _, entry := range rep.Results {
		tbl.AppendRow(table.Row{
			entry.Analyzer,
			stateColor(entry.Outcome.State).Sprint(statusNoun(entry.Outcome.State)),
			entry.Outcome.Elapsed.Round(time.Millisecond),
			entrySummary(entry),
		})
	}

	return tbl.Render() + "\n"
}

// entrySummary gives the one-line cell describing an analyzer's output.
func entrySummary(entry aggregate.Entry) string {
	if !entry.Outcome.OK() {
		return entry.Outcome.Message
	}

	switch payload := entry.Outcome.Payload.(type) {
	case structural.Result:
		return fmt.Sprintf("%d files, %s lines, %d functions",
			payload.FileCount, humanize.Comma(int64(payload.TotalLines)), payload.FunctionCount)
	case security.Result:
		return fmt.Sprintf("%d findings", payload.Count)
	case performance.Result:
		return fmt.Sprintf("%d issues", payload.Count)
	default:
		return ""
	}
}

// writeConsoleSection prints an analyzer's findings, truncated for the
// terminal.
func writeConsoleSection(b *strings.Builder, entry aggregate.Entry) {
	switch payload := entry.Outcome.Payload.(type) {
	case security.Result:
		if payload.Count == 0 {
			return
		}

		fmt.Fprintf(b, "\nSecurity findings (%d):\n", payload.Count)

		for i, finding := range payload.Findings {
			if i == consoleFindingLimit {
				fmt.Fprintf(b, "  ... and %d more\n", payload.Count-consoleFindingLimit)

				break
			}

			severity := ""
			if finding.Advisory != nil && finding.Advisory.Severity != "" {
				severity = fmt.Sprintf(" [%s/%s]", finding.Advisory.Severity, finding.Advisory.Source)
			}

			fmt.Fprintf(b, "  %s:%d %s%s\n", finding.File, finding.Line, finding.Detail, severity)
		}
	case performance.Result:
		if payload.Count == 0 {
			return
		}

		fmt.Fprintf(b, "\nPerformance issues (%d):\n", payload.Count)

		for i, issue := range payload.Issues {
			if i == consoleFindingLimit {
				fmt.Fprintf(b, "  ... and %d more\n", payload.Count-consoleFindingLimit)

				break
			}

			fmt.Fprintf(b, "  %s: %s (%s)\n", issue.File, issue.Issue, issue.Detail)
		}
	}
}

// statusColor maps an overall status to its terminal color.
func statusColor(status aggregate.Status) *color.Color {
	switch status {
	case aggregate.StatusHealthy:
		return color.New(color.FgGreen)
	case aggregate.StatusDegraded:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// stateColor maps an outcome state to its terminal color.
func stateColor(state analysis.State) *color.Color {
	switch state {
	case analysis.StateSuccess:
		return color.New(color.FgGreen)
	case analysis.StateTimedOut:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
