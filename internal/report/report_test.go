package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens-dev/repolens/internal/aggregate"
	"github.com/repolens-dev/repolens/internal/analysis"
	"github.com/repolens-dev/repolens/internal/analyzers/security"
	"github.com/repolens-dev/repolens/internal/analyzers/structural"
	"github.com/repolens-dev/repolens/internal/report"
	"github.com/repolens-dev/repolens/internal/snapshot"
)

const testDeadline = time.Minute

type fixedAnalyzer struct {
	name string
}

func (fa *fixedAnalyzer) Name() string { return fa.name }

func (fa *fixedAnalyzer) Analyze(_ context.Context, _ *snapshot.Snapshot) (any, error) {
	return nil, nil
}

// sampleReport builds a degraded report with typed analyzer payloads.
func sampleReport() aggregate.Report {
	tasks := []analysis.Task{
		analysis.NewTask(&fixedAnalyzer{name: "structural"}, testDeadline),
		analysis.NewTask(&fixedAnalyzer{name: "security"}, testDeadline),
		analysis.NewTask(&fixedAnalyzer{name: "performance"}, testDeadline),
	}

	outcomes := []analysis.Outcome{
		analysis.Success(structural.Result{
			FileCount:  2,
			TotalLines: 120,
			Languages: []structural.LanguageStat{
				{Name: "Go", Files: 1, Lines: 80, Bytes: 2048},
				{Name: "Python", Files: 1, Lines: 40, Bytes: 1024},
			},
			LargestFiles: []structural.FileStat{
				{Path: "main.go", Lines: 80, Bytes: 2048},
			},
		}),
		analysis.Success(security.Result{
			Count: 1,
			Findings: []security.Finding{
				{File: "app.py", Line: 1, Rule: "risky-import-pickle", Detail: "pickle deserializes untrusted data"},
			},
		}),
		analysis.TimedOut(),
	}

	meta := aggregate.Meta{
		RunID:      "11111111-2222-3333-4444-555555555555",
		Repository: "demo",
		StartedAt:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 14, 10, 0, 5, 0, time.UTC),
		FileCount:  2,
		TotalBytes: 3072,
	}

	return aggregate.Merge(meta, tasks, outcomes)
}

func TestSupportedFormats(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"html", "json", "md", "text"}, report.SupportedFormats())
}

func TestRender_JSONRoundTrips(t *testing.T) {
	t.Parallel()

	rep := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.FormatJSON, &rep))

	var decoded aggregate.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, rep.Meta.RunID, decoded.Meta.RunID)
	assert.Equal(t, aggregate.StatusDegraded, decoded.OverallStatus)
	assert.Len(t, decoded.Results, 3)
}

func TestRender_Markdown(t *testing.T) {
	t.Parallel()

	rep := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.FormatMarkdown, &rep))

	doc := buf.String()
	assert.Contains(t, doc, "demo")
	assert.Contains(t, doc, "degraded")
	assert.Contains(t, doc, "risky-import-pickle")
}

func TestRender_HTML(t *testing.T) {
	t.Parallel()

	rep := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.FormatHTML, &rep))

	doc := buf.String()
	assert.Contains(t, doc, "<html")
	assert.Contains(t, doc, "degraded")
}

func TestRender_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	rep := sampleReport()

	err := report.Render(&bytes.Buffer{}, "pdf", &rep)

	require.ErrorIs(t, err, report.ErrUnsupportedFormat)
}

func TestRenderConsole_PlainWithoutColor(t *testing.T) {
	t.Parallel()

	rep := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, report.RenderConsole(&buf, &rep, false))

	out := buf.String()
	assert.Contains(t, out, "structural")
	assert.Contains(t, out, "security")
	assert.Contains(t, out, "performance")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	rep := sampleReport()
	basePath := filepath.Join(t.TempDir(), "out", "report")

	written, err := report.WriteFiles(basePath, &rep, []string{report.FormatJSON, report.FormatMarkdown})
	require.NoError(t, err)

	require.Len(t, written, 2)
	assert.True(t, strings.HasSuffix(written[0], "report.json"))
	assert.True(t, strings.HasSuffix(written[1], "report.md"))

	for _, path := range written {
		info, statErr := os.Stat(path)
		require.NoError(t, statErr)
		assert.Positive(t, info.Size())
	}
}

func TestWriteFiles_ValidatesBeforeWriting(t *testing.T) {
	t.Parallel()

	rep := sampleReport()
	basePath := filepath.Join(t.TempDir(), "report")

	_, err := report.WriteFiles(basePath, &rep, []string{report.FormatJSON, "pdf"})
	require.ErrorIs(t, err, report.ErrUnsupportedFormat)

	_, statErr := os.Stat(basePath + ".json")
	assert.True(t, os.IsNotExist(statErr))
}
