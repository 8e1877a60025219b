// Package performance flags likely performance problems with cheap textual
// heuristics: oversized files, deeply nested code, and long functions. The
// goal is a fast signal, not a profile; anything needing real parsing
// belongs to richer tooling.
package performance

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/repolens-dev/repolens/internal/snapshot"
)

// Name is the canonical analyzer identifier.
const Name = "performance"

// Thresholds for the heuristics.
const (
	// maxFileLines flags files longer than this many lines.
	maxFileLines = 1000

	// maxNestingDepth flags files whose indentation reaches this depth.
	maxNestingDepth = 6

	// indentWidth is how many leading spaces count as one nesting level.
	indentWidth = 4

	// maxFunctionLines flags functions spanning more than this many lines.
	maxFunctionLines = 100
)

// functionStarts matches function signature lines per detected language.
var functionStarts = map[string]*regexp.Regexp{
	"Go":     regexp.MustCompile(`^func\s`),
	"Python": regexp.MustCompile(`^\s*(?:async\s+)?def\s`),
}

// Issue is one flagged performance concern.
type Issue struct {
	File   string `json:"file"`
	Issue  string `json:"issue"`
	Detail string `json:"detail"`
}

// Result is the performance analyzer payload.
type Result struct {
	Count  int     `json:"count"`
	Issues []Issue `json:"issues"`
}

// Analyzer implements analysis.Analyzer for the performance heuristics.
type Analyzer struct{}

// New creates a performance analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Name returns the canonical analyzer identifier.
func (a *Analyzer) Name() string {
	return Name
}

// Analyze applies the heuristics file by file, honoring ctx between files.
func (a *Analyzer) Analyze(ctx context.Context, snap *snapshot.Snapshot) (any, error) {
	issues := make([]Issue, 0)

	for _, file := range snap.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		issues = append(issues, inspect(file)...)
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].File != issues[j].File {
			return issues[i].File < issues[j].File
		}

		return issues[i].Issue < issues[j].Issue
	})

	return Result{Count: len(issues), Issues: issues}, nil
}

// inspect runs every heuristic over one file.
func inspect(file snapshot.File) []Issue {
	var issues []Issue

	lines, maxDepth := scanLines(file.Content)

	if len(lines) > maxFileLines {
		issues = append(issues, Issue{
			File:   file.Path,
			Issue:  "large file",
			Detail: fmt.Sprintf("%d lines (limit %d)", len(lines), maxFileLines),
		})
	}

	if maxDepth >= maxNestingDepth {
		issues = append(issues, Issue{
			File:   file.Path,
			Issue:  "deep nesting",
			Detail: fmt.Sprintf("indentation reaches depth %d (limit %d)", maxDepth, maxNestingDepth),
		})
	}

	issues = append(issues, longFunctions(file, lines)...)

	return issues
}

// longFunctions flags functions spanning more than maxFunctionLines lines.
// A function's span runs from its signature line to the next signature or
// the end of the file, which is accurate enough for a textual heuristic.
func longFunctions(file snapshot.File, lines []string) []Issue {
	pattern, ok := functionStarts[file.Language]
	if !ok {
		return nil
	}

	var starts []int

	for i, line := range lines {
		if pattern.MatchString(line) {
			starts = append(starts, i)
		}
	}

	var issues []Issue

	for i, start := range starts {
		end := len(lines)
		if i+1 < len(starts) {
			end = starts[i+1]
		}

		span := end - start
		if span <= maxFunctionLines {
			continue
		}

		issues = append(issues, Issue{
			File:   file.Path,
			Issue:  "long function",
			Detail: fmt.Sprintf("function starting at line %d spans %d lines (limit %d)", start+1, span, maxFunctionLines),
		})
	}

	return issues
}

// scanLines splits the content into lines and tracks the deepest
// indentation level in one pass. Tabs count as one level each;
// indentWidth spaces count as one level.
func scanLines(content []byte) (lines []string, maxDepth int) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	// Sized to the snapshot cap so a single long line never truncates
	// the scan.
	scanner.Buffer(make([]byte, 0, 64*1024), snapshot.MaxFileSize)

	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)

		depth := indentDepth(line)
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	return lines, maxDepth
}

// indentDepth measures the leading indentation of one line in levels.
func indentDepth(line string) int {
	if strings.TrimSpace(line) == "" {
		return 0
	}

	var tabs, spaces int

loop:
	for _, r := range line {
		switch r {
		case '\t':
			tabs++
		case ' ':
			spaces++
		default:
			break loop
		}
	}

	return tabs + spaces/indentWidth
}
