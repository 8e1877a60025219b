// Package structural inventories a snapshot: file and line counts, language
// breakdown, function counts, and the largest files.
package structural

import (
	"bytes"
	"context"
	"regexp"
	"sort"

	"github.com/repolens-dev/repolens/internal/snapshot"
)

// Name is the canonical analyzer identifier.
const Name = "structural"

// largestFileCount is how many of the biggest files the result lists.
const largestFileCount = 5

// functionPatterns maps a detected language to a function-definition
// matcher. Languages without an entry contribute zero to the function count.
var functionPatterns = map[string]*regexp.Regexp{
	"Go":         regexp.MustCompile(`(?m)^func\s+(\(\s*\w+\s+\*?[\w.]+\s*\)\s*)?\w+\s*\(`),
	"Python":     regexp.MustCompile(`(?m)^\s*(async\s+)?def\s+\w+\s*\(`),
	"JavaScript": regexp.MustCompile(`(?m)(^|\s)function\s*\w*\s*\(|=>\s*[{(]`),
	"TypeScript": regexp.MustCompile(`(?m)(^|\s)function\s*\w*\s*\(|=>\s*[{(]`),
	"Ruby":       regexp.MustCompile(`(?m)^\s*def\s+\w+`),
	"Rust":       regexp.MustCompile(`(?m)^\s*(pub\s+)?(async\s+)?fn\s+\w+`),
	"Java":       regexp.MustCompile(`(?m)^\s*(public|private|protected|static|\s)+[\w<>\[\]]+\s+\w+\s*\([^;]*\)\s*\{`),
}

// LanguageStat aggregates one detected language across the snapshot.
type LanguageStat struct {
	Name  string `json:"name"`
	Files int    `json:"files"`
	Lines int    `json:"lines"`
	Bytes int64  `json:"bytes"`
}

// FileStat describes one file in the largest-files listing.
type FileStat struct {
	Path  string `json:"path"`
	Lines int    `json:"lines"`
	Bytes int64  `json:"bytes"`
}

// Result is the structural analyzer payload.
type Result struct {
	FileCount     int            `json:"file_count"`
	TotalLines    int            `json:"total_lines"`
	FunctionCount int            `json:"function_count"`
	Languages     []LanguageStat `json:"languages"`
	LargestFiles  []FileStat     `json:"largest_files"`

	// Summary is reserved for the natural-language code-understanding
	// collaborator; this analyzer leaves it empty.
	Summary string `json:"summary,omitempty"`
}

// Analyzer implements analysis.Analyzer for the structural inventory.
type Analyzer struct{}

// New creates a structural analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Name returns the canonical analyzer identifier.
func (a *Analyzer) Name() string {
	return Name
}

// Analyze walks every file once, accumulating counts. Honors ctx between
// files so a deadline interrupts long snapshots promptly.
func (a *Analyzer) Analyze(ctx context.Context, snap *snapshot.Snapshot) (any, error) {
	byLanguage := make(map[string]*LanguageStat)
	result := Result{FileCount: snap.Len()}
	files := make([]FileStat, 0, snap.Len())

	for _, file := range snap.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines := countLines(file.Content)
		result.TotalLines += lines
		result.FunctionCount += countFunctions(file.Language, file.Content)

		lang := file.Language
		if lang == "" {
			lang = "Unknown"
		}

		stat, ok := byLanguage[lang]
		if !ok {
			stat = &LanguageStat{Name: lang}
			byLanguage[lang] = stat
		}

		stat.Files++
		stat.Lines += lines
		stat.Bytes += file.Size

		files = append(files, FileStat{Path: file.Path, Lines: lines, Bytes: file.Size})
	}

	result.Languages = sortedLanguages(byLanguage)
	result.LargestFiles = largestFiles(files)

	return result, nil
}

// countLines counts newline-terminated lines plus a trailing partial line.
func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}

	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}

	return n
}

// countFunctions applies the language's definition pattern, if any.
func countFunctions(language string, content []byte) int {
	pattern, ok := functionPatterns[language]
	if !ok {
		return 0
	}

	return len(pattern.FindAllIndex(content, -1))
}

// sortedLanguages orders language stats by line count descending, name
// ascending as the tiebreak, so output is deterministic.
func sortedLanguages(byLanguage map[string]*LanguageStat) []LanguageStat {
	langs := make([]LanguageStat, 0, len(byLanguage))
	for _, stat := range byLanguage {
		langs = append(langs, *stat)
	}

	sort.Slice(langs, func(i, j int) bool {
		if langs[i].Lines != langs[j].Lines {
			return langs[i].Lines > langs[j].Lines
		}

		return langs[i].Name < langs[j].Name
	})

	return langs
}

// largestFiles returns the top files by size, path as the tiebreak.
func largestFiles(files []FileStat) []FileStat {
	sort.Slice(files, func(i, j int) bool {
		if files[i].Bytes != files[j].Bytes {
			return files[i].Bytes > files[j].Bytes
		}

		return files[i].Path < files[j].Path
	})

	if len(files) > largestFileCount {
		files = files[:largestFileCount]
	}

	return files
}
