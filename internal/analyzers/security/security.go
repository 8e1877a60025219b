// Package security scans a snapshot for insecure patterns: hardcoded
// credentials and risky imports or calls. Matched packages are enriched
// through the advisory gateway; enrichment degradation lowers data quality
// (visible through the record's source tag) but never fails the analysis.
package security

import (
	"bytes"
	"context"
	"regexp"
	"sort"

	"github.com/repolens-dev/repolens/internal/enrich"
	"github.com/repolens-dev/repolens/internal/snapshot"
)

// Name is the canonical analyzer identifier.
const Name = "security"

// rule is one static detection pattern.
type rule struct {
	id      string
	detail  string
	pattern *regexp.Regexp

	// enrichKey, when non-empty, is looked up through the gateway and the
	// record attached to every finding the rule produces.
	enrichKey string

	// languages restricts the rule to files of these languages.
	// Nil applies the rule to every file.
	languages []string
}

// secretRules flag hardcoded credential material in any language.
var secretRules = []rule{
	{
		id:      "hardcoded-aws-key",
		detail:  "AWS access key ID committed to source",
		pattern: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	},
	{
		id:      "private-key-material",
		detail:  "private key block committed to source",
		pattern: regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`),
	},
	{
		id:      "hardcoded-secret",
		detail:  "credential-looking literal assigned to a secret-named variable",
		pattern: regexp.MustCompile(`(?i)\b(api_key|apikey|secret|password|passwd|token)\s*[:=]\s*["'][^"'\s]{8,}["']`),
	},
}

// importRules flag risky modules per language, mirroring the dataset keys
// the enrichment tiers know about.
var importRules = []rule{
	{
		id:        "risky-import-pickle",
		detail:    "pickle deserializes untrusted data into arbitrary objects",
		pattern:   regexp.MustCompile(`(?m)^\s*(import\s+pickle\b|from\s+pickle\s+import\b)`),
		enrichKey: "pickle",
		languages: []string{"Python"},
	},
	{
		id:        "risky-import-subprocess",
		detail:    "subprocess with unsanitized input risks command injection",
		pattern:   regexp.MustCompile(`(?m)^\s*(import\s+subprocess\b|from\s+subprocess\s+import\b)`),
		enrichKey: "subprocess",
		languages: []string{"Python"},
	},
	{
		id:        "risky-call-eval",
		detail:    "dynamic evaluation of strings is direct code injection",
		pattern:   regexp.MustCompile(`(?m)(^|[^\w.])eval\s*\(`),
		enrichKey: "eval",
		languages: []string{"Python", "JavaScript", "TypeScript"},
	},
	{
		id:        "risky-import-unsafe",
		detail:    "package unsafe bypasses Go type and memory safety",
		pattern:   regexp.MustCompile(`(?m)^\s*(import\s+)?"unsafe"`),
		enrichKey: "unsafe",
		languages: []string{"Go"},
	},
	{
		id:        "risky-import-exec",
		detail:    "spawning processes from externally influenced arguments",
		pattern:   regexp.MustCompile(`(?m)^\s*(import\s+)?"os/exec"|require\(["']child_process["']\)`),
		enrichKey: "exec",
		languages: []string{"Go", "JavaScript", "TypeScript"},
	},
}

// Finding is one matched rule occurrence.
type Finding struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Rule   string `json:"rule"`
	Detail string `json:"detail"`

	// Advisory is the enrichment record for the matched package, when the
	// rule carries an enrichment key. Its Source tag distinguishes live,
	// cached, and fallback data.
	Advisory *enrich.Record `json:"advisory,omitempty"`
}

// Result is the security analyzer payload.
type Result struct {
	Count    int       `json:"count"`
	Findings []Finding `json:"findings"`
}

// Analyzer implements analysis.Analyzer for the security scan.
type Analyzer struct {
	gateway *enrich.Gateway
}

// New creates a security analyzer backed by the given enrichment gateway.
func New(gateway *enrich.Gateway) *Analyzer {
	return &Analyzer{gateway: gateway}
}

// Name returns the canonical analyzer identifier.
func (a *Analyzer) Name() string {
	return Name
}

// Analyze scans every file against the rule sets. Enrichment lookups are
// deduplicated per key; the gateway is the only I/O this analyzer performs.
func (a *Analyzer) Analyze(ctx context.Context, snap *snapshot.Snapshot) (any, error) {
	findings := make([]Finding, 0)
	advisories := make(map[string]*enrich.Record)

	for _, file := range snap.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		findings = append(findings, a.scanFile(ctx, file, advisories)...)
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}

		return findings[i].Line < findings[j].Line
	})

	return Result{Count: len(findings), Findings: findings}, nil
}

// scanFile applies every applicable rule to one file.
func (a *Analyzer) scanFile(ctx context.Context, file snapshot.File, advisories map[string]*enrich.Record) []Finding {
	var findings []Finding

	for _, r := range append(secretRules, importRules...) {
		if !r.applies(file.Language) {
			continue
		}

		for _, loc := range r.pattern.FindAllIndex(file.Content, -1) {
			finding := Finding{
				File:   file.Path,
				Line:   lineOf(file.Content, loc[0]),
				Rule:   r.id,
				Detail: r.detail,
			}

			if r.enrichKey != "" {
				finding.Advisory = a.advisory(ctx, r.enrichKey, advisories)
			}

			findings = append(findings, finding)
		}
	}

	return findings
}

// advisory resolves one enrichment key, caching the record for the run so
// repeated matches of the same package cost a single lookup.
func (a *Analyzer) advisory(ctx context.Context, key string, advisories map[string]*enrich.Record) *enrich.Record {
	if rec, ok := advisories[key]; ok {
		return rec
	}

	rec := a.gateway.Lookup(ctx, key)
	advisories[key] = &rec

	return &rec
}

// applies reports whether the rule covers the given language.
func (r rule) applies(language string) bool {
	if len(r.languages) == 0 {
		return true
	}

	for _, lang := range r.languages {
		if lang == language {
			return true
		}
	}

	return false
}

// lineOf converts a byte offset into a 1-based line number.
func lineOf(content []byte, offset int) int {
	return bytes.Count(content[:offset], []byte{'\n'}) + 1
}
