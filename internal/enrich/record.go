// Package enrich provides the vulnerability enrichment gateway: a keyed
// lookup against an external advisory service that degrades through a local
// bundled dataset down to an explicit no-data record. Lookup never fails
// outward; data quality is tracked through the record's Source tag.
package enrich

// Source identifies which tier produced an enrichment record. It is part of
// the report compatibility surface: downstream consumers rely on it to tell
// authoritative data from degraded data.
type Source string

const (
	// SourceLive means the record came from the external advisory service.
	SourceLive Source = "live"

	// SourceCached means the record came from the bundled local dataset.
	SourceCached Source = "cached"

	// SourceFallback means no data was available anywhere; the record is an
	// explicit placeholder with empty severity.
	SourceFallback Source = "fallback"
)

// Record is one enrichment lookup result. Source is always populated.
type Record struct {
	// Key is the lookup identifier, e.g. a package name or package@version.
	Key string `json:"key"`

	// Severity is the advisory severity (e.g. "critical", "high").
	// Empty for fallback records.
	Severity string `json:"severity"`

	// Description is a human-readable advisory summary.
	Description string `json:"description"`

	// Source tells which tier produced this record.
	Source Source `json:"source"`
}

// Fallback returns the explicit no-data record for key.
func Fallback(key string) Record {
	return Record{
		Key:         key,
		Description: "no advisory data available",
		Source:      SourceFallback,
	}
}
