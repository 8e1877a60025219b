package config

import "time"

// Default analysis deadlines and run timeout.
const (
	DefaultStructuralDeadline  = 30 * time.Second
	DefaultSecurityDeadline    = 60 * time.Second
	DefaultPerformanceDeadline = 30 * time.Second
	DefaultRunTimeout          = 2 * time.Minute
)

// Default enrichment gateway settings.
const (
	DefaultEnrichmentRequestTimeout = 5 * time.Second
	DefaultEnrichmentMaxAttempts    = 3
	DefaultEnrichmentBackoffBase    = 250 * time.Millisecond
	DefaultEnrichmentBackoffCeiling = 5 * time.Second
)

// Default report settings.
const DefaultReportOutputDir = "reports"

// DefaultReportFormats are the formats written when none are configured.
var DefaultReportFormats = []string{"json", "html"}

// Default server settings.
const DefaultServerAddr = ":8080"

// Default log settings.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)
