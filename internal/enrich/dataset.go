package enrich

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed data/advisories.yaml
var bundledAdvisories []byte

//go:embed data/advisories.schema.json
var advisoriesSchema []byte

// datasetEntry is one bundled advisory as stored in the YAML file.
type datasetEntry struct {
	Key         string `yaml:"key" json:"key"`
	Severity    string `yaml:"severity" json:"severity"`
	Description string `yaml:"description" json:"description"`
}

// Dataset is the read-only local advisory fallback. Built once at gateway
// construction; concurrent lookups need no locking afterwards.
type Dataset struct {
	records map[string]Record
}

// LoadBundledDataset parses and validates the advisory dataset shipped with
// the binary.
func LoadBundledDataset() (*Dataset, error) {
	return loadDataset(bundledAdvisories)
}

// loadDataset parses raw YAML, validates it against the advisory schema, and
// indexes the entries by lowercased key.
func loadDataset(raw []byte) (*Dataset, error) {
	var entries []datasetEntry

	err := yaml.Unmarshal(raw, &entries)
	if err != nil {
		return nil, fmt.Errorf("parse advisory dataset: %w", err)
	}

	validateErr := validateDataset(entries)
	if validateErr != nil {
		return nil, validateErr
	}

	ds := &Dataset{records: make(map[string]Record, len(entries))}

	for _, e := range entries {
		ds.records[strings.ToLower(e.Key)] = Record{
			Key:         e.Key,
			Severity:    e.Severity,
			Description: e.Description,
			Source:      SourceCached,
		}
	}

	return ds, nil
}

// validateDataset checks the parsed entries against the embedded JSON schema.
// A malformed bundled dataset is a build defect, caught at startup rather
// than at lookup time.
func validateDataset(entries []datasetEntry) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(advisoriesSchema),
		gojsonschema.NewGoLoader(entries),
	)
	if err != nil {
		return fmt.Errorf("validate advisory dataset: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}

		return fmt.Errorf("advisory dataset schema violation: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// Lookup returns the cached record for key, matching case-insensitively.
func (ds *Dataset) Lookup(key string) (Record, bool) {
	rec, ok := ds.records[strings.ToLower(key)]

	return rec, ok
}

// Len returns the number of bundled advisories.
func (ds *Dataset) Len() int {
	return len(ds.records)
}
