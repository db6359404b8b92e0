package domain

import "fmt"

// PluginRecord is one plugin entry as returned by the marketplace search API.
// The server schema is open-ended, so every field is preserved verbatim for
// persistence; the pipeline itself only reads the fields below.
type PluginRecord map[string]any

// fieldPackageIdentifier is the composite identifier the download pipeline
// keys on.
const (
	fieldPackageIdentifier = "latest_package_identifier"
	fieldPluginID          = "plugin_id"
	fieldLatestVersion     = "latest_version"
)

// PackageIdentifier returns the composite package identifier of the record's
// latest version
func (r PluginRecord) PackageIdentifier() (string, error) {
	raw, ok := r[fieldPackageIdentifier]
	if !ok {
		return "", NewParseError(r.PluginID(), "record has no latest_package_identifier field")
	}
	identifier, ok := raw.(string)
	if !ok || identifier == "" {
		return "", NewParseError(r.PluginID(), "latest_package_identifier is not a non-empty string")
	}
	return identifier, nil
}

// Identity derives the ArtifactIdentity from the record's package identifier
func (r PluginRecord) Identity() (ArtifactIdentity, error) {
	identifier, err := r.PackageIdentifier()
	if err != nil {
		return ArtifactIdentity{}, err
	}
	return ParsePackageIdentifier(identifier)
}

// PluginID returns the record's plugin id, or an empty string when the field
// is missing. Used for log lines only; identity derivation goes through
// PackageIdentifier.
func (r PluginRecord) PluginID() string {
	if id, ok := r[fieldPluginID].(string); ok {
		return id
	}
	return ""
}

// LatestVersion returns the record's latest version, or an empty string when
// the field is missing
func (r PluginRecord) LatestVersion() string {
	if version, ok := r[fieldLatestVersion].(string); ok {
		return version
	}
	return ""
}

// Listing is the complete ordered result of paginating one category
type Listing struct {
	category Category
	records  []PluginRecord
	total    int
}

// NewListing creates a Listing for a category. total is the size the server
// reported on the first page, which may differ from len(records) when the
// server returned an early empty page.
func NewListing(category Category, records []PluginRecord, total int) Listing {
	return Listing{category: category, records: records, total: total}
}

// Category returns the category this listing was retrieved for
func (l Listing) Category() Category {
	return l.category
}

// Records returns the plugin records in server order
func (l Listing) Records() []PluginRecord {
	records := make([]PluginRecord, len(l.records))
	copy(records, l.records)
	return records
}

// Total returns the server-reported total for the category
func (l Listing) Total() int {
	return l.total
}

// Count returns the number of records actually collected
func (l Listing) Count() int {
	return len(l.records)
}

// Complete reports whether every record the server announced was collected
func (l Listing) Complete() bool {
	return len(l.records) >= l.total
}

// String returns a short description of the listing
func (l Listing) String() string {
	return fmt.Sprintf("Listing{Category: %s, Count: %d, Total: %d}", l.category, len(l.records), l.total)
}
