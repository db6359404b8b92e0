package ports

import (
	"io"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
)

// ArtifactStore defines the interface for artifact persistence. Artifacts are
// namespaced by a scope directory (a category, or a collection name).
type ArtifactStore interface {
	// Exists reports whether the artifact file is already present. Existence
	// is the pipeline's only idempotency signal.
	Exists(scope domain.Category, identity domain.ArtifactIdentity) (bool, error)

	// Write streams artifact content to its file, creating the scope
	// directory as needed, and returns the number of bytes written
	Write(scope domain.Category, identity domain.ArtifactIdentity, content io.Reader) (int64, error)

	// Path returns the file path the artifact resolves to
	Path(scope domain.Category, identity domain.ArtifactIdentity) string
}

// ListingStore defines the interface for metadata persistence
type ListingStore interface {
	// SaveListing persists one category's full listing as JSON
	SaveListing(listing domain.Listing) error

	// SaveCollections persists the collections index as JSON
	SaveCollections(collections []domain.Collection) error

	// SaveCollectionPlugins persists one collection's member plugins as JSON
	SaveCollectionPlugins(name string, records []domain.PluginRecord) error
}
