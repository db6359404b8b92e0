package ports

import (
	"context"
	"io"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
)

// SearchRequest describes one page request against the marketplace search
// endpoint
type SearchRequest struct {
	Category  domain.Category
	Page      int
	PageSize  int
	Query     string
	SortBy    string
	SortOrder string
}

// SearchPage is one page of the marketplace search response
type SearchPage struct {
	Total   int
	Records []domain.PluginRecord
}

// MarketplaceGateway defines the interface for talking to the marketplace API
type MarketplaceGateway interface {
	// SearchPlugins retrieves one page of plugin records for a category
	SearchPlugins(ctx context.Context, req SearchRequest) (*SearchPage, error)

	// ListCollections retrieves the curated collections index
	ListCollections(ctx context.Context) ([]domain.Collection, error)

	// CollectionPlugins retrieves the member plugin records of one collection
	CollectionPlugins(ctx context.Context, name string) ([]domain.PluginRecord, error)

	// DownloadPackage opens a stream over one package artifact. The caller
	// must close the returned reader; the second value is the content length
	// when the server reports one, otherwise -1.
	DownloadPackage(ctx context.Context, identity domain.ArtifactIdentity) (io.ReadCloser, int64, error)
}
