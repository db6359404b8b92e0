package services

import (
	"context"
	"fmt"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// Marketplace listings are always walked most-installed first, matching the
// order the storefront shows.
const (
	sortByInstallCount  = "install_count"
	sortOrderDescending = "DESC"
)

// CatalogService implements the paginated listing retrieval for one category
type CatalogService struct {
	marketplace ports.MarketplaceGateway
	logger      ports.LoggingGateway
	pageSize    int
	pacer       Pacer
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	marketplace ports.MarketplaceGateway,
	logger ports.LoggingGateway,
	pageSize int,
	pacer Pacer,
) *CatalogService {
	return &CatalogService{
		marketplace: marketplace,
		logger:      logger,
		pageSize:    pageSize,
		pacer:       pacer,
	}
}

// PageInfo describes one retrieved page for progress reporting
type PageInfo struct {
	Category  domain.Category
	Page      int
	Collected int
	Total     int
}

// RetrieveListing walks the search pages of a category sequentially until the
// server-reported total is collected or the server returns an empty page. An
// empty page before the total is reached ends the walk with a warning, not an
// error. Any request failure aborts the walk with no partial listing. onPage,
// when non-nil, is invoked after each appended page.
func (s *CatalogService) RetrieveListing(ctx context.Context, category domain.Category, onPage func(PageInfo)) (domain.Listing, error) {
	page := 1
	resp, err := s.searchPage(ctx, category, page)
	if err != nil {
		return domain.Listing{}, err
	}

	total := resp.Total
	var records []domain.PluginRecord

	for {
		if len(resp.Records) == 0 {
			if len(records) < total {
				s.logger.Log(ports.LogLevelWarn, "category listing ended before reported total", map[string]interface{}{
					"category":  category.Value(),
					"collected": len(records),
					"total":     total,
				})
			}
			break
		}

		records = append(records, resp.Records...)
		if onPage != nil {
			onPage(PageInfo{Category: category, Page: page, Collected: len(records), Total: total})
		}

		if len(records) >= total {
			break
		}

		if err := s.pacer.Pause(ctx); err != nil {
			return domain.Listing{}, err
		}

		page++
		resp, err = s.searchPage(ctx, category, page)
		if err != nil {
			return domain.Listing{}, err
		}
	}

	listing := domain.NewListing(category, records, total)
	s.logger.Log(ports.LogLevelInfo, "category listing retrieved", map[string]interface{}{
		"category":  category.Value(),
		"collected": listing.Count(),
		"total":     listing.Total(),
		"pages":     page,
	})
	return listing, nil
}

func (s *CatalogService) searchPage(ctx context.Context, category domain.Category, page int) (*ports.SearchPage, error) {
	s.logger.Log(ports.LogLevelDebug, "requesting search page", map[string]interface{}{
		"category": category.Value(),
		"page":     page,
	})

	resp, err := s.marketplace.SearchPlugins(ctx, ports.SearchRequest{
		Category:  category,
		Page:      page,
		PageSize:  s.pageSize,
		SortBy:    sortByInstallCount,
		SortOrder: sortOrderDescending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve page %d of category %s: %w", page, category.Value(), err)
	}
	return resp, nil
}
