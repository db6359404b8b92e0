package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// CategoryReport is the result of mirroring one category
type CategoryReport struct {
	Category domain.Category
	Listing  domain.Listing
	Batch    *domain.BatchResult
	Err      error
}

// Succeeded reports whether the category was mirrored end to end
func (r CategoryReport) Succeeded() bool {
	return r.Err == nil
}

// AllFailed reports whether every category in the run failed. The process
// exit code is non-zero only in that case.
func AllFailed(reports []CategoryReport) bool {
	if len(reports) == 0 {
		return false
	}
	for _, report := range reports {
		if report.Succeeded() {
			return false
		}
	}
	return true
}

// SyncService orchestrates listing retrieval, persistence, and artifact
// downloads across categories
type SyncService struct {
	catalog   *CatalogService
	downloads *DownloadService
	listings  ports.ListingStore
	logger    ports.LoggingGateway
}

// NewSyncService creates a new sync service
func NewSyncService(
	catalog *CatalogService,
	downloads *DownloadService,
	listings ports.ListingStore,
	logger ports.LoggingGateway,
) *SyncService {
	return &SyncService{
		catalog:   catalog,
		downloads: downloads,
		listings:  listings,
		logger:    logger,
	}
}

// SyncCategory mirrors one category end to end: retrieve the full listing,
// persist it, then fetch the missing artifacts. A retrieval or persistence
// failure aborts the category before any download starts.
func (s *SyncService) SyncCategory(ctx context.Context, category domain.Category, progress ProgressFunc) CategoryReport {
	report := CategoryReport{Category: category}

	listing, err := s.catalog.RetrieveListing(ctx, category, func(info PageInfo) {
		emit(progress, ProgressEvent{
			Kind:      ProgressPage,
			Scope:     category,
			Page:      info.Page,
			Collected: info.Collected,
			Total:     info.Total,
		})
	})
	if err != nil {
		s.logger.LogError(err, "category retrieval failed", map[string]interface{}{
			"category": category.Value(),
		})
		report.Err = err
		emit(progress, ProgressEvent{Kind: ProgressScopeFailed, Scope: category, Err: err})
		return report
	}
	report.Listing = listing

	if err := s.listings.SaveListing(listing); err != nil {
		s.logger.LogError(err, "failed to persist category listing", map[string]interface{}{
			"category": category.Value(),
		})
		report.Err = err
		emit(progress, ProgressEvent{Kind: ProgressScopeFailed, Scope: category, Err: err})
		return report
	}

	batch, err := s.downloads.FetchBatch(ctx, category, listing.Records(), func(outcome domain.DownloadOutcome) {
		emit(progress, ProgressEvent{Kind: ProgressDownload, Scope: category, Outcome: &outcome})
	})
	report.Batch = batch
	if err != nil {
		report.Err = err
		emit(progress, ProgressEvent{Kind: ProgressScopeFailed, Scope: category, Err: err})
		return report
	}

	s.logger.Log(ports.LogLevelInfo, "category mirrored", map[string]interface{}{
		"category": category.Value(),
		"summary":  batch.String(),
	})
	emit(progress, ProgressEvent{Kind: ProgressScopeDone, Scope: category, Batch: batch})
	return report
}

// SyncAll mirrors the given categories in parallel. Categories share no
// state besides the filesystem, and artifact paths are namespaced per
// category, so one category's failure never stops the others.
func (s *SyncService) SyncAll(ctx context.Context, categories []domain.Category, progress ProgressFunc) []CategoryReport {
	reports := make([]CategoryReport, len(categories))

	var group errgroup.Group
	for i, category := range categories {
		group.Go(func() error {
			reports[i] = s.SyncCategory(ctx, category, progress)
			return nil
		})
	}
	group.Wait()

	return reports
}
