package services

import (
	"context"
	"fmt"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// CollectionsService mirrors the curated collections: the index, each
// collection's member records, and their package artifacts
type CollectionsService struct {
	marketplace ports.MarketplaceGateway
	downloads   *DownloadService
	listings    ports.ListingStore
	logger      ports.LoggingGateway
	pacer       Pacer
}

// NewCollectionsService creates a new collections service
func NewCollectionsService(
	marketplace ports.MarketplaceGateway,
	downloads *DownloadService,
	listings ports.ListingStore,
	logger ports.LoggingGateway,
	pacer Pacer,
) *CollectionsService {
	return &CollectionsService{
		marketplace: marketplace,
		downloads:   downloads,
		listings:    listings,
		logger:      logger,
		pacer:       pacer,
	}
}

// CollectionReport is the result of mirroring one collection
type CollectionReport struct {
	Name  string
	Count int
	Batch *domain.BatchResult
	Err   error
}

// MirrorAll retrieves the collections index, persists it, then mirrors each
// collection in turn. A failed collection is logged and the walk continues;
// only an unreachable index or a done ctx ends the run early.
func (s *CollectionsService) MirrorAll(ctx context.Context, progress ProgressFunc) ([]CollectionReport, error) {
	collections, err := s.marketplace.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve collections index: %w", err)
	}

	if err := s.listings.SaveCollections(collections); err != nil {
		return nil, fmt.Errorf("failed to persist collections index: %w", err)
	}
	s.logger.Log(ports.LogLevelInfo, "collections index saved", map[string]interface{}{
		"count": len(collections),
	})

	reports := make([]CollectionReport, 0, len(collections))
	for _, collection := range collections {
		if err := s.pacer.Pause(ctx); err != nil {
			return reports, err
		}
		reports = append(reports, s.mirrorOne(ctx, collection, progress))
	}
	return reports, nil
}

// mirrorOne retrieves one collection's member records, persists them, and
// fetches their artifacts under the collection's name as scope
func (s *CollectionsService) mirrorOne(ctx context.Context, collection domain.Collection, progress ProgressFunc) CollectionReport {
	name, err := collection.Name()
	if err != nil {
		s.logger.LogError(err, "skipping collection without a usable name", nil)
		return CollectionReport{Err: err}
	}
	report := CollectionReport{Name: name}

	scope, err := domain.NewCategory(name)
	if err != nil {
		s.logger.LogError(err, "skipping collection with unusable name", map[string]interface{}{
			"collection": name,
		})
		report.Err = err
		return report
	}

	records, err := s.marketplace.CollectionPlugins(ctx, name)
	if err != nil {
		s.logger.LogError(err, "failed to retrieve collection", map[string]interface{}{
			"collection": name,
		})
		report.Err = err
		emit(progress, ProgressEvent{Kind: ProgressScopeFailed, Scope: scope, Err: err})
		return report
	}
	report.Count = len(records)

	if err := s.listings.SaveCollectionPlugins(name, records); err != nil {
		s.logger.LogError(err, "failed to persist collection", map[string]interface{}{
			"collection": name,
		})
		report.Err = err
		emit(progress, ProgressEvent{Kind: ProgressScopeFailed, Scope: scope, Err: err})
		return report
	}

	batch, err := s.downloads.FetchBatch(ctx, scope, records, func(outcome domain.DownloadOutcome) {
		emit(progress, ProgressEvent{Kind: ProgressDownload, Scope: scope, Outcome: &outcome})
	})
	report.Batch = batch
	if err != nil {
		report.Err = err
		emit(progress, ProgressEvent{Kind: ProgressScopeFailed, Scope: scope, Err: err})
		return report
	}

	s.logger.Log(ports.LogLevelInfo, "collection mirrored", map[string]interface{}{
		"collection": name,
		"summary":    batch.String(),
	})
	emit(progress, ProgressEvent{Kind: ProgressScopeDone, Scope: scope, Batch: batch})
	return report
}
