package services

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// DownloadService implements the concurrency-bounded idempotent artifact
// fetcher
type DownloadService struct {
	marketplace ports.MarketplaceGateway
	artifacts   ports.ArtifactStore
	logger      ports.LoggingGateway
	concurrency int64
	pacer       Pacer
}

// NewDownloadService creates a new download service. concurrency is the
// ceiling of simultaneous in-flight downloads; values below 1 are raised
// to 1.
func NewDownloadService(
	marketplace ports.MarketplaceGateway,
	artifacts ports.ArtifactStore,
	logger ports.LoggingGateway,
	concurrency int,
	pacer Pacer,
) *DownloadService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DownloadService{
		marketplace: marketplace,
		artifacts:   artifacts,
		logger:      logger,
		concurrency: int64(concurrency),
		pacer:       pacer,
	}
}

// FetchOne ensures one artifact exists on disk and reports what happened.
// An artifact already present returns without any network call. The
// existence check is not atomic against another process mirroring the same
// scope; two simultaneous runs can both download, with the later write
// winning.
func (s *DownloadService) FetchOne(ctx context.Context, scope domain.Category, identity domain.ArtifactIdentity) domain.DownloadOutcome {
	exists, err := s.artifacts.Exists(scope, identity)
	if err != nil {
		s.logger.LogError(err, "failed to check artifact presence", map[string]interface{}{
			"artifact": identity.String(),
		})
		return domain.NewFailedOutcome(identity, err)
	}
	if exists {
		s.logger.Log(ports.LogLevelDebug, "artifact already present", map[string]interface{}{
			"path": s.artifacts.Path(scope, identity),
		})
		return domain.NewPresentOutcome(identity)
	}

	content, _, err := s.marketplace.DownloadPackage(ctx, identity)
	if err != nil {
		s.logger.LogError(err, "artifact download failed", map[string]interface{}{
			"artifact": identity.String(),
		})
		return domain.NewFailedOutcome(identity, err)
	}
	defer content.Close()

	written, err := s.artifacts.Write(scope, identity, content)
	if err != nil {
		s.logger.LogError(err, "artifact write failed", map[string]interface{}{
			"artifact": identity.String(),
		})
		return domain.NewFailedOutcome(identity, err)
	}

	s.logger.Log(ports.LogLevelInfo, "artifact downloaded", map[string]interface{}{
		"artifact": identity.String(),
		"bytes":    written,
	})
	return domain.NewDownloadedOutcome(identity, written)
}

// FetchBatch derives artifact identities from records and fetches the
// missing artifacts with at most the configured number in flight. Records
// whose identity cannot be derived are logged and skipped; individual
// failures never abort the batch. After each attempted download the worker
// pauses before giving up its slot, so already-present artifacts add no
// delay. The returned error is non-nil only when ctx ended before every
// record was scheduled. onOutcome, when non-nil, may be invoked from
// multiple goroutines.
func (s *DownloadService) FetchBatch(ctx context.Context, scope domain.Category, records []domain.PluginRecord, onOutcome func(domain.DownloadOutcome)) (*domain.BatchResult, error) {
	result := &domain.BatchResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(s.concurrency)

	for _, record := range records {
		identity, err := record.Identity()
		if err != nil {
			s.logger.LogError(err, "skipping record without usable package identifier", map[string]interface{}{
				"plugin_id": record.PluginID(),
			})
			mu.Lock()
			result.AddSkipped()
			mu.Unlock()
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return result, err
		}

		wg.Add(1)
		go func(identity domain.ArtifactIdentity) {
			defer wg.Done()
			defer sem.Release(1)

			outcome := s.FetchOne(ctx, scope, identity)

			mu.Lock()
			result.Add(outcome)
			mu.Unlock()

			if onOutcome != nil {
				onOutcome(outcome)
			}

			if outcome.Attempted() {
				// Pause while still holding the slot.
				_ = s.pacer.Pause(ctx)
			}
		}(identity)
	}

	wg.Wait()
	return result, nil
}
