package services

import (
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
)

// ProgressKind classifies the observable steps of a mirror run
type ProgressKind string

const (
	// ProgressPage fires after each retrieved search page
	ProgressPage ProgressKind = "page"
	// ProgressDownload fires after each artifact outcome
	ProgressDownload ProgressKind = "download"
	// ProgressScopeDone fires when a category or collection finished
	ProgressScopeDone ProgressKind = "scope_done"
	// ProgressScopeFailed fires when a category or collection aborted
	ProgressScopeFailed ProgressKind = "scope_failed"
)

// ProgressEvent is one observable step of a mirror run. Events may arrive
// from concurrent workers; consumers must not block.
type ProgressEvent struct {
	Kind      ProgressKind
	Scope     domain.Category
	Page      int
	Collected int
	Total     int
	Outcome   *domain.DownloadOutcome
	Batch     *domain.BatchResult
	Err       error
}

// ProgressFunc receives progress events. A nil ProgressFunc disables
// reporting.
type ProgressFunc func(ProgressEvent)

func emit(fn ProgressFunc, event ProgressEvent) {
	if fn != nil {
		fn(event)
	}
}
