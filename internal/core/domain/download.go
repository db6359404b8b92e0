package domain

import "fmt"

// DownloadStatus classifies the result of one artifact download attempt
type DownloadStatus string

const (
	StatusDownloaded     DownloadStatus = "downloaded"
	StatusAlreadyPresent DownloadStatus = "already_present"
	StatusFailed         DownloadStatus = "failed"
)

// DownloadOutcome reports what happened to one artifact
type DownloadOutcome struct {
	identity ArtifactIdentity
	status   DownloadStatus
	size     int64
	reason   error
}

// NewDownloadedOutcome creates an outcome for a freshly downloaded artifact
func NewDownloadedOutcome(identity ArtifactIdentity, size int64) DownloadOutcome {
	return DownloadOutcome{identity: identity, status: StatusDownloaded, size: size}
}

// NewPresentOutcome creates an outcome for an artifact that already existed
// on disk, so no request was made
func NewPresentOutcome(identity ArtifactIdentity) DownloadOutcome {
	return DownloadOutcome{identity: identity, status: StatusAlreadyPresent}
}

// NewFailedOutcome creates an outcome for a failed download
func NewFailedOutcome(identity ArtifactIdentity, reason error) DownloadOutcome {
	return DownloadOutcome{identity: identity, status: StatusFailed, reason: reason}
}

// Identity returns the artifact this outcome belongs to
func (o DownloadOutcome) Identity() ArtifactIdentity {
	return o.identity
}

// Status returns the outcome classification
func (o DownloadOutcome) Status() DownloadStatus {
	return o.status
}

// Size returns the number of bytes written, non-zero only for downloads
func (o DownloadOutcome) Size() int64 {
	return o.size
}

// Reason returns the failure cause, nil unless Status is StatusFailed
func (o DownloadOutcome) Reason() error {
	return o.reason
}

// Attempted reports whether a network request was actually made. Jitter
// pacing applies only to attempted downloads.
func (o DownloadOutcome) Attempted() bool {
	return o.status != StatusAlreadyPresent
}

// String returns a short description of the outcome
func (o DownloadOutcome) String() string {
	if o.status == StatusFailed {
		return fmt.Sprintf("%s: %s (%v)", o.identity, o.status, o.reason)
	}
	return fmt.Sprintf("%s: %s", o.identity, o.status)
}

// BatchResult aggregates the outcomes of downloading one listing
type BatchResult struct {
	Downloaded int
	Present    int
	Failed     int
	Skipped    int
	Failures   []DownloadOutcome
}

// Add folds one outcome into the result
func (r *BatchResult) Add(outcome DownloadOutcome) {
	switch outcome.Status() {
	case StatusDownloaded:
		r.Downloaded++
	case StatusAlreadyPresent:
		r.Present++
	case StatusFailed:
		r.Failed++
		r.Failures = append(r.Failures, outcome)
	}
}

// AddSkipped records a record whose identity could not be derived
func (r *BatchResult) AddSkipped() {
	r.Skipped++
}

// Total returns the number of records the batch covered
func (r BatchResult) Total() int {
	return r.Downloaded + r.Present + r.Failed + r.Skipped
}

// String returns a summary suitable for log lines
func (r BatchResult) String() string {
	return fmt.Sprintf("downloaded=%d present=%d failed=%d skipped=%d",
		r.Downloaded, r.Present, r.Failed, r.Skipped)
}
