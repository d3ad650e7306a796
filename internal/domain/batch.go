// Package domain provides domain models used across the application.
package domain

import (
	"errors"
	"slices"
	"time"
)

// BatchStatus represents the lifecycle stage of a harvest batch.
type BatchStatus string

const (
	// BatchStatusDiscovering means candidate URLs are being collected.
	BatchStatusDiscovering BatchStatus = "discovering"
	// BatchStatusFingerprinting means URLs are being checked for duplicates.
	BatchStatusFingerprinting BatchStatus = "fingerprinting"
	// BatchStatusProcessing means recipes are being extracted and normalized.
	BatchStatusProcessing BatchStatus = "processing"
	// BatchStatusPersisting means assembled recipes are being stored.
	BatchStatusPersisting BatchStatus = "persisting"
	// BatchStatusCompleted is terminal; the batch finished (possibly partially).
	BatchStatusCompleted BatchStatus = "completed"
	// BatchStatusFailed is terminal; the batch hit an unrecoverable error.
	BatchStatusFailed BatchStatus = "failed"
)

// statusOrder defines the forward-only progression of batch statuses.
// Failed is reachable from any non-terminal status and is not part of
// the forward chain.
var statusOrder = map[BatchStatus]int{
	BatchStatusDiscovering:    0,
	BatchStatusFingerprinting: 1,
	BatchStatusProcessing:     2,
	BatchStatusPersisting:     3,
	BatchStatusCompleted:      4,
}

// ErrInvalidStatusTransition is returned when a status change would move
// backwards or leave a terminal status.
var ErrInvalidStatusTransition = errors.New("invalid batch status transition")

// IsTerminal reports whether the status admits no further writes.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// Before reports whether s precedes other in the forward status chain.
func (s BatchStatus) Before(other BatchStatus) bool {
	return statusOrder[s] < statusOrder[other]
}

// BatchState is the persisted state of one harvest batch. Transitions are
// expressed as With* methods that return a new value; callers persist the
// new value under the concurrency token of the old one.
type BatchState struct {
	BatchID       string      `db:"batch_id"       json:"batch_id"`
	ProviderID    string      `db:"provider_id"    json:"provider_id"`
	Status        BatchStatus `db:"status"         json:"status"`
	PendingURLs   []string    `db:"-"              json:"pending_urls"`
	ProcessedURLs []string    `db:"-"              json:"processed_urls"`
	FailedURLs    []string    `db:"-"              json:"failed_urls"`

	Processed int `db:"processed" json:"processed"`
	Skipped   int `db:"skipped"   json:"skipped"`
	Failed    int `db:"failed"    json:"failed"`

	StartedAt   time.Time  `db:"started_at"   json:"started_at"`
	Deadline    time.Time  `db:"deadline"     json:"deadline"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	// Partial is set when the batch completed because its time window
	// expired with URLs still pending; a later resume is meaningful.
	Partial bool `db:"partial" json:"partial"`

	// LastError carries the fatal error for failed batches.
	LastError *string `db:"last_error" json:"last_error,omitempty"`

	// ConcurrencyToken is incremented on every persisted write and used
	// to reject stale writers.
	ConcurrencyToken int64 `db:"concurrency_token" json:"concurrency_token"`
}

// NewBatchState creates the initial state for a batch.
func NewBatchState(batchID, providerID string, startedAt time.Time, window time.Duration) BatchState {
	return BatchState{
		BatchID:    batchID,
		ProviderID: providerID,
		Status:     BatchStatusDiscovering,
		StartedAt:  startedAt,
		Deadline:   startedAt.Add(window),
	}
}

// WithStatus returns a copy of the state moved to the given status.
// Statuses only move forward; any non-terminal status may move to Failed.
func (b BatchState) WithStatus(status BatchStatus) (BatchState, error) {
	if b.Status.IsTerminal() {
		return b, ErrInvalidStatusTransition
	}
	if status == BatchStatusFailed {
		next := b.clone()
		next.Status = BatchStatusFailed
		return next, nil
	}
	from, okFrom := statusOrder[b.Status]
	to, okTo := statusOrder[status]
	if !okFrom || !okTo || to < from {
		return b, ErrInvalidStatusTransition
	}
	next := b.clone()
	next.Status = status
	return next, nil
}

// WithPendingURLs returns a copy with the discovered URL sequence set.
// URLs already processed or failed in a previous run are filtered out so
// the disjointness invariant holds after a resume.
func (b BatchState) WithPendingURLs(urls []string) BatchState {
	next := b.clone()
	next.PendingURLs = make([]string, 0, len(urls))
	for _, u := range urls {
		if slices.Contains(next.ProcessedURLs, u) || slices.Contains(next.FailedURLs, u) {
			continue
		}
		next.PendingURLs = append(next.PendingURLs, u)
	}
	return next
}

// WithURLProcessed returns a copy where url has moved from pending to
// processed. duplicate marks the URL as a dedup skip rather than a
// successfully harvested recipe.
func (b BatchState) WithURLProcessed(url string, duplicate bool) BatchState {
	next := b.clone()
	next.PendingURLs = removeURL(next.PendingURLs, url)
	next.ProcessedURLs = appendUnique(next.ProcessedURLs, url)
	if duplicate {
		next.Skipped++
	} else {
		next.Processed++
	}
	return next
}

// WithURLFailed returns a copy where url has moved from pending to failed.
func (b BatchState) WithURLFailed(url string) BatchState {
	next := b.clone()
	next.PendingURLs = removeURL(next.PendingURLs, url)
	next.FailedURLs = appendUnique(next.FailedURLs, url)
	next.Failed++
	return next
}

// WithCompleted returns a copy marked Completed at the given time.
// partial indicates the time window expired with URLs still pending.
func (b BatchState) WithCompleted(at time.Time, partial bool) (BatchState, error) {
	next, err := b.WithStatus(BatchStatusCompleted)
	if err != nil {
		return b, err
	}
	next.CompletedAt = &at
	next.Partial = partial
	return next, nil
}

// WithFailed returns a copy marked Failed with the fatal error message.
func (b BatchState) WithFailed(at time.Time, msg string) (BatchState, error) {
	next, err := b.WithStatus(BatchStatusFailed)
	if err != nil {
		return b, err
	}
	next.CompletedAt = &at
	next.LastError = &msg
	return next, nil
}

// DeadlineExceeded reports whether the batch time window has expired.
func (b BatchState) DeadlineExceeded(now time.Time) bool {
	return !now.Before(b.Deadline)
}

// clone returns a deep copy of the state.
func (b BatchState) clone() BatchState {
	next := b
	next.PendingURLs = slices.Clone(b.PendingURLs)
	next.ProcessedURLs = slices.Clone(b.ProcessedURLs)
	next.FailedURLs = slices.Clone(b.FailedURLs)
	return next
}

func removeURL(urls []string, url string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != url {
			out = append(out, u)
		}
	}
	return out
}

func appendUnique(urls []string, url string) []string {
	if slices.Contains(urls, url) {
		return urls
	}
	return append(urls, url)
}

// BatchSnapshot is the read-only projection served by status queries.
type BatchSnapshot struct {
	BatchID      string      `json:"batch_id"`
	ProviderID   string      `json:"provider_id"`
	Status       BatchStatus `json:"status"`
	Processed    int         `json:"processed"`
	Skipped      int         `json:"skipped"`
	Failed       int         `json:"failed"`
	PendingCount int         `json:"pending_count"`
	Partial      bool        `json:"partial"`
	StartedAt    time.Time   `json:"started_at"`
	Deadline     time.Time   `json:"deadline"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	LastError    *string     `json:"last_error,omitempty"`
}

// Snapshot builds the read-only projection of the state.
func (b BatchState) Snapshot() BatchSnapshot {
	return BatchSnapshot{
		BatchID:      b.BatchID,
		ProviderID:   b.ProviderID,
		Status:       b.Status,
		Processed:    b.Processed,
		Skipped:      b.Skipped,
		Failed:       b.Failed,
		PendingCount: len(b.PendingURLs),
		Partial:      b.Partial,
		StartedAt:    b.StartedAt,
		Deadline:     b.Deadline,
		CompletedAt:  b.CompletedAt,
		LastError:    b.LastError,
	}
}
