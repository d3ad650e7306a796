package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecipes/harvester/internal/domain"
)

func TestBatchStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    domain.BatchStatus
		to      domain.BatchStatus
		wantErr bool
	}{
		{"forward one step", domain.BatchStatusDiscovering, domain.BatchStatusFingerprinting, false},
		{"forward multiple steps", domain.BatchStatusDiscovering, domain.BatchStatusPersisting, false},
		{"same status", domain.BatchStatusProcessing, domain.BatchStatusProcessing, false},
		{"backward", domain.BatchStatusPersisting, domain.BatchStatusFingerprinting, true},
		{"failed from discovering", domain.BatchStatusDiscovering, domain.BatchStatusFailed, false},
		{"failed from persisting", domain.BatchStatusPersisting, domain.BatchStatusFailed, false},
		{"leave completed", domain.BatchStatusCompleted, domain.BatchStatusFailed, true},
		{"leave failed", domain.BatchStatusFailed, domain.BatchStatusProcessing, true},
		{"unknown target", domain.BatchStatusProcessing, domain.BatchStatus("bogus"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state := domain.BatchState{Status: tt.from}
			next, err := state.WithStatus(tt.to)

			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
				assert.Equal(t, tt.from, next.Status, "state must be unchanged on error")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, next.Status)
			assert.Equal(t, tt.from, state.Status, "receiver must not be mutated")
		})
	}
}

func TestBatchStateURLBookkeeping(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := domain.NewBatchState("batch-1", "provider-1", started, time.Hour)
	state = state.WithPendingURLs([]string{"a", "b", "c"})

	state = state.WithURLProcessed("a", false)
	state = state.WithURLProcessed("b", true)
	state = state.WithURLFailed("c")

	assert.Empty(t, state.PendingURLs)
	assert.Equal(t, []string{"a", "b"}, state.ProcessedURLs)
	assert.Equal(t, []string{"c"}, state.FailedURLs)
	assert.Equal(t, 1, state.Processed)
	assert.Equal(t, 1, state.Skipped)
	assert.Equal(t, 1, state.Failed)
}

func TestWithPendingURLsFiltersSeenURLs(t *testing.T) {
	t.Parallel()

	state := domain.BatchState{
		ProcessedURLs: []string{"a"},
		FailedURLs:    []string{"b"},
	}

	state = state.WithPendingURLs([]string{"a", "b", "c", "d"})

	assert.Equal(t, []string{"c", "d"}, state.PendingURLs,
		"URLs already processed or failed must not re-enter pending")
}

func TestDeadline(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := domain.NewBatchState("batch-1", "provider-1", started, 30*time.Minute)

	assert.Equal(t, started.Add(30*time.Minute), state.Deadline)
	assert.False(t, state.DeadlineExceeded(started.Add(29*time.Minute)))
	assert.True(t, state.DeadlineExceeded(started.Add(30*time.Minute)))
	assert.True(t, state.DeadlineExceeded(started.Add(time.Hour)))
}

func TestWithCompletedAndFailed(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(10 * time.Minute)

	state := domain.NewBatchState("batch-1", "provider-1", started, time.Hour)
	state = state.WithPendingURLs([]string{"a"})

	completed, err := state.WithCompleted(finished, true)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCompleted, completed.Status)
	assert.True(t, completed.Partial)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, finished, *completed.CompletedAt)

	failed, err := state.WithFailed(finished, "boom")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusFailed, failed.Status)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, "boom", *failed.LastError)

	_, err = completed.WithFailed(finished, "boom")
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := domain.NewBatchState("batch-1", "provider-1", started, time.Hour)
	state = state.WithPendingURLs([]string{"a", "b"})
	state = state.WithURLProcessed("a", false)

	snapshot := state.Snapshot()

	assert.Equal(t, "batch-1", snapshot.BatchID)
	assert.Equal(t, "provider-1", snapshot.ProviderID)
	assert.Equal(t, 1, snapshot.Processed)
	assert.Equal(t, 1, snapshot.PendingCount)
	assert.Equal(t, started, snapshot.StartedAt)
}

func TestStatusBefore(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.BatchStatusDiscovering.Before(domain.BatchStatusFingerprinting))
	assert.True(t, domain.BatchStatusFingerprinting.Before(domain.BatchStatusPersisting))
	assert.False(t, domain.BatchStatusProcessing.Before(domain.BatchStatusProcessing))
	assert.False(t, domain.BatchStatusPersisting.Before(domain.BatchStatusFingerprinting))
}
