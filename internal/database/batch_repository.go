package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/openrecipes/harvester/internal/domain"
)

var (
	// ErrBatchNotFound is returned when no batch exists for the given id.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrConcurrencyConflict is returned when a write carries a stale
	// concurrency token; the caller must reload and retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict: stale batch state")
)

// batchSelectColumns lists columns for SELECT queries on harvest_batches.
const batchSelectColumns = `batch_id, provider_id, status, pending_urls,
	processed_urls, failed_urls, processed, skipped, failed,
	started_at, deadline, completed_at, partial, last_error, concurrency_token`

// batchRow maps a harvest_batches row; URL sets are Postgres text arrays.
type batchRow struct {
	BatchID          string         `db:"batch_id"`
	ProviderID       string         `db:"provider_id"`
	Status           string         `db:"status"`
	PendingURLs      pq.StringArray `db:"pending_urls"`
	ProcessedURLs    pq.StringArray `db:"processed_urls"`
	FailedURLs       pq.StringArray `db:"failed_urls"`
	Processed        int            `db:"processed"`
	Skipped          int            `db:"skipped"`
	Failed           int            `db:"failed"`
	StartedAt        sql.NullTime   `db:"started_at"`
	Deadline         sql.NullTime   `db:"deadline"`
	CompletedAt      sql.NullTime   `db:"completed_at"`
	Partial          bool           `db:"partial"`
	LastError        sql.NullString `db:"last_error"`
	ConcurrencyToken int64          `db:"concurrency_token"`
}

// toDomain converts a row to the domain state.
func (r *batchRow) toDomain() *domain.BatchState {
	state := &domain.BatchState{
		BatchID:          r.BatchID,
		ProviderID:       r.ProviderID,
		Status:           domain.BatchStatus(r.Status),
		PendingURLs:      r.PendingURLs,
		ProcessedURLs:    r.ProcessedURLs,
		FailedURLs:       r.FailedURLs,
		Processed:        r.Processed,
		Skipped:          r.Skipped,
		Failed:           r.Failed,
		Partial:          r.Partial,
		ConcurrencyToken: r.ConcurrencyToken,
	}
	if r.StartedAt.Valid {
		state.StartedAt = r.StartedAt.Time
	}
	if r.Deadline.Valid {
		state.Deadline = r.Deadline.Time
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		state.CompletedAt = &t
	}
	if r.LastError.Valid {
		msg := r.LastError.String
		state.LastError = &msg
	}
	return state
}

// BatchRepository handles database operations for harvest batch state.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new batch repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts the initial state of a new batch.
func (r *BatchRepository) Create(ctx context.Context, state *domain.BatchState) error {
	query := `
		INSERT INTO harvest_batches (
			batch_id, provider_id, status, pending_urls, processed_urls,
			failed_urls, processed, skipped, failed, started_at, deadline,
			partial, concurrency_token
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		state.BatchID,
		state.ProviderID,
		string(state.Status),
		pq.StringArray(state.PendingURLs),
		pq.StringArray(state.ProcessedURLs),
		pq.StringArray(state.FailedURLs),
		state.Processed,
		state.Skipped,
		state.Failed,
		state.StartedAt,
		state.Deadline,
		state.Partial,
		state.ConcurrencyToken,
	)

	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// GetByID retrieves the latest persisted state of a batch.
func (r *BatchRepository) GetByID(ctx context.Context, batchID string) (*domain.BatchState, error) {
	query := `SELECT ` + batchSelectColumns + ` FROM harvest_batches WHERE batch_id = $1`

	var row batchRow
	err := r.db.GetContext(ctx, &row, query, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return row.toDomain(), nil
}

// Update persists a new batch state under the optimistic concurrency
// token the state was loaded with. On success the token on state is
// advanced to match the stored row; a stale token yields
// ErrConcurrencyConflict.
func (r *BatchRepository) Update(ctx context.Context, state *domain.BatchState) error {
	query := `
		UPDATE harvest_batches
		SET status = $1, pending_urls = $2, processed_urls = $3,
		    failed_urls = $4, processed = $5, skipped = $6, failed = $7,
		    completed_at = $8, partial = $9, last_error = $10,
		    concurrency_token = concurrency_token + 1, updated_at = NOW()
		WHERE batch_id = $11 AND concurrency_token = $12
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		string(state.Status),
		pq.StringArray(state.PendingURLs),
		pq.StringArray(state.ProcessedURLs),
		pq.StringArray(state.FailedURLs),
		state.Processed,
		state.Skipped,
		state.Failed,
		state.CompletedAt,
		state.Partial,
		state.LastError,
		state.BatchID,
		state.ConcurrencyToken,
	)

	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}

	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return fmt.Errorf("failed to get rows affected: %w", affectedErr)
	}

	if n == 0 {
		// Distinguish a stale token from a missing batch.
		var exists bool
		checkErr := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM harvest_batches WHERE batch_id = $1)`, state.BatchID)
		if checkErr != nil {
			return fmt.Errorf("failed to check batch existence: %w", checkErr)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrBatchNotFound, state.BatchID)
		}
		return fmt.Errorf("%w: batch %s token %d", ErrConcurrencyConflict, state.BatchID, state.ConcurrencyToken)
	}

	state.ConcurrencyToken++

	return nil
}

// ListRecent returns the most recently started batches.
func (r *BatchRepository) ListRecent(ctx context.Context, limit int) ([]*domain.BatchState, error) {
	query := `SELECT ` + batchSelectColumns + `
		FROM harvest_batches
		ORDER BY started_at DESC
		LIMIT $1`

	var rows []batchRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	states := make([]*domain.BatchState, 0, len(rows))
	for i := range rows {
		states = append(states, rows[i].toDomain())
	}

	return states, nil
}
