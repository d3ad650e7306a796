// Package saga orchestrates harvest batches as resumable sagas. Every
// state change is persisted under an optimistic concurrency token before
// the pipeline moves on, so a crashed batch can be resumed from exactly
// where it stopped.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openrecipes/harvester/internal/database"
	"github.com/openrecipes/harvester/internal/domain"
	"github.com/openrecipes/harvester/internal/events"
	"github.com/openrecipes/harvester/internal/fingerprint"
	"github.com/openrecipes/harvester/internal/logger"
	"github.com/openrecipes/harvester/internal/providers"
	"github.com/openrecipes/harvester/internal/ratelimit"
	"github.com/openrecipes/harvester/internal/retry"
)

// Params bundles the orchestrator dependencies.
type Params struct {
	Batches      database.BatchStore
	Recipes      database.RecipeStore
	Fingerprints *fingerprint.Service
	Limiter      *ratelimit.Limiter
	Executor     *retry.Executor
	Bus          *events.Bus
	Providers    *providers.Registry
	Discovery    Discovery
	Extractor    Extractor
	Normalizer   IngredientNormalizer
	BaseDelay    time.Duration
	Logger       logger.Logger
}

// Orchestrator drives harvest batches through their lifecycle.
type Orchestrator struct {
	batches      database.BatchStore
	recipes      database.RecipeStore
	fingerprints *fingerprint.Service
	limiter      *ratelimit.Limiter
	executor     *retry.Executor
	bus          *events.Bus
	providers    *providers.Registry
	discovery    Discovery
	extractor    Extractor
	normalizer   IngredientNormalizer
	baseDelay    time.Duration
	log          logger.Logger
	now          func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock injects the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates a batch orchestrator.
func NewOrchestrator(p Params, opts ...Option) *Orchestrator {
	if p.Logger == nil {
		p.Logger = logger.NewNop()
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = retry.DefaultBaseDelay
	}
	o := &Orchestrator{
		batches:      p.Batches,
		recipes:      p.Recipes,
		fingerprints: p.Fingerprints,
		limiter:      p.Limiter,
		executor:     p.Executor,
		bus:          p.Bus,
		providers:    p.Providers,
		discovery:    p.Discovery,
		extractor:    p.Extractor,
		normalizer:   p.Normalizer,
		baseDelay:    p.BaseDelay,
		log:          p.Logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartProcessing creates a new batch for the provider and runs it to a
// terminal status or until ctx is cancelled. The batch id is returned as
// soon as the batch exists, including when execution later fails; per-URL
// failures are recorded in batch state and never surface as errors here.
func (o *Orchestrator) StartProcessing(ctx context.Context, providerID string, batchSize int, window time.Duration) (string, error) {
	provider, err := o.providers.Get(providerID)
	if err != nil {
		return "", err
	}

	batchID := uuid.New().String()
	state := domain.NewBatchState(batchID, providerID, o.now().UTC(), window)
	if err := o.batches.Create(ctx, &state); err != nil {
		return "", fmt.Errorf("failed to create batch: %w", err)
	}

	o.limiter.Configure(provider.ID, ratelimit.PerMinute(provider.MaxRequestsPerMinute, provider.BurstSize))

	o.log.Info("batch started",
		logger.String("batch_id", batchID),
		logger.String("provider_id", providerID),
		logger.Duration("window", window),
	)

	hints, err := o.discover(ctx, &state, provider, batchSize)
	if err != nil {
		return batchID, o.fail(ctx, &state, err)
	}

	o.bus.Publish(ctx, events.BatchStarted{
		Base:       events.NewBase(),
		BatchID:    batchID,
		ProviderID: providerID,
		URLCount:   len(state.PendingURLs),
	})

	return batchID, o.run(ctx, &state, provider, hints)
}

// ResumeProcessing reloads a non-terminal batch and continues it from its
// pending URLs. Resuming a batch that already reached a terminal status is
// a no-op, so schedulers can re-invoke resume without treating finished
// batches as failures. The original deadline still applies; a batch whose
// window has already expired completes immediately as partial.
func (o *Orchestrator) ResumeProcessing(ctx context.Context, batchID string) error {
	state, err := o.batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if state.Status.IsTerminal() {
		o.log.Info("batch already finished; nothing to resume",
			logger.String("batch_id", batchID),
			logger.String("status", string(state.Status)),
		)
		return nil
	}

	provider, err := o.providers.Get(state.ProviderID)
	if err != nil {
		return o.fail(ctx, state, err)
	}

	o.limiter.Configure(provider.ID, ratelimit.PerMinute(provider.MaxRequestsPerMinute, provider.BurstSize))

	o.log.Info("batch resumed",
		logger.String("batch_id", batchID),
		logger.String("provider_id", provider.ID),
		logger.String("status", string(state.Status)),
		logger.Int("pending", len(state.PendingURLs)),
	)

	// A batch interrupted before discovery finished has no pending URLs
	// yet; rerun discovery. Later stages carry on with the persisted set.
	hints := map[string]domain.CandidatePage{}
	if state.Status == domain.BatchStatusDiscovering {
		hints, err = o.discover(ctx, state, provider, 0)
		if err != nil {
			return o.fail(ctx, state, err)
		}
	}

	return o.run(ctx, state, provider, hints)
}

// GetBatchStatus returns the read-only projection of a batch.
func (o *Orchestrator) GetBatchStatus(ctx context.Context, batchID string) (domain.BatchSnapshot, error) {
	state, err := o.batches.GetByID(ctx, batchID)
	if err != nil {
		return domain.BatchSnapshot{}, err
	}
	return state.Snapshot(), nil
}

// ListBatches returns snapshots of the most recently started batches.
func (o *Orchestrator) ListBatches(ctx context.Context, limit int) ([]domain.BatchSnapshot, error) {
	states, err := o.batches.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	snapshots := make([]domain.BatchSnapshot, 0, len(states))
	for _, s := range states {
		snapshots = append(snapshots, s.Snapshot())
	}
	return snapshots, nil
}

// discover runs the provider's discovery under retry, bounds the result to
// batchSize when positive, and checkpoints the pending URL set.
func (o *Orchestrator) discover(ctx context.Context, state *domain.BatchState, provider domain.ProviderConfig, batchSize int) (map[string]domain.CandidatePage, error) {
	var pages []domain.CandidatePage
	err := o.executor.Execute(ctx, o.policyFor(provider), func(ctx context.Context) error {
		found, derr := o.discovery.Discover(ctx, provider)
		if derr != nil {
			return derr
		}
		pages = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover candidate urls: %w", err)
	}

	if batchSize > 0 && len(pages) > batchSize {
		pages = pages[:batchSize]
	}

	urls := make([]string, 0, len(pages))
	hints := make(map[string]domain.CandidatePage, len(pages))
	for _, p := range pages {
		urls = append(urls, p.URL)
		hints[p.URL] = p
	}

	next := state.WithPendingURLs(urls)
	next, err = next.WithStatus(domain.BatchStatusFingerprinting)
	if err != nil {
		return nil, err
	}
	if err := o.persist(ctx, &next); err != nil {
		return nil, err
	}
	*state = next

	o.log.Info("discovery finished",
		logger.String("batch_id", state.BatchID),
		logger.Int("candidates", len(state.PendingURLs)),
	)

	return hints, nil
}

// run drains the pending URL set, checkpointing after every URL. It ends
// the batch as Completed (partial when the window expires first) or Failed
// on a saga-fatal error.
func (o *Orchestrator) run(ctx context.Context, state *domain.BatchState, provider domain.ProviderConfig, hints map[string]domain.CandidatePage) error {
	for len(state.PendingURLs) > 0 {
		if err := ctx.Err(); err != nil {
			o.log.Warn("batch interrupted; resumable from persisted state",
				logger.String("batch_id", state.BatchID),
				logger.Int("pending", len(state.PendingURLs)),
			)
			return err
		}

		if state.DeadlineExceeded(o.now()) {
			return o.complete(ctx, state, true)
		}

		url := state.PendingURLs[0]
		if err := o.processURL(ctx, state, provider, url, hints[url]); err != nil {
			return o.fail(ctx, state, err)
		}
	}

	return o.complete(ctx, state, false)
}

// processURL advances one URL through dedup, extraction, normalization and
// persistence. It returns nil for per-URL outcomes (harvested, duplicate,
// failed URL) and an error only for saga-fatal conditions or cancellation.
func (o *Orchestrator) processURL(ctx context.Context, state *domain.BatchState, provider domain.ProviderConfig, url string, hint domain.CandidatePage) error {
	if err := o.limiter.Wait(ctx, provider.ID); err != nil {
		return err
	}

	if err := o.advance(ctx, state, domain.BatchStatusFingerprinting); err != nil {
		return err
	}

	hash := fingerprint.Generate(url, hint.Title, hint.Description)
	duplicate, err := o.fingerprints.IsDuplicate(ctx, hash)
	if err != nil {
		return fmt.Errorf("failed to check fingerprint: %w", err)
	}
	if duplicate {
		next := state.WithURLProcessed(url, true)
		if err := o.persist(ctx, &next); err != nil {
			return err
		}
		*state = next
		o.log.Info("skipped duplicate recipe",
			logger.String("batch_id", state.BatchID),
			logger.String("url", url),
		)
		return nil
	}

	if err := o.advance(ctx, state, domain.BatchStatusProcessing); err != nil {
		return err
	}

	var extracted *domain.ExtractedRecipe
	extractErr := o.executor.Execute(ctx, o.policyFor(provider), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, provider.RequestTimeout)
		defer cancel()
		result, xerr := o.extractor.Extract(callCtx, provider, url)
		if xerr != nil {
			return xerr
		}
		extracted = result
		return nil
	})
	if extractErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return o.failURL(ctx, state, provider, url, extractErr)
	}

	var mapping map[string]string
	normalizeErr := o.executor.Execute(ctx, o.policyFor(provider), func(ctx context.Context) error {
		resolved, nerr := o.normalizer.Normalize(ctx, provider.ID, extracted.IngredientCodes)
		if nerr != nil {
			return nerr
		}
		mapping = resolved
		return nil
	})
	if normalizeErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return o.failURL(ctx, state, provider, url, normalizeErr)
	}

	ingredients := make([]domain.Ingredient, 0, len(extracted.IngredientCodes))
	for _, code := range extracted.IngredientCodes {
		ing := domain.Ingredient{ProviderCode: code}
		if canonical, ok := mapping[code]; ok && canonical != "" {
			name := canonical
			ing.Canonical = &name
		} else {
			o.bus.Publish(ctx, events.IngredientMappingMissing{
				Base:         events.NewBase(),
				BatchID:      state.BatchID,
				ProviderID:   provider.ID,
				ProviderCode: code,
			})
		}
		ingredients = append(ingredients, ing)
	}

	if err := o.advance(ctx, state, domain.BatchStatusPersisting); err != nil {
		return err
	}

	recipe := &domain.Recipe{
		ID:           recipeID(provider.ID, url),
		ProviderID:   provider.ID,
		SourceURL:    url,
		Title:        extracted.Title,
		Description:  extracted.Description,
		Instructions: extracted.Instructions,
		Ingredients:  ingredients,
	}
	persistErr := o.executor.Execute(ctx, o.policyFor(provider), func(ctx context.Context) error {
		return o.recipes.Upsert(ctx, recipe)
	})
	if persistErr != nil {
		return fmt.Errorf("failed to persist recipe: %w", persistErr)
	}

	if err := o.fingerprints.StoreFingerprint(ctx, hash, provider.ID, url, recipe.ID); err != nil {
		return err
	}

	next := state.WithURLProcessed(url, false)
	if err := o.persist(ctx, &next); err != nil {
		return err
	}
	*state = next

	o.bus.Publish(ctx, events.RecipeProcessed{
		Base:       events.NewBase(),
		BatchID:    state.BatchID,
		ProviderID: provider.ID,
		RecipeID:   recipe.ID,
		RecipeURL:  url,
	})

	return nil
}

// advance moves the batch forward to status, checkpointing the change.
// A batch already at or past status is left alone, which keeps the
// forward-only invariant intact when URLs interleave pipeline stages.
func (o *Orchestrator) advance(ctx context.Context, state *domain.BatchState, status domain.BatchStatus) error {
	if !state.Status.Before(status) {
		return nil
	}
	next, err := state.WithStatus(status)
	if err != nil {
		return err
	}
	if err := o.persist(ctx, &next); err != nil {
		return err
	}
	*state = next
	return nil
}

// complete finishes the batch. partial records that the time window
// expired with URLs still pending.
func (o *Orchestrator) complete(ctx context.Context, state *domain.BatchState, partial bool) error {
	next, err := state.WithCompleted(o.now().UTC(), partial)
	if err != nil {
		return err
	}
	if err := o.persist(ctx, &next); err != nil {
		return err
	}
	*state = next

	o.bus.Publish(ctx, events.BatchCompleted{
		Base:       events.NewBase(),
		BatchID:    state.BatchID,
		ProviderID: state.ProviderID,
		Processed:  state.Processed,
		Skipped:    state.Skipped,
		Failed:     state.Failed,
		Pending:    len(state.PendingURLs),
		Partial:    partial,
	})

	o.log.Info("batch completed",
		logger.String("batch_id", state.BatchID),
		logger.Int("processed", state.Processed),
		logger.Int("skipped", state.Skipped),
		logger.Int("failed", state.Failed),
		logger.Bool("partial", partial),
	)

	return nil
}

// fail records a saga-fatal error and returns the cause. Cancellation and
// concurrency conflicts are passed through without marking the batch: a
// cancelled batch stays resumable, and a conflicted writer holds a stale
// token it must not write with. A conflicted writer backs off instead of
// reloading and retrying the step; the batch belongs to whichever writer
// advanced the token, and it can be resumed once that writer is done.
func (o *Orchestrator) fail(ctx context.Context, state *domain.BatchState, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	if errors.Is(cause, database.ErrConcurrencyConflict) {
		o.log.Error("batch taken over by another writer",
			logger.String("batch_id", state.BatchID),
			logger.Error(cause),
		)
		return cause
	}

	_, category := retry.Classify(cause)

	next, err := state.WithFailed(o.now().UTC(), cause.Error())
	if err != nil {
		o.log.Error("failed to mark batch failed",
			logger.String("batch_id", state.BatchID),
			logger.Error(err),
		)
	} else if persistErr := o.batches.Update(ctx, &next); persistErr != nil {
		o.log.Error("failed to record batch failure",
			logger.String("batch_id", state.BatchID),
			logger.Error(persistErr),
		)
	} else {
		*state = next
	}

	o.bus.Publish(ctx, events.BatchFailed{
		Base:       events.NewBase(),
		BatchID:    state.BatchID,
		ProviderID: state.ProviderID,
		Category:   category,
		Message:    cause.Error(),
	})

	o.log.Error("batch failed",
		logger.String("batch_id", state.BatchID),
		logger.String("category", category),
		logger.Error(cause),
	)

	return cause
}

// failURL records a per-URL failure and keeps the batch running. Only a
// failed checkpoint write escalates to the caller.
func (o *Orchestrator) failURL(ctx context.Context, state *domain.BatchState, provider domain.ProviderConfig, url string, cause error) error {
	category := retry.CategoryUnknown
	var rerr *retry.Error
	if errors.As(cause, &rerr) {
		category = rerr.Category
	}

	next := state.WithURLFailed(url)
	if err := o.persist(ctx, &next); err != nil {
		return err
	}
	*state = next

	o.bus.Publish(ctx, events.RecipeFailed{
		Base:       events.NewBase(),
		BatchID:    state.BatchID,
		ProviderID: provider.ID,
		RecipeURL:  url,
		Category:   category,
		Message:    cause.Error(),
	})

	o.log.Warn("recipe failed",
		logger.String("batch_id", state.BatchID),
		logger.String("url", url),
		logger.String("category", category),
		logger.Error(cause),
	)

	return nil
}

// persist writes the state under its concurrency token.
func (o *Orchestrator) persist(ctx context.Context, state *domain.BatchState) error {
	if err := o.batches.Update(ctx, state); err != nil {
		return fmt.Errorf("failed to checkpoint batch: %w", err)
	}
	return nil
}

// policyFor builds the retry policy for a provider.
func (o *Orchestrator) policyFor(provider domain.ProviderConfig) retry.Policy {
	return retry.Policy{RetryCount: provider.RetryCount, BaseDelay: o.baseDelay}
}

// recipeID derives a stable recipe id from provider and URL so re-running
// a URL after a resume upserts the same row instead of duplicating it.
func recipeID(providerID, url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(providerID+":"+url)).String()
}
