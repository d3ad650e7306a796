package metrics

import (
	"context"
	"strconv"

	"github.com/openrecipes/harvester/internal/events"
)

// Subscribe wires the collectors to the event bus and returns the
// subscriptions so callers can detach them.
func (m *Metrics) Subscribe(bus *events.Bus) []*events.Subscription {
	return []*events.Subscription{
		bus.Subscribe(events.BatchStartedName, m.onBatchStarted),
		bus.Subscribe(events.BatchCompletedName, m.onBatchCompleted),
		bus.Subscribe(events.BatchFailedName, m.onBatchFailed),
		bus.Subscribe(events.RecipeProcessedName, m.onRecipeProcessed),
		bus.Subscribe(events.RecipeFailedName, m.onRecipeFailed),
		bus.Subscribe(events.IngredientMappingMissingName, m.onMappingMissing),
	}
}

func (m *Metrics) onBatchStarted(_ context.Context, e events.Event) error {
	if ev, ok := e.(events.BatchStarted); ok {
		m.BatchesStarted.WithLabelValues(ev.ProviderID).Inc()
	}
	return nil
}

func (m *Metrics) onBatchCompleted(_ context.Context, e events.Event) error {
	if ev, ok := e.(events.BatchCompleted); ok {
		m.BatchesCompleted.WithLabelValues(ev.ProviderID, strconv.FormatBool(ev.Partial)).Inc()
	}
	return nil
}

func (m *Metrics) onBatchFailed(_ context.Context, e events.Event) error {
	if ev, ok := e.(events.BatchFailed); ok {
		m.BatchesFailed.WithLabelValues(ev.ProviderID, ev.Category).Inc()
	}
	return nil
}

func (m *Metrics) onRecipeProcessed(_ context.Context, e events.Event) error {
	if ev, ok := e.(events.RecipeProcessed); ok {
		m.RecipesProcessed.WithLabelValues(ev.ProviderID).Inc()
	}
	return nil
}

func (m *Metrics) onRecipeFailed(_ context.Context, e events.Event) error {
	if ev, ok := e.(events.RecipeFailed); ok {
		m.RecipesFailed.WithLabelValues(ev.ProviderID, ev.Category).Inc()
	}
	return nil
}

func (m *Metrics) onMappingMissing(_ context.Context, e events.Event) error {
	if ev, ok := e.(events.IngredientMappingMissing); ok {
		m.MappingsMissing.WithLabelValues(ev.ProviderID).Inc()
	}
	return nil
}
