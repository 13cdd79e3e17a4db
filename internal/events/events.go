package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types published by the schedule and blocked-date services.
const (
	WorkingRuleCreated     = "working_rule.created"
	WorkingRuleUpdated     = "working_rule.updated"
	WorkingRuleDeleted     = "working_rule.deleted"
	WorkingDayCleared      = "working_day.cleared"
	BlockedIntervalCreated = "blocked_interval.created"
	BlockedIntervalUpdated = "blocked_interval.updated"
	BlockedIntervalDeleted = "blocked_interval.deleted"
	BlockedRangeCreated    = "blocked_range.created"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string          `json:"type"`
	ChefID    int64           `json:"chef_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Handler reacts to an event.
type Handler func(ctx context.Context, event Event) error

// Bus provides in-process pub/sub for events. Handlers run synchronously in
// subscription order; a failing handler is logged and does not stop the others.
type Bus struct {
	subscribers map[string][]Handler
	wildcard    []Handler
	mu          sync.RWMutex
	logger      zerolog.Logger
	now         func() time.Time
}

func NewBus(logger *zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]Handler),
		logger:      logger.With().Str("component", "events").Logger(),
		now:         time.Now,
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = b.now()
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().Err(err).Str("type", event.Type).Int64("chef_id", event.ChefID).Msg("Event handler failed")
		}
	}
}

// PublishJSON marshals payload and publishes it as eventType.
func (b *Bus) PublishJSON(ctx context.Context, eventType string, chefID int64, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	b.Publish(ctx, Event{Type: eventType, ChefID: chefID, Payload: data})
	return nil
}

// AuditLogger returns a handler that writes every event to logger.
func AuditLogger(logger *zerolog.Logger) Handler {
	l := logger.With().Str("component", "audit").Logger()
	return func(_ context.Context, e Event) error {
		payload := e.Payload
		if len(payload) == 0 {
			payload = json.RawMessage("null")
		}
		l.Info().
			Str("type", e.Type).
			Int64("chef_id", e.ChefID).
			RawJSON("payload", payload).
			Time("at", e.CreatedAt).
			Msg("Schedule changed")
		return nil
	}
}
