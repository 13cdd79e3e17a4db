// Package manager guards and persists mutations of a chef's working rules and
// blocked intervals.
//
// Every mutation runs its conflict check twice: once as an advisory read, and
// again inside the write transaction right before the write.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chefslot/internal/interval"
	"chefslot/internal/metrics"
	"chefslot/internal/model"
)

// ConflictChecker is the booking-conflict query the guards rely on.
type ConflictChecker interface {
	HasConflict(ctx context.Context, chefID int64, date time.Time, start, end string) (bool, error)
	HasConflictOnDayOfWeek(ctx context.Context, chefID int64, dayOfWeek int, start, end string, lookaheadDays int) (bool, error)
	HasActiveBookingsForDayOfWeek(ctx context.Context, chefID int64, dayOfWeek int) (bool, error)
}

// Publisher receives an event after a mutation commits.
type Publisher interface {
	PublishJSON(ctx context.Context, eventType string, chefID int64, payload any) error
}

// TxRunner runs fn in a write transaction; store calls made with the ctx passed
// to fn join it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopPublisher struct{}

func (noopPublisher) PublishJSON(context.Context, string, int64, any) error { return nil }

// guarded runs check, then re-runs it inside a transaction followed by write.
func guarded(ctx context.Context, tx TxRunner, check, write func(ctx context.Context) error) error {
	if err := check(ctx); err != nil {
		return err
	}
	return tx.InTx(ctx, func(ctx context.Context) error {
		if err := check(ctx); err != nil {
			return err
		}
		return write(ctx)
	})
}

func publish(ctx context.Context, p Publisher, logger zerolog.Logger, eventType string, chefID int64, payload any) {
	if err := p.PublishJSON(ctx, eventType, chefID, payload); err != nil {
		logger.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

// rejected records a refused mutation and returns err unchanged.
func rejected(entity string, err error) error {
	reason := "error"
	switch {
	case errors.Is(err, model.ErrBookingConflict):
		reason = "conflict"
	case errors.Is(err, model.ErrInvalidInput):
		reason = "invalid"
	case errors.Is(err, model.ErrNotFound):
		reason = "not_found"
	}
	metrics.IncMutationRejected(entity, reason)
	return err
}

// clockRange is a validated HH:MM range in minutes since midnight.
type clockRange struct {
	start, end int
}

func (r clockRange) startClock() string { return interval.FormatClock(r.start) }
func (r clockRange) endClock() string   { return interval.FormatClock(r.end) }
func (r clockRange) minutes() int       { return r.end - r.start }

func parseRange(start, end string) (clockRange, error) {
	s, err := interval.ParseClock(start)
	if err != nil {
		return clockRange{}, model.Invalidf("start time: %v", err)
	}
	e, err := interval.ParseClock(end)
	if err != nil {
		return clockRange{}, model.Invalidf("end time: %v", err)
	}
	if s >= e {
		return clockRange{}, model.Invalidf("start time %s must be before end time %s", start, end)
	}
	return clockRange{start: s, end: e}, nil
}

// bounds is the allowable working window.
type bounds clockRange

func newBounds(start, end string) (bounds, error) {
	r, err := parseRange(start, end)
	if err != nil {
		return bounds{}, fmt.Errorf("working bounds: %w", err)
	}
	return bounds(r), nil
}

func (b bounds) check(r clockRange) error {
	if r.start < b.start || r.end > b.end {
		return model.Invalidf("times must be within %s-%s", interval.FormatClock(b.start), interval.FormatClock(b.end))
	}
	return nil
}

func conflictErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrBookingConflict, fmt.Sprintf(format, args...))
}
