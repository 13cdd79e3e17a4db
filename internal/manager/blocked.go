package manager

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chefslot/internal/config"
	"chefslot/internal/events"
	"chefslot/internal/model"
)

const entityBlockedInterval = "blocked_interval"

// BlockedStore is the persistence BlockedDateService needs.
type BlockedStore interface {
	TxRunner
	GetChef(ctx context.Context, id int64) (*model.Chef, error)
	ListBlockedIntervalsInRange(ctx context.Context, chefID int64, from, to time.Time) ([]model.BlockedInterval, error)
	GetBlockedInterval(ctx context.Context, chefID, id int64) (*model.BlockedInterval, error)
	CreateBlockedInterval(ctx context.Context, b *model.BlockedInterval) error
	UpdateBlockedInterval(ctx context.Context, b *model.BlockedInterval) error
	SoftDeleteBlockedInterval(ctx context.Context, chefID, id int64) error
}

// BlockInput is a requested blocked interval on one date.
type BlockInput struct {
	Date      time.Time
	StartTime string
	EndTime   string
	Reason    string
}

// RangeInput blocks the same window on every date from From through To.
type RangeInput struct {
	From      time.Time
	To        time.Time
	StartTime string
	EndTime   string
	Reason    string
}

// BlockedDateService manages one-off blocked intervals of chefs.
type BlockedDateService struct {
	store   BlockedStore
	checker ConflictChecker
	events  Publisher
	rules   config.Rules
	bounds  bounds
	logger  zerolog.Logger
}

func NewBlockedDateService(store BlockedStore, checker ConflictChecker, publisher Publisher, rules config.Rules, logger *zerolog.Logger) (*BlockedDateService, error) {
	b, err := newBounds(rules.WorkStart, rules.WorkEnd)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &BlockedDateService{
		store:   store,
		checker: checker,
		events:  publisher,
		rules:   rules,
		bounds:  b,
		logger:  logger.With().Str("component", "blocked_dates").Logger(),
	}, nil
}

// ListBlocked returns active blocked intervals with from <= date <= to.
func (s *BlockedDateService) ListBlocked(ctx context.Context, chefID int64, from, to time.Time) ([]model.BlockedInterval, error) {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return nil, err
	}
	from, to = model.DateOnly(from), model.DateOnly(to)
	if to.Before(from) {
		return nil, model.Invalidf("from date must not be after to date")
	}
	return s.store.ListBlockedIntervalsInRange(ctx, chefID, from, to)
}

// Create blocks a window on one date unless it overlaps an active booking.
func (s *BlockedDateService) Create(ctx context.Context, chefID int64, in BlockInput) (*model.BlockedInterval, error) {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}
	window, err := s.validate(in.StartTime, in.EndTime)
	if err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}

	block := &model.BlockedInterval{
		ChefID:    chefID,
		Date:      model.DateOnly(in.Date),
		StartTime: window.startClock(),
		EndTime:   window.endClock(),
		Reason:    strings.TrimSpace(in.Reason),
	}
	check := func(ctx context.Context) error {
		return s.checkDate(ctx, chefID, block.Date, window)
	}
	write := func(ctx context.Context) error {
		return s.store.CreateBlockedInterval(ctx, block)
	}
	if err := guarded(ctx, s.store, check, write); err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}

	s.logger.Info().Int64("chef_id", chefID).Int64("block_id", block.ID).
		Str("date", block.Date.Format(model.DateLayout)).Str("start", block.StartTime).Str("end", block.EndTime).
		Msg("Blocked interval created")
	publish(ctx, s.events, s.logger, events.BlockedIntervalCreated, chefID, block)
	return block, nil
}

// Update moves or resizes a blocked interval. The new window is checked against
// bookings on its (possibly new) date.
func (s *BlockedDateService) Update(ctx context.Context, chefID, blockID int64, in BlockInput) (*model.BlockedInterval, error) {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}
	window, err := s.validate(in.StartTime, in.EndTime)
	if err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}

	var updated *model.BlockedInterval
	date := model.DateOnly(in.Date)
	check := func(ctx context.Context) error {
		current, err := s.store.GetBlockedInterval(ctx, chefID, blockID)
		if err != nil {
			return err
		}
		if err := s.checkDate(ctx, chefID, date, window); err != nil {
			return err
		}
		next := *current
		next.Date = date
		next.StartTime = window.startClock()
		next.EndTime = window.endClock()
		next.Reason = strings.TrimSpace(in.Reason)
		updated = &next
		return nil
	}
	write := func(ctx context.Context) error {
		return s.store.UpdateBlockedInterval(ctx, updated)
	}
	if err := guarded(ctx, s.store, check, write); err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}

	s.logger.Info().Int64("chef_id", chefID).Int64("block_id", blockID).Msg("Blocked interval updated")
	publish(ctx, s.events, s.logger, events.BlockedIntervalUpdated, chefID, updated)
	return updated, nil
}

// Delete soft-deletes a blocked interval after the same booking check on its date.
func (s *BlockedDateService) Delete(ctx context.Context, chefID, blockID int64) error {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return rejected(entityBlockedInterval, err)
	}

	var deleted *model.BlockedInterval
	check := func(ctx context.Context) error {
		current, err := s.store.GetBlockedInterval(ctx, chefID, blockID)
		if err != nil {
			return err
		}
		window, err := parseRange(current.StartTime, current.EndTime)
		if err != nil {
			return err
		}
		if err := s.checkDate(ctx, chefID, current.Date, window); err != nil {
			return err
		}
		deleted = current
		return nil
	}
	write := func(ctx context.Context) error {
		return s.store.SoftDeleteBlockedInterval(ctx, chefID, blockID)
	}
	if err := guarded(ctx, s.store, check, write); err != nil {
		return rejected(entityBlockedInterval, err)
	}

	s.logger.Info().Int64("chef_id", chefID).Int64("block_id", blockID).Msg("Blocked interval deleted")
	publish(ctx, s.events, s.logger, events.BlockedIntervalDeleted, chefID, deleted)
	return nil
}

// CreateRange blocks the window on every date of the range. It is all-or-nothing:
// one conflicting date rejects the whole range and nothing is written.
func (s *BlockedDateService) CreateRange(ctx context.Context, chefID int64, in RangeInput) ([]model.BlockedInterval, error) {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}
	from, to := model.DateOnly(in.From), model.DateOnly(in.To)
	if to.Before(from) {
		return nil, rejected(entityBlockedInterval, model.Invalidf("start date must not be after end date"))
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > s.rules.MaxRangeDays {
		return nil, rejected(entityBlockedInterval, model.Invalidf("range spans %d days, at most %d allowed", days, s.rules.MaxRangeDays))
	}
	window, err := s.validate(in.StartTime, in.EndTime)
	if err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}

	dates := make([]time.Time, 0, days)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	check := func(ctx context.Context) error {
		var conflicting []string
		for _, d := range dates {
			conflict, err := s.checker.HasConflict(ctx, chefID, d, window.startClock(), window.endClock())
			if err != nil {
				return err
			}
			if conflict {
				conflicting = append(conflicting, d.Format(model.DateLayout))
			}
		}
		if len(conflicting) > 0 {
			return conflictErr("bookings on %s", strings.Join(conflicting, ", "))
		}
		return nil
	}

	created := make([]model.BlockedInterval, 0, len(dates))
	write := func(ctx context.Context) error {
		created = created[:0]
		for _, d := range dates {
			b := model.BlockedInterval{
				ChefID:    chefID,
				Date:      d,
				StartTime: window.startClock(),
				EndTime:   window.endClock(),
				Reason:    strings.TrimSpace(in.Reason),
			}
			if err := s.store.CreateBlockedInterval(ctx, &b); err != nil {
				return err
			}
			created = append(created, b)
		}
		return nil
	}
	if err := guarded(ctx, s.store, check, write); err != nil {
		return nil, rejected(entityBlockedInterval, err)
	}

	s.logger.Info().Int64("chef_id", chefID).
		Str("from", from.Format(model.DateLayout)).Str("to", to.Format(model.DateLayout)).
		Int("days", len(created)).Msg("Blocked range created")
	publish(ctx, s.events, s.logger, events.BlockedRangeCreated, chefID, map[string]any{
		"from":       from.Format(model.DateLayout),
		"to":         to.Format(model.DateLayout),
		"start_time": window.startClock(),
		"end_time":   window.endClock(),
		"days":       len(created),
	})
	return created, nil
}

func (s *BlockedDateService) validate(start, end string) (clockRange, error) {
	window, err := parseRange(start, end)
	if err != nil {
		return clockRange{}, err
	}
	if err := s.bounds.check(window); err != nil {
		return clockRange{}, err
	}
	return window, nil
}

func (s *BlockedDateService) checkDate(ctx context.Context, chefID int64, date time.Time, window clockRange) error {
	conflict, err := s.checker.HasConflict(ctx, chefID, date, window.startClock(), window.endClock())
	if err != nil {
		return err
	}
	if conflict {
		return conflictErr("%s %s-%s overlaps a booking", date.Format(model.DateLayout), window.startClock(), window.endClock())
	}
	return nil
}
