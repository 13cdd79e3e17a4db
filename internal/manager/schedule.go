package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chefslot/internal/config"
	"chefslot/internal/events"
	"chefslot/internal/interval"
	"chefslot/internal/model"
)

const entityWorkingRule = "working_rule"

// ScheduleStore is the persistence ScheduleService needs.
type ScheduleStore interface {
	TxRunner
	GetChef(ctx context.Context, id int64) (*model.Chef, error)
	ListWorkingRules(ctx context.Context, chefID int64, dayOfWeek int) ([]model.WorkingRule, error)
	ListChefWorkingRules(ctx context.Context, chefID int64) ([]model.WorkingRule, error)
	GetWorkingRule(ctx context.Context, chefID, id int64) (*model.WorkingRule, error)
	CreateWorkingRule(ctx context.Context, r *model.WorkingRule) error
	UpdateWorkingRule(ctx context.Context, r *model.WorkingRule) error
	SoftDeleteWorkingRule(ctx context.Context, chefID, id int64) error
	SoftDeleteWorkingRulesForDay(ctx context.Context, chefID int64, dayOfWeek int) (int64, error)
}

// RuleInput is a requested working rule.
type RuleInput struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ScheduleService manages the recurring weekly working rules of chefs.
type ScheduleService struct {
	store   ScheduleStore
	checker ConflictChecker
	events  Publisher
	rules   config.Rules
	bounds  bounds
	logger  zerolog.Logger
}

func NewScheduleService(store ScheduleStore, checker ConflictChecker, publisher Publisher, rules config.Rules, logger *zerolog.Logger) (*ScheduleService, error) {
	b, err := newBounds(rules.WorkStart, rules.WorkEnd)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ScheduleService{
		store:   store,
		checker: checker,
		events:  publisher,
		rules:   rules,
		bounds:  b,
		logger:  logger.With().Str("component", "schedule").Logger(),
	}, nil
}

// ListRules returns the chef's active rules ordered by day and start.
func (s *ScheduleService) ListRules(ctx context.Context, chefID int64) ([]model.WorkingRule, error) {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return nil, err
	}
	return s.store.ListChefWorkingRules(ctx, chefID)
}

// Create adds a working rule. New availability cannot invalidate bookings, so
// only the shape and the sibling rules are checked.
func (s *ScheduleService) Create(ctx context.Context, chefID int64, in RuleInput) (*model.WorkingRule, error) {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return nil, rejected(entityWorkingRule, err)
	}
	window, err := s.validate(in)
	if err != nil {
		return nil, rejected(entityWorkingRule, err)
	}

	rule := &model.WorkingRule{
		ChefID:    chefID,
		DayOfWeek: in.DayOfWeek,
		StartTime: window.startClock(),
		EndTime:   window.endClock(),
	}
	check := func(ctx context.Context) error {
		return s.checkSiblings(ctx, chefID, in.DayOfWeek, window, 0)
	}
	write := func(ctx context.Context) error {
		return s.store.CreateWorkingRule(ctx, rule)
	}
	if err := guarded(ctx, s.store, check, write); err != nil {
		return nil, rejected(entityWorkingRule, err)
	}

	s.logger.Info().Int64("chef_id", chefID).Int64("rule_id", rule.ID).Int("day", rule.DayOfWeek).
		Str("start", rule.StartTime).Str("end", rule.EndTime).Msg("Working rule created")
	publish(ctx, s.events, s.logger, events.WorkingRuleCreated, chefID, rule)
	return rule, nil
}

// Update replaces a rule's day and window. The portions of the old window that the
// new one no longer covers must not hold any booking within the lookahead.
func (s *ScheduleService) Update(ctx context.Context, chefID, ruleID int64, in RuleInput) (*model.WorkingRule, error) {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return nil, rejected(entityWorkingRule, err)
	}
	window, err := s.validate(in)
	if err != nil {
		return nil, rejected(entityWorkingRule, err)
	}

	var updated *model.WorkingRule
	check := func(ctx context.Context) error {
		current, err := s.store.GetWorkingRule(ctx, chefID, ruleID)
		if err != nil {
			return err
		}
		if err := s.checkSiblings(ctx, chefID, in.DayOfWeek, window, ruleID); err != nil {
			return err
		}
		if err := s.guardRemoved(ctx, current, in.DayOfWeek, window); err != nil {
			return err
		}
		next := *current
		next.DayOfWeek = in.DayOfWeek
		next.StartTime = window.startClock()
		next.EndTime = window.endClock()
		updated = &next
		return nil
	}
	write := func(ctx context.Context) error {
		return s.store.UpdateWorkingRule(ctx, updated)
	}
	if err := guarded(ctx, s.store, check, write); err != nil {
		return nil, rejected(entityWorkingRule, err)
	}

	s.logger.Info().Int64("chef_id", chefID).Int64("rule_id", ruleID).Int("day", updated.DayOfWeek).
		Str("start", updated.StartTime).Str("end", updated.EndTime).Msg("Working rule updated")
	publish(ctx, s.events, s.logger, events.WorkingRuleUpdated, chefID, updated)
	return updated, nil
}

// Delete soft-deletes a rule unless a booking within the lookahead falls inside it.
func (s *ScheduleService) Delete(ctx context.Context, chefID, ruleID int64) error {
	if _, err := s.store.GetChef(ctx, chefID); err != nil {
		return rejected(entityWorkingRule, err)
	}

	var deleted *model.WorkingRule
	check := func(ctx context.Context) error {
		current, err := s.store.GetWorkingRule(ctx, chefID, ruleID)
		if err != nil {
			return err
		}
		conflict, err := s.checker.HasConflictOnDayOfWeek(ctx, chefID, current.DayOfWeek, current.StartTime, current.EndTime, s.rules.LookaheadDays)
		if err != nil {
			return err
		}
		if conflict {
			return conflictErr("rule %d %s-%s on day %d has upcoming bookings", ruleID, current.StartTime, current.EndTime, current.DayOfWeek)
		}
		deleted = current
		return nil
	}
	write := func(ctx context.Context) error {
		return s.store.SoftDeleteWorkingRule(ctx, chefID, ruleID)
	}
	if err := guarded(ctx, s.store, check, write); err != nil {
		return rejected(entityWorkingRule, err)
	}

	s.logger.Info().Int64("chef_id", chefID).Int64("rule_id", ruleID).Msg("Working rule deleted")
	publish(ctx, s.events, s.logger, events.WorkingRuleDeleted, chefID, deleted)
	return nil
}

// DeleteDay soft-deletes every rule of a day of week, refusing if any active
// booking from today onward falls on that day.
func (s *ScheduleService) DeleteDay(ctx context.Context, chefID int64, dayOfWeek int) (int64, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return 0, rejected(entityWorkingRule, model.Invalidf("day of week must be 0-6, got %d", dayOfWeek))
	}

	var removed int64
	check := func(ctx context.Context) error {
		busy, err := s.checker.HasActiveBookingsForDayOfWeek(ctx, chefID, dayOfWeek)
		if err != nil {
			return err
		}
		if busy {
			return conflictErr("day %d has active bookings", dayOfWeek)
		}
		return nil
	}
	write := func(ctx context.Context) error {
		n, err := s.store.SoftDeleteWorkingRulesForDay(ctx, chefID, dayOfWeek)
		removed = n
		return err
	}
	if err := guarded(ctx, s.store, check, write); err != nil {
		return 0, rejected(entityWorkingRule, err)
	}

	s.logger.Info().Int64("chef_id", chefID).Int("day", dayOfWeek).Int64("removed", removed).Msg("Working day cleared")
	publish(ctx, s.events, s.logger, events.WorkingDayCleared, chefID, map[string]any{
		"day_of_week": dayOfWeek,
		"removed":     removed,
	})
	return removed, nil
}

func (s *ScheduleService) validate(in RuleInput) (clockRange, error) {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return clockRange{}, model.Invalidf("day of week must be 0-6, got %d", in.DayOfWeek)
	}
	window, err := parseRange(in.StartTime, in.EndTime)
	if err != nil {
		return clockRange{}, err
	}
	if time.Duration(window.minutes())*time.Minute < s.rules.MinSession {
		return clockRange{}, model.Invalidf("session must be at least %d minutes", int(s.rules.MinSession.Minutes()))
	}
	if err := s.bounds.check(window); err != nil {
		return clockRange{}, err
	}
	return window, nil
}

// checkSiblings enforces the per-day session cap, no overlap and the minimum gap
// against the other active rules of that day.
func (s *ScheduleService) checkSiblings(ctx context.Context, chefID int64, dayOfWeek int, window clockRange, excludeID int64) error {
	existing, err := s.store.ListWorkingRules(ctx, chefID, dayOfWeek)
	if err != nil {
		return fmt.Errorf("load working rules: %w", err)
	}

	gap := int(s.rules.MinGap.Minutes())
	others := 0
	for _, r := range existing {
		if r.ID == excludeID {
			continue
		}
		others++

		other, err := parseRange(r.StartTime, r.EndTime)
		if err != nil {
			return fmt.Errorf("stored rule %d: %w", r.ID, err)
		}
		if window.start < other.end && other.start < window.end {
			return model.Invalidf("overlaps rule %d (%s-%s)", r.ID, r.StartTime, r.EndTime)
		}
		if window.start < other.end+gap && other.start < window.end+gap {
			return model.Invalidf("must be at least %d minutes apart from rule %d (%s-%s)", gap, r.ID, r.StartTime, r.EndTime)
		}
	}
	if others >= s.rules.MaxSessionsPerDay {
		return model.Invalidf("at most %d sessions per day", s.rules.MaxSessionsPerDay)
	}
	return nil
}

// guardRemoved checks the availability an update takes away: the whole old window
// when the day changes, otherwise the old window minus the new one.
func (s *ScheduleService) guardRemoved(ctx context.Context, current *model.WorkingRule, newDay int, window clockRange) error {
	old, err := parseRange(current.StartTime, current.EndTime)
	if err != nil {
		return fmt.Errorf("stored rule %d: %w", current.ID, err)
	}

	ref := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	oldIv := interval.Interval{Start: ref.Add(time.Duration(old.start) * time.Minute), End: ref.Add(time.Duration(old.end) * time.Minute)}
	removed := []interval.Interval{oldIv}
	if newDay == current.DayOfWeek {
		newIv := interval.Interval{Start: ref.Add(time.Duration(window.start) * time.Minute), End: ref.Add(time.Duration(window.end) * time.Minute)}
		removed = interval.Subtract(removed, []interval.Interval{newIv})
	}

	for _, piece := range removed {
		start, end := piece.Start.Format("15:04"), piece.End.Format("15:04")
		conflict, err := s.checker.HasConflictOnDayOfWeek(ctx, current.ChefID, current.DayOfWeek, start, end, s.rules.LookaheadDays)
		if err != nil {
			return err
		}
		if conflict {
			return conflictErr("removing %s-%s on day %d would invalidate upcoming bookings", start, end, current.DayOfWeek)
		}
	}
	return nil
}
