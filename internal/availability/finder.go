// Package availability computes the open booking windows of a chef for one or
// more dates, expressed in the customer's time zone.
package availability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chefslot/internal/interval"
	"chefslot/internal/metrics"
	"chefslot/internal/model"
)

// Store is the read side of the chef aggregate used by slot search.
type Store interface {
	GetChef(ctx context.Context, id int64) (*model.Chef, error)
	ListWorkingRules(ctx context.Context, chefID int64, dayOfWeek int) ([]model.WorkingRule, error)
	ListBlockedIntervals(ctx context.Context, chefID int64, date time.Time) ([]model.BlockedInterval, error)
}

// BookingWindows yields the merged busy windows of active bookings on a date.
type BookingWindows interface {
	BusyWindows(ctx context.Context, chefID int64, date time.Time, loc *time.Location) ([]interval.Interval, error)
}

type TimeConverter interface {
	ResolveTimezone(ctx context.Context, location string) (string, error)
	ConvertBetweenTimezones(t time.Time, fromZone, toZone string) (time.Time, error)
}

type TravelEstimator interface {
	EstimateTravel(ctx context.Context, from, to string) (model.TravelEstimate, error)
}

type CookingEstimator interface {
	EstimateCookingTimeForMenu(ctx context.Context, menuID int64, guestCount int) (float64, error)
	EstimateCookingTimeForDishes(ctx context.Context, dishIDs []int64, guestCount int) (float64, error)
	EstimateMaxCookingTime(ctx context.Context, chefID int64, maxDishesPerMeal, guestCount int) (float64, error)
}

// Estimators groups the external collaborators of the finder.
type Estimators struct {
	Timezone TimeConverter
	Travel   TravelEstimator
	Cooking  CookingEstimator
}

type Finder struct {
	store     Store
	bookings  BookingWindows
	est       Estimators
	minNotice time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewFinder(store Store, bookings BookingWindows, est Estimators, minNotice time.Duration, logger *zerolog.Logger) *Finder {
	return &Finder{
		store:     store,
		bookings:  bookings,
		est:       est,
		minNotice: minNotice,
		logger:    logger.With().Str("component", "availability").Logger(),
		now:       time.Now,
	}
}

type dateQuery struct {
	date      time.Time
	source    model.DurationSource
	location  string
	guests    int
	maxDishes int
}

// FindSlots returns the open windows of a chef on date. A day without working
// rules yields an empty list, not an error.
func (f *Finder) FindSlots(
	ctx context.Context,
	chefID int64,
	date time.Time,
	customerLocation string,
	source model.DurationSource,
	guestCount int,
	maxDishesPerMeal int,
) ([]model.TimeSlot, error) {
	chef, err := f.store.GetChef(ctx, chefID)
	if err != nil {
		metrics.IncSlotSearch("error")
		return nil, err
	}
	if err := validateRequest(customerLocation, guestCount); err != nil {
		metrics.IncSlotSearch("error")
		return nil, err
	}
	if !chef.IsActive {
		f.logger.Debug().Int64("chef_id", chef.ID).Msg("Chef is inactive, no slots")
		recordSearch(nil, nil)
		return []model.TimeSlot{}, nil
	}

	now := f.now()
	slots, err := f.findForDate(ctx, chef, dateQuery{
		date:      date,
		source:    source,
		location:  customerLocation,
		guests:    guestCount,
		maxDishes: maxDishesPerMeal,
	}, now)
	recordSearch(slots, err)
	return slots, err
}

// FindSlotsAcrossDates runs the single-date search for every requested date in
// order. A failing date does not stop the others; failures are returned joined
// alongside the slots of the dates that succeeded.
func (f *Finder) FindSlotsAcrossDates(ctx context.Context, req model.SlotRequest) ([]model.TimeSlot, error) {
	chef, err := f.store.GetChef(ctx, req.ChefID)
	if err != nil {
		metrics.IncSlotSearch("error")
		return nil, err
	}
	if len(req.Dates) == 0 {
		metrics.IncSlotSearch("error")
		return nil, model.Invalidf("at least one date is required")
	}
	if err := validateRequest(req.CustomerLocation, req.GuestCount); err != nil {
		metrics.IncSlotSearch("error")
		return nil, err
	}
	if !chef.IsActive {
		f.logger.Debug().Int64("chef_id", chef.ID).Msg("Chef is inactive, no slots")
		recordSearch(nil, nil)
		return []model.TimeSlot{}, nil
	}

	now := f.now()
	result := []model.TimeSlot{}
	var errs []error
	for _, d := range req.Dates {
		slots, err := f.findForDate(ctx, chef, dateQuery{
			date:      d.Date,
			source:    d.Source,
			location:  req.CustomerLocation,
			guests:    req.GuestCount,
			maxDishes: req.MaxDishesPerMeal,
		}, now)
		recordSearch(slots, err)
		if err != nil {
			f.logger.Warn().Err(err).
				Int64("chef_id", chef.ID).
				Str("date", d.Date.Format(model.DateLayout)).
				Msg("Slot search failed for date")
			errs = append(errs, fmt.Errorf("date %s: %w", d.Date.Format(model.DateLayout), err))
			continue
		}
		result = append(result, slots...)
	}
	return result, errors.Join(errs...)
}

func (f *Finder) findForDate(ctx context.Context, chef *model.Chef, q dateQuery, now time.Time) ([]model.TimeSlot, error) {
	// Chef-local wall clocks are kept floating in UTC until the output stage.
	day := model.DateOnly(q.date)
	dateStr := day.Format(model.DateLayout)

	rules, err := f.store.ListWorkingRules(ctx, chef.ID, int(day.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("load working rules: %w", err)
	}
	working, err := interval.ExpandWorkingRules(rules, day)
	if err != nil {
		return nil, err
	}
	if len(working) == 0 {
		return []model.TimeSlot{}, nil
	}

	busy, err := f.blockedWindows(ctx, chef.ID, day)
	if err != nil {
		return nil, err
	}
	booked, err := f.bookings.BusyWindows(ctx, chef.ID, day, time.UTC)
	if err != nil {
		return nil, err
	}
	busy = append(busy, booked...)

	free := interval.Subtract(working, busy)
	if len(free) == 0 {
		return []model.TimeSlot{}, nil
	}

	travel, err := f.est.Travel.EstimateTravel(ctx, chef.Address, q.location)
	if err != nil {
		return nil, err
	}
	cookingHours, err := f.cookingHours(ctx, chef, q)
	if err != nil {
		return nil, err
	}
	travelMin := ceilMinutes(travel.DurationHours)
	cookMin := ceilMinutes(cookingHours)
	required := time.Duration(travelMin+cookMin) * time.Minute

	candidates := interval.FilterByMinDuration(free, required)
	if len(candidates) == 0 {
		return []model.TimeSlot{}, nil
	}

	chefZone, err := f.est.Timezone.ResolveTimezone(ctx, chef.Address)
	if err != nil {
		return nil, err
	}
	customerZone, err := f.est.Timezone.ResolveTimezone(ctx, q.location)
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(f.minNotice).UTC()
	localCutoff, err := f.chefCutoff(cutoff, chefZone)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("cooking %d min, travel %d min", cookMin, travelMin)
	slots := make([]model.TimeSlot, 0, len(candidates))
	for _, c := range candidates {
		startUTC, err := f.est.Timezone.ConvertBetweenTimezones(c.Start, chefZone, "UTC")
		if err != nil {
			return nil, err
		}
		// Windows straddling the notice cutoff keep their part after it.
		if startUTC.Before(cutoff) {
			c.Start = localCutoff
			if c.Duration() < required {
				continue
			}
		}

		start, err := f.est.Timezone.ConvertBetweenTimezones(c.Start, chefZone, customerZone)
		if err != nil {
			return nil, err
		}
		end, err := f.est.Timezone.ConvertBetweenTimezones(c.End, chefZone, customerZone)
		if err != nil {
			return nil, err
		}

		slots = append(slots, model.TimeSlot{
			Date:            dateStr,
			Start:           model.ZonedTime{Wall: start, Zone: customerZone},
			End:             model.ZonedTime{Wall: end, Zone: customerZone},
			DurationMinutes: int(c.Duration() / time.Minute),
			Note:            note,
		})
	}

	f.logger.Debug().
		Int64("chef_id", chef.ID).
		Str("date", dateStr).
		Str("source", q.source.String()).
		Int("required_min", travelMin+cookMin).
		Int("free", len(free)).
		Int("slots", len(slots)).
		Msg("Slots computed")
	return slots, nil
}

// chefCutoff expresses the notice cutoff as a floating chef-local wall clock,
// rounded up to the next whole minute.
func (f *Finder) chefCutoff(cutoff time.Time, chefZone string) (time.Time, error) {
	if rounded := cutoff.Truncate(time.Minute); rounded.Before(cutoff) {
		cutoff = rounded.Add(time.Minute)
	}
	local, err := f.est.Timezone.ConvertBetweenTimezones(cutoff, "UTC", chefZone)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, time.UTC), nil
}

func (f *Finder) blockedWindows(ctx context.Context, chefID int64, day time.Time) ([]interval.Interval, error) {
	blocked, err := f.store.ListBlockedIntervals(ctx, chefID, day)
	if err != nil {
		return nil, fmt.Errorf("load blocked intervals: %w", err)
	}
	windows := make([]interval.Interval, 0, len(blocked))
	for _, b := range blocked {
		start, err := interval.OnDate(day, b.StartTime)
		if err != nil {
			return nil, fmt.Errorf("blocked interval %d start: %w", b.ID, err)
		}
		end, err := interval.OnDate(day, b.EndTime)
		if err != nil {
			return nil, fmt.Errorf("blocked interval %d end: %w", b.ID, err)
		}
		windows = append(windows, interval.Interval{Start: start, End: end})
	}
	return windows, nil
}

func (f *Finder) cookingHours(ctx context.Context, chef *model.Chef, q dateQuery) (float64, error) {
	switch q.source.Kind() {
	case model.SourceMenu:
		return f.est.Cooking.EstimateCookingTimeForMenu(ctx, q.source.MenuID(), q.guests)
	case model.SourceDishes:
		return f.est.Cooking.EstimateCookingTimeForDishes(ctx, q.source.DishIDs(), q.guests)
	default:
		maxDishes := q.maxDishes
		if maxDishes <= 0 {
			maxDishes = chef.MaxDishesPerMeal
		}
		if maxDishes <= 0 {
			return 0, model.Invalidf("max dishes per meal must be positive")
		}
		return f.est.Cooking.EstimateMaxCookingTime(ctx, chef.ID, maxDishes, q.guests)
	}
}

func validateRequest(location string, guestCount int) error {
	if strings.TrimSpace(location) == "" {
		return model.Invalidf("customer location is required")
	}
	if guestCount < 1 {
		return model.Invalidf("guest count must be at least 1, got %d", guestCount)
	}
	return nil
}

// ceilMinutes rounds hours up to whole minutes, tolerating float noise such as 0.25*60.
func ceilMinutes(hours float64) int {
	return int(math.Ceil(hours*60 - 1e-9))
}

func recordSearch(slots []model.TimeSlot, err error) {
	switch {
	case err != nil:
		metrics.IncSlotSearch("error")
	case len(slots) == 0:
		metrics.IncSlotSearch("empty")
		metrics.ObserveSlotsReturned(0)
	default:
		metrics.IncSlotSearch("ok")
		metrics.ObserveSlotsReturned(len(slots))
	}
}
