// Package conflict answers whether a candidate window collides with a chef's
// active bookings. Slot search and the schedule mutation guards share it.
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chefslot/internal/interval"
	"chefslot/internal/model"
)

// Store is the read side the checker needs.
type Store interface {
	GetChef(ctx context.Context, id int64) (*model.Chef, error)
	ListActiveBookingDetails(ctx context.Context, chefID int64, date time.Time) ([]model.BookingDetail, error)
	CountActiveBookingsOnWeekday(ctx context.Context, chefID int64, dayOfWeek int, from time.Time) (int, error)
}

type Checker struct {
	store  Store
	rest   time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

func NewChecker(store Store, restBuffer time.Duration, logger *zerolog.Logger) *Checker {
	return &Checker{
		store:  store,
		rest:   restBuffer,
		logger: logger.With().Str("component", "conflict").Logger(),
		now:    time.Now,
	}
}

// BusyWindows returns the merged busy windows of the chef's active bookings on date,
// as wall clocks in loc.
func (c *Checker) BusyWindows(ctx context.Context, chefID int64, date time.Time, loc *time.Location) ([]interval.Interval, error) {
	details, err := c.store.ListActiveBookingDetails(ctx, chefID, model.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	windows := make([]interval.Interval, 0, len(details))
	for _, d := range details {
		if !d.Status.IsActive() {
			continue
		}
		w, err := interval.BookingWindow(d, c.rest, loc)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return interval.Merge(windows), nil
}

// HasConflict reports whether [start, end) on date overlaps an active booking.
// Touching boundaries are not a conflict.
func (c *Checker) HasConflict(ctx context.Context, chefID int64, date time.Time, start, end string) (bool, error) {
	day := model.DateOnly(date)
	candidate, err := window(day, start, end)
	if err != nil {
		return false, err
	}

	busy, err := c.BusyWindows(ctx, chefID, day, time.UTC)
	if err != nil {
		return false, err
	}

	for _, b := range busy {
		if b.Overlaps(candidate) {
			c.logger.Debug().
				Int64("chef_id", chefID).
				Str("date", day.Format(model.DateLayout)).
				Str("candidate", candidate.String()).
				Str("booking", b.String()).
				Msg("Window overlaps booking")
			return true, nil
		}
	}
	return false, nil
}

// HasConflictOnDayOfWeek runs HasConflict for every date in [today, today+lookaheadDays]
// that falls on dayOfWeek. Today is taken loosely, see scanFrom.
func (c *Checker) HasConflictOnDayOfWeek(ctx context.Context, chefID int64, dayOfWeek int, start, end string, lookaheadDays int) (bool, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return false, model.Invalidf("day of week must be 0-6, got %d", dayOfWeek)
	}
	from := c.scanFrom()
	if _, err := window(from, start, end); err != nil {
		return false, err
	}

	// One extra day on each side of the UTC date.
	last := lookaheadDays + 2
	offset := (dayOfWeek - int(from.Weekday()) + 7) % 7
	for d := offset; d <= last; d += 7 {
		conflict, err := c.HasConflict(ctx, chefID, from.AddDate(0, 0, d), start, end)
		if err != nil {
			return false, err
		}
		if conflict {
			return true, nil
		}
	}
	return false, nil
}

// HasActiveBookingsForDayOfWeek reports whether the chef has any active booking from
// today onward on dayOfWeek, with today taken as in scanFrom. Fails with ErrNotFound
// for an unknown chef.
func (c *Checker) HasActiveBookingsForDayOfWeek(ctx context.Context, chefID int64, dayOfWeek int) (bool, error) {
	if _, err := c.store.GetChef(ctx, chefID); err != nil {
		return false, err
	}
	count, err := c.store.CountActiveBookingsOnWeekday(ctx, chefID, dayOfWeek, c.scanFrom())
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFrom is the first date a forward scan must cover. The chef's local date is
// within one day of the UTC date, so scans start the day before it.
func (c *Checker) scanFrom() time.Time {
	return model.DateOnly(c.now().UTC()).AddDate(0, 0, -1)
}

func window(day time.Time, start, end string) (interval.Interval, error) {
	s, err := interval.OnDate(day, start)
	if err != nil {
		return interval.Interval{}, model.Invalidf("start time: %v", err)
	}
	e, err := interval.OnDate(day, end)
	if err != nil {
		return interval.Interval{}, model.Invalidf("end time: %v", err)
	}
	if !s.Before(e) {
		return interval.Interval{}, model.Invalidf("start time %s must be before end time %s", start, end)
	}
	return interval.Interval{Start: s, End: e}, nil
}
