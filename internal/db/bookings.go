package db

import (
	"context"
	"fmt"
	"time"

	"chefslot/internal/model"
)

// ListActiveBookingDetails returns the detail rows of a chef on date whose parent
// booking is neither cancelled nor deleted.
func (db *DB) ListActiveBookingDetails(ctx context.Context, chefID int64, date time.Time) ([]model.BookingDetail, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, `
		SELECT d.id, d.booking_id, d.chef_id, d.date, d.travel_start_time, d.cook_start_time, d.meal_start_time, b.status
		FROM booking_details d
		JOIN bookings b ON b.id = d.booking_id
		WHERE d.chef_id = ? AND d.date = ?
		  AND b.status NOT IN (?, ?)
		ORDER BY d.travel_start_time, d.id`,
		chefID, formatDate(date), model.BookingStatusCancelled, model.BookingStatusDeleted,
	)
	if err != nil {
		return nil, fmt.Errorf("list booking details: %w", err)
	}
	defer rows.Close()

	var result []model.BookingDetail
	for rows.Next() {
		var d model.BookingDetail
		var date string
		if err := rows.Scan(&d.ID, &d.BookingID, &d.ChefID, &date, &d.TravelStartTime, &d.CookStartTime, &d.MealStartTime, &d.Status); err != nil {
			return nil, fmt.Errorf("scan booking detail: %w", err)
		}
		if d.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("parse booking detail date %q: %w", date, err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// CountActiveBookingsOnWeekday counts active booking details of a chef falling on
// dayOfWeek (0=Sunday) on or after from.
func (db *DB) CountActiveBookingsOnWeekday(ctx context.Context, chefID int64, dayOfWeek int, from time.Time) (int, error) {
	var count int
	err := db.conn(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM booking_details d
		JOIN bookings b ON b.id = d.booking_id
		WHERE d.chef_id = ?
		  AND CAST(strftime('%w', d.date) AS INTEGER) = ?
		  AND d.date >= ?
		  AND b.status NOT IN (?, ?)`,
		chefID, dayOfWeek, formatDate(from), model.BookingStatusCancelled, model.BookingStatusDeleted,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings on weekday %d: %w", dayOfWeek, err)
	}
	return count, nil
}

// CreateBooking inserts a booking with its per-date details. Bookings are created
// elsewhere in the marketplace; this is used for imports and tests.
func (db *DB) CreateBooking(ctx context.Context, chefID int64, status model.BookingStatus, details []model.BookingDetail) (int64, error) {
	var bookingID int64
	err := db.InTx(ctx, func(ctx context.Context) error {
		now := time.Now()
		res, err := db.conn(ctx).ExecContext(ctx, `
			INSERT INTO bookings (chef_id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			chefID, status, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		if bookingID, err = res.LastInsertId(); err != nil {
			return err
		}

		for i := range details {
			d := &details[i]
			res, err := db.conn(ctx).ExecContext(ctx, `
				INSERT INTO booking_details (booking_id, chef_id, date, travel_start_time, cook_start_time, meal_start_time)
				VALUES (?, ?, ?, ?, ?, ?)`,
				bookingID, chefID, formatDate(d.Date), d.TravelStartTime, d.CookStartTime, d.MealStartTime,
			)
			if err != nil {
				return fmt.Errorf("insert booking detail: %w", err)
			}
			if d.ID, err = res.LastInsertId(); err != nil {
				return err
			}
			d.BookingID = bookingID
			d.ChefID = chefID
			d.Status = status
		}
		return nil
	})
	return bookingID, err
}

func (db *DB) UpdateBookingStatus(ctx context.Context, bookingID int64, status model.BookingStatus) error {
	res, err := db.conn(ctx).ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), bookingID,
	)
	if err != nil {
		return fmt.Errorf("update booking %d status: %w", bookingID, err)
	}
	return expectAffected(res, "booking", bookingID)
}
