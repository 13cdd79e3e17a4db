package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chefslot/internal/model"
)

const blockedColumns = `id, chef_id, date, start_time, end_time, reason, is_deleted, created_at, updated_at`

// ListBlockedIntervals returns the active blocked intervals of a chef on date.
func (db *DB) ListBlockedIntervals(ctx context.Context, chefID int64, date time.Time) ([]model.BlockedInterval, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, `
		SELECT `+blockedColumns+`
		FROM blocked_intervals
		WHERE chef_id = ? AND date = ? AND is_deleted = 0
		ORDER BY start_time, id`,
		chefID, formatDate(date),
	)
	if err != nil {
		return nil, fmt.Errorf("list blocked intervals: %w", err)
	}
	defer rows.Close()
	return scanBlocked(rows)
}

// ListBlockedIntervalsInRange returns active blocked intervals with from <= date <= to.
func (db *DB) ListBlockedIntervalsInRange(ctx context.Context, chefID int64, from, to time.Time) ([]model.BlockedInterval, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, `
		SELECT `+blockedColumns+`
		FROM blocked_intervals
		WHERE chef_id = ? AND date BETWEEN ? AND ? AND is_deleted = 0
		ORDER BY date, start_time, id`,
		chefID, formatDate(from), formatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list blocked intervals in range: %w", err)
	}
	defer rows.Close()
	return scanBlocked(rows)
}

func (db *DB) GetBlockedInterval(ctx context.Context, chefID, id int64) (*model.BlockedInterval, error) {
	row := db.conn(ctx).QueryRowContext(ctx, `
		SELECT `+blockedColumns+`
		FROM blocked_intervals
		WHERE id = ? AND chef_id = ? AND is_deleted = 0`,
		id, chefID,
	)
	b, err := scanBlockedRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("blocked interval %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get blocked interval %d: %w", id, err)
	}
	return b, nil
}

func (db *DB) CreateBlockedInterval(ctx context.Context, b *model.BlockedInterval) error {
	if b == nil {
		return fmt.Errorf("blocked interval is nil")
	}
	now := time.Now()
	res, err := db.conn(ctx).ExecContext(ctx, `
		INSERT INTO blocked_intervals (chef_id, date, start_time, end_time, reason, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		b.ChefID, formatDate(b.Date), b.StartTime, b.EndTime, b.Reason, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert blocked interval: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

func (db *DB) UpdateBlockedInterval(ctx context.Context, b *model.BlockedInterval) error {
	if b == nil {
		return fmt.Errorf("blocked interval is nil")
	}
	now := time.Now()
	res, err := db.conn(ctx).ExecContext(ctx, `
		UPDATE blocked_intervals
		SET date = ?, start_time = ?, end_time = ?, reason = ?, updated_at = ?
		WHERE id = ? AND chef_id = ? AND is_deleted = 0`,
		formatDate(b.Date), b.StartTime, b.EndTime, b.Reason, now, b.ID, b.ChefID,
	)
	if err != nil {
		return fmt.Errorf("update blocked interval %d: %w", b.ID, err)
	}
	if err := expectAffected(res, "blocked interval", b.ID); err != nil {
		return err
	}
	b.UpdatedAt = now
	return nil
}

func (db *DB) SoftDeleteBlockedInterval(ctx context.Context, chefID, id int64) error {
	res, err := db.conn(ctx).ExecContext(ctx, `
		UPDATE blocked_intervals SET is_deleted = 1, updated_at = ?
		WHERE id = ? AND chef_id = ? AND is_deleted = 0`,
		time.Now(), id, chefID,
	)
	if err != nil {
		return fmt.Errorf("delete blocked interval %d: %w", id, err)
	}
	return expectAffected(res, "blocked interval", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlockedRow(row rowScanner) (*model.BlockedInterval, error) {
	var b model.BlockedInterval
	var date string
	var reason sql.NullString
	if err := row.Scan(&b.ID, &b.ChefID, &date, &b.StartTime, &b.EndTime, &reason, &b.IsDeleted, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := parseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse blocked interval date %q: %w", date, err)
	}
	b.Date = d
	if reason.Valid {
		b.Reason = reason.String
	}
	return &b, nil
}

func scanBlocked(rows *sql.Rows) ([]model.BlockedInterval, error) {
	var result []model.BlockedInterval
	for rows.Next() {
		b, err := scanBlockedRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blocked interval: %w", err)
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}
