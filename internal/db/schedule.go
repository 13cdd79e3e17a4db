package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chefslot/internal/model"
)

const workingRuleColumns = `id, chef_id, day_of_week, start_time, end_time, is_deleted, created_at, updated_at`

// ListWorkingRules returns the active rules of a chef for one day of week, ordered by start.
func (db *DB) ListWorkingRules(ctx context.Context, chefID int64, dayOfWeek int) ([]model.WorkingRule, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, `
		SELECT `+workingRuleColumns+`
		FROM working_rules
		WHERE chef_id = ? AND day_of_week = ? AND is_deleted = 0
		ORDER BY start_time, id`,
		chefID, dayOfWeek,
	)
	if err != nil {
		return nil, fmt.Errorf("list working rules: %w", err)
	}
	defer rows.Close()
	return scanWorkingRules(rows)
}

// ListChefWorkingRules returns every active rule of a chef.
func (db *DB) ListChefWorkingRules(ctx context.Context, chefID int64) ([]model.WorkingRule, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, `
		SELECT `+workingRuleColumns+`
		FROM working_rules
		WHERE chef_id = ? AND is_deleted = 0
		ORDER BY day_of_week, start_time, id`,
		chefID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chef working rules: %w", err)
	}
	defer rows.Close()
	return scanWorkingRules(rows)
}

// GetWorkingRule returns an active rule owned by chefID.
func (db *DB) GetWorkingRule(ctx context.Context, chefID, id int64) (*model.WorkingRule, error) {
	row := db.conn(ctx).QueryRowContext(ctx, `
		SELECT `+workingRuleColumns+`
		FROM working_rules
		WHERE id = ? AND chef_id = ? AND is_deleted = 0`,
		id, chefID,
	)
	var r model.WorkingRule
	err := row.Scan(&r.ID, &r.ChefID, &r.DayOfWeek, &r.StartTime, &r.EndTime, &r.IsDeleted, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("working rule %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get working rule %d: %w", id, err)
	}
	return &r, nil
}

func (db *DB) CreateWorkingRule(ctx context.Context, r *model.WorkingRule) error {
	if r == nil {
		return fmt.Errorf("working rule is nil")
	}
	now := time.Now()
	res, err := db.conn(ctx).ExecContext(ctx, `
		INSERT INTO working_rules (chef_id, day_of_week, start_time, end_time, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		r.ChefID, r.DayOfWeek, r.StartTime, r.EndTime, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert working rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

func (db *DB) UpdateWorkingRule(ctx context.Context, r *model.WorkingRule) error {
	if r == nil {
		return fmt.Errorf("working rule is nil")
	}
	now := time.Now()
	res, err := db.conn(ctx).ExecContext(ctx, `
		UPDATE working_rules
		SET day_of_week = ?, start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ? AND chef_id = ? AND is_deleted = 0`,
		r.DayOfWeek, r.StartTime, r.EndTime, now, r.ID, r.ChefID,
	)
	if err != nil {
		return fmt.Errorf("update working rule %d: %w", r.ID, err)
	}
	if err := expectAffected(res, "working rule", r.ID); err != nil {
		return err
	}
	r.UpdatedAt = now
	return nil
}

func (db *DB) SoftDeleteWorkingRule(ctx context.Context, chefID, id int64) error {
	res, err := db.conn(ctx).ExecContext(ctx, `
		UPDATE working_rules SET is_deleted = 1, updated_at = ?
		WHERE id = ? AND chef_id = ? AND is_deleted = 0`,
		time.Now(), id, chefID,
	)
	if err != nil {
		return fmt.Errorf("delete working rule %d: %w", id, err)
	}
	return expectAffected(res, "working rule", id)
}

// SoftDeleteWorkingRulesForDay deletes every active rule of a chef on one day and
// returns how many were removed.
func (db *DB) SoftDeleteWorkingRulesForDay(ctx context.Context, chefID int64, dayOfWeek int) (int64, error) {
	res, err := db.conn(ctx).ExecContext(ctx, `
		UPDATE working_rules SET is_deleted = 1, updated_at = ?
		WHERE chef_id = ? AND day_of_week = ? AND is_deleted = 0`,
		time.Now(), chefID, dayOfWeek,
	)
	if err != nil {
		return 0, fmt.Errorf("delete working rules for day %d: %w", dayOfWeek, err)
	}
	return res.RowsAffected()
}

func scanWorkingRules(rows *sql.Rows) ([]model.WorkingRule, error) {
	var result []model.WorkingRule
	for rows.Next() {
		var r model.WorkingRule
		if err := rows.Scan(&r.ID, &r.ChefID, &r.DayOfWeek, &r.StartTime, &r.EndTime, &r.IsDeleted, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan working rule: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func expectAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFoundf("%s %d", what, id)
	}
	return nil
}
