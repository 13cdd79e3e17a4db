package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chefslot/internal/model"
)

// CreateChef inserts a chef and sets its ID.
func (db *DB) CreateChef(ctx context.Context, c *model.Chef) error {
	if c == nil {
		return fmt.Errorf("chef is nil")
	}
	now := time.Now()
	res, err := db.conn(ctx).ExecContext(ctx, `
		INSERT INTO chefs (name, address, max_dishes_per_meal, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Address, c.MaxDishesPerMeal, c.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert chef: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetChef returns the chef with id, or an ErrNotFound error.
func (db *DB) GetChef(ctx context.Context, id int64) (*model.Chef, error) {
	var c model.Chef
	err := db.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, address, max_dishes_per_meal, is_active, created_at, updated_at
		FROM chefs WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Address, &c.MaxDishesPerMeal, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("chef %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get chef %d: %w", id, err)
	}
	return &c, nil
}
