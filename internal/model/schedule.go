package model

import "time"

// WorkingRule is a recurring weekly working window of a chef.
type WorkingRule struct {
	ID        int64     `json:"id"`
	ChefID    int64     `json:"chef_id"`
	DayOfWeek int       `json:"day_of_week"` // 0-6 (Sunday-Saturday)
	StartTime string    `json:"start_time"`  // "08:00"
	EndTime   string    `json:"end_time"`    // "22:00"
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlockedInterval is a one-off unavailable range on a specific date.
type BlockedInterval struct {
	ID        int64     `json:"id"`
	ChefID    int64     `json:"chef_id"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Reason    string    `json:"reason,omitempty"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
