package model

import "time"

// BookingStatus is the status of a parent booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusDeleted   BookingStatus = "deleted"
)

// IsActive reports whether a booking with this status still reserves the chef.
func (s BookingStatus) IsActive() bool {
	return s != BookingStatusCancelled && s != BookingStatusDeleted
}

// BookingDetail is the per-date detail record of a committed booking.
// The busy window it reserves is [TravelStartTime, MealStartTime + rest buffer).
type BookingDetail struct {
	ID              int64         `json:"id"`
	BookingID       int64         `json:"booking_id"`
	ChefID          int64         `json:"chef_id"`
	Date            time.Time     `json:"date"`
	TravelStartTime string        `json:"travel_start_time"`
	CookStartTime   string        `json:"cook_start_time"`
	MealStartTime   string        `json:"meal_start_time"`
	Status          BookingStatus `json:"status"`
}
