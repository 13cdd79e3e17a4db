package model

import (
	"fmt"
	"time"
)

// ZonedTime pairs a wall-clock time with the zone it belongs to.
type ZonedTime struct {
	Wall time.Time `json:"wall"`
	Zone string    `json:"zone"`
}

func (z ZonedTime) String() string {
	return z.Wall.Format("2006-01-02 15:04") + " " + z.Zone
}

// TimeSlot is an open window returned to a customer.
type TimeSlot struct {
	Date            string    `json:"date"`
	Start           ZonedTime `json:"start"`
	End             ZonedTime `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Note            string    `json:"note,omitempty"`
}

// TravelEstimate is the result of a travel estimation between two addresses.
type TravelEstimate struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
}

// DurationSourceKind tags the variant held by a DurationSource.
type DurationSourceKind int

const (
	SourceChefDefault DurationSourceKind = iota
	SourceMenu
	SourceDishes
)

func (k DurationSourceKind) String() string {
	switch k {
	case SourceMenu:
		return "menu"
	case SourceDishes:
		return "dishes"
	default:
		return "chef_default"
	}
}

// DurationSource selects how cooking time is estimated: a menu, an explicit dish list,
// or the chef's maximum dishes per meal. The zero value is ChefDefault.
type DurationSource struct {
	kind    DurationSourceKind
	menuID  int64
	dishIDs []int64
}

func MenuSource(menuID int64) DurationSource {
	return DurationSource{kind: SourceMenu, menuID: menuID}
}

func DishesSource(dishIDs []int64) DurationSource {
	ids := make([]int64, len(dishIDs))
	copy(ids, dishIDs)
	return DurationSource{kind: SourceDishes, dishIDs: ids}
}

func ChefDefaultSource() DurationSource {
	return DurationSource{kind: SourceChefDefault}
}

// NewDurationSource builds a source from optional request fields.
// Supplying both a menu and dishes is rejected.
func NewDurationSource(menuID *int64, dishIDs []int64) (DurationSource, error) {
	switch {
	case menuID != nil && len(dishIDs) > 0:
		return DurationSource{}, Invalidf("menu_id and dish_ids are mutually exclusive")
	case menuID != nil:
		if *menuID <= 0 {
			return DurationSource{}, Invalidf("menu_id must be positive")
		}
		return MenuSource(*menuID), nil
	case len(dishIDs) > 0:
		for _, id := range dishIDs {
			if id <= 0 {
				return DurationSource{}, Invalidf("dish id must be positive, got %d", id)
			}
		}
		return DishesSource(dishIDs), nil
	default:
		return ChefDefaultSource(), nil
	}
}

func (s DurationSource) Kind() DurationSourceKind { return s.kind }

func (s DurationSource) MenuID() int64 { return s.menuID }

func (s DurationSource) DishIDs() []int64 {
	ids := make([]int64, len(s.dishIDs))
	copy(ids, s.dishIDs)
	return ids
}

func (s DurationSource) String() string {
	switch s.kind {
	case SourceMenu:
		return fmt.Sprintf("menu(%d)", s.menuID)
	case SourceDishes:
		return fmt.Sprintf("dishes(%v)", s.dishIDs)
	default:
		return "chef_default"
	}
}

// DateRequest is one requested date and its duration source.
type DateRequest struct {
	Date   time.Time
	Source DurationSource
}

// SlotRequest asks for open windows of one chef across one or more dates.
type SlotRequest struct {
	ChefID           int64
	Dates            []DateRequest
	CustomerLocation string
	GuestCount       int
	MaxDishesPerMeal int
}
