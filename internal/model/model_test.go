package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDurationSource(t *testing.T) {
	menu := int64(7)
	zero := int64(0)

	tests := []struct {
		name    string
		menuID  *int64
		dishes  []int64
		want    DurationSourceKind
		wantErr bool
	}{
		{"default", nil, nil, SourceChefDefault, false},
		{"menu", &menu, nil, SourceMenu, false},
		{"dishes", nil, []int64{3, 1}, SourceDishes, false},
		{"both", &menu, []int64{1}, 0, true},
		{"bad menu", &zero, nil, 0, true},
		{"bad dish", nil, []int64{1, -2}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewDurationSource(tt.menuID, tt.dishes)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Kind())
		})
	}
}

func TestDurationSourceCopiesDishes(t *testing.T) {
	ids := []int64{4, 5}
	src := DishesSource(ids)
	ids[0] = 99

	got := src.DishIDs()
	assert.Equal(t, []int64{4, 5}, got)
	got[1] = 42
	assert.Equal(t, []int64{4, 5}, src.DishIDs())
	assert.Equal(t, "dishes([4 5])", src.String())
	assert.Equal(t, "menu(7)", MenuSource(7).String())
	assert.Equal(t, SourceChefDefault, DurationSource{}.Kind())
}

func TestBookingStatusIsActive(t *testing.T) {
	assert.True(t, BookingStatusPending.IsActive())
	assert.True(t, BookingStatusConfirmed.IsActive())
	assert.True(t, BookingStatusCompleted.IsActive())
	assert.False(t, BookingStatusCancelled.IsActive())
	assert.False(t, BookingStatusDeleted.IsActive())
}

func TestErrors(t *testing.T) {
	err := fmt.Errorf("loading: %w", &UpstreamError{Service: "travel", Op: "estimate_travel", Err: errors.New("timeout")})
	assert.True(t, IsUpstream(err))
	assert.Equal(t, "loading: travel estimate_travel: timeout", err.Error())
	assert.False(t, IsUpstream(ErrNotFound))

	assert.ErrorIs(t, Invalidf("bad %d", 1), ErrInvalidInput)
	assert.EqualError(t, NotFoundf("chef %d", 3), "not found: chef 3")
}

func TestDates(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	d := DateOnly(time.Date(2030, 3, 6, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2030, 3, 6, 0, 0, 0, 0, time.UTC), d)

	parsed, err := ParseDate("2030-03-06")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDate("06/03/2030")
	assert.Error(t, err)
}
