package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefslot/internal/model"
)

var day = time.Date(2030, 3, 6, 0, 0, 0, 0, time.UTC) // Wednesday

func at(clock string) time.Time {
	t, err := OnDate(day, clock)
	if err != nil {
		panic(err)
	}
	return t
}

func iv(start, end string) Interval {
	return Interval{Start: at(start), End: at(end)}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"08:00", 480, false},
		{"22:00", 1320, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{" 9:05 ", 545, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"1200", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "08:05", FormatClock(485))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "21:30", FormatClock(1290))
}

func TestOnDateKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	date := time.Date(2030, 3, 6, 0, 0, 0, 0, loc)

	got, err := OnDate(date, "10:30")
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 10, got.Hour())
	assert.Equal(t, 30, got.Minute())
	assert.Equal(t, 6, got.Day())
}

func TestExpandWorkingRules(t *testing.T) {
	rules := []model.WorkingRule{
		{ID: 1, DayOfWeek: 3, StartTime: "17:00", EndTime: "22:00"},
		{ID: 2, DayOfWeek: 3, StartTime: "08:00", EndTime: "12:00"},
		{ID: 3, DayOfWeek: 4, StartTime: "08:00", EndTime: "22:00"},
	}

	got, err := ExpandWorkingRules(rules, day)
	require.NoError(t, err)
	assert.Equal(t, []Interval{iv("08:00", "12:00"), iv("17:00", "22:00")}, got)
}

func TestExpandWorkingRulesNoMatch(t *testing.T) {
	rules := []model.WorkingRule{{ID: 1, DayOfWeek: 0, StartTime: "08:00", EndTime: "22:00"}}

	got, err := ExpandWorkingRules(rules, day)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandWorkingRulesBadClock(t *testing.T) {
	rules := []model.WorkingRule{{ID: 7, DayOfWeek: 3, StartTime: "8am", EndTime: "22:00"}}

	_, err := ExpandWorkingRules(rules, day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 7")
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{"empty", nil, nil},
		{"single", []Interval{iv("10:00", "11:00")}, []Interval{iv("10:00", "11:00")}},
		{
			"overlapping unsorted",
			[]Interval{iv("12:00", "14:00"), iv("10:00", "12:30")},
			[]Interval{iv("10:00", "14:00")},
		},
		{
			"touching coalesce",
			[]Interval{iv("10:00", "11:00"), iv("11:00", "12:00")},
			[]Interval{iv("10:00", "12:00")},
		},
		{
			"nested",
			[]Interval{iv("10:00", "18:00"), iv("11:00", "12:00")},
			[]Interval{iv("10:00", "18:00")},
		},
		{
			"disjoint",
			[]Interval{iv("15:00", "16:00"), iv("10:00", "11:00")},
			[]Interval{iv("10:00", "11:00"), iv("15:00", "16:00")},
		},
		{
			"empty intervals dropped",
			[]Interval{iv("10:00", "10:00")},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.in))
		})
	}
}

func TestSubtract(t *testing.T) {
	free := []Interval{iv("08:00", "22:00")}

	tests := []struct {
		name string
		free []Interval
		busy []Interval
		want []Interval
	}{
		{"no busy", free, nil, free},
		{"busy equals free", free, []Interval{iv("08:00", "22:00")}, nil},
		{"busy covers free", free, []Interval{iv("07:00", "23:00")}, nil},
		{
			"busy strictly inside",
			free,
			[]Interval{iv("15:00", "19:30")},
			[]Interval{iv("08:00", "15:00"), iv("19:30", "22:00")},
		},
		{
			"touching start does not consume",
			[]Interval{iv("10:00", "12:00")},
			[]Interval{iv("08:00", "10:00")},
			[]Interval{iv("10:00", "12:00")},
		},
		{
			"touching end does not consume",
			[]Interval{iv("10:00", "12:00")},
			[]Interval{iv("12:00", "14:00")},
			[]Interval{iv("10:00", "12:00")},
		},
		{
			"overlapping busy merged first",
			free,
			[]Interval{iv("13:00", "14:00"), iv("12:00", "13:30"), iv("18:00", "19:00")},
			[]Interval{iv("08:00", "12:00"), iv("14:00", "18:00"), iv("19:00", "22:00")},
		},
		{
			"busy on the left edge",
			free,
			[]Interval{iv("08:00", "09:00")},
			[]Interval{iv("09:00", "22:00")},
		},
		{
			"multiple free windows",
			[]Interval{iv("08:00", "12:00"), iv("17:00", "22:00")},
			[]Interval{iv("11:00", "18:00")},
			[]Interval{iv("08:00", "11:00"), iv("18:00", "22:00")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subtract(tt.free, tt.busy))
		})
	}
}

func TestSubtractReconstructsOriginal(t *testing.T) {
	free := iv("08:00", "22:00")
	busy := iv("12:00", "14:00")

	got := Subtract([]Interval{free}, []Interval{busy})
	require.Len(t, got, 2)

	assert.Equal(t, free, Merge(append(got, busy))[0])
	for _, piece := range got {
		assert.False(t, piece.Overlaps(busy))
		assert.True(t, free.Contains(piece))
	}
}

func TestFilterByMinDuration(t *testing.T) {
	in := []Interval{iv("08:00", "09:14"), iv("10:00", "11:15"), iv("12:00", "16:00")}

	got := FilterByMinDuration(in, 75*time.Minute)
	assert.Equal(t, []Interval{iv("10:00", "11:15"), iv("12:00", "16:00")}, got)
}

func TestOverlaps(t *testing.T) {
	a := iv("10:00", "12:00")

	assert.True(t, a.Overlaps(iv("11:00", "13:00")))
	assert.True(t, a.Overlaps(iv("09:00", "10:01")))
	assert.True(t, a.Overlaps(iv("10:30", "11:00")))
	assert.False(t, a.Overlaps(iv("12:00", "13:00")))
	assert.False(t, a.Overlaps(iv("08:00", "10:00")))
}

func TestBookingWindow(t *testing.T) {
	detail := model.BookingDetail{
		ID:              1,
		Date:            day,
		TravelStartTime: "15:00",
		CookStartTime:   "16:00",
		MealStartTime:   "19:00",
	}

	got, err := BookingWindow(detail, 30*time.Minute, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, iv("15:00", "19:30"), got)
	assert.Equal(t, "15:00-19:30", got.String())
}

func TestBookingWindowBadTime(t *testing.T) {
	_, err := BookingWindow(model.BookingDetail{ID: 9, Date: day, TravelStartTime: "x", MealStartTime: "19:00"}, 0, time.UTC)
	assert.Error(t, err)
}

func TestBookingWindowMealBeforeTravel(t *testing.T) {
	detail := model.BookingDetail{ID: 4, Date: day, TravelStartTime: "18:00", MealStartTime: "17:00"}

	_, err := BookingWindow(detail, 30*time.Minute, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking detail 4")
}
