package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chefslot/internal/manager"
	"chefslot/internal/model"
)

const testAPIKey = "valid-key"

type mockFinder struct{ mock.Mock }

func (m *mockFinder) FindSlots(ctx context.Context, chefID int64, date time.Time, location string, source model.DurationSource, guests, maxDishes int) ([]model.TimeSlot, error) {
	args := m.Called(chefID, date.Format(model.DateLayout), location, source.String(), guests, maxDishes)
	slots, _ := args.Get(0).([]model.TimeSlot)
	return slots, args.Error(1)
}

func (m *mockFinder) FindSlotsAcrossDates(ctx context.Context, req model.SlotRequest) ([]model.TimeSlot, error) {
	args := m.Called(req.ChefID, len(req.Dates))
	slots, _ := args.Get(0).([]model.TimeSlot)
	return slots, args.Error(1)
}

type mockSchedule struct{ mock.Mock }

func (m *mockSchedule) ListRules(ctx context.Context, chefID int64) ([]model.WorkingRule, error) {
	args := m.Called(chefID)
	rules, _ := args.Get(0).([]model.WorkingRule)
	return rules, args.Error(1)
}

func (m *mockSchedule) Create(ctx context.Context, chefID int64, in manager.RuleInput) (*model.WorkingRule, error) {
	args := m.Called(chefID, in)
	rule, _ := args.Get(0).(*model.WorkingRule)
	return rule, args.Error(1)
}

func (m *mockSchedule) Update(ctx context.Context, chefID, ruleID int64, in manager.RuleInput) (*model.WorkingRule, error) {
	args := m.Called(chefID, ruleID, in)
	rule, _ := args.Get(0).(*model.WorkingRule)
	return rule, args.Error(1)
}

func (m *mockSchedule) Delete(ctx context.Context, chefID, ruleID int64) error {
	return m.Called(chefID, ruleID).Error(0)
}

func (m *mockSchedule) DeleteDay(ctx context.Context, chefID int64, dayOfWeek int) (int64, error) {
	args := m.Called(chefID, dayOfWeek)
	return args.Get(0).(int64), args.Error(1)
}

type mockBlocked struct{ mock.Mock }

func (m *mockBlocked) ListBlocked(ctx context.Context, chefID int64, from, to time.Time) ([]model.BlockedInterval, error) {
	args := m.Called(chefID, from.Format(model.DateLayout), to.Format(model.DateLayout))
	list, _ := args.Get(0).([]model.BlockedInterval)
	return list, args.Error(1)
}

func (m *mockBlocked) Create(ctx context.Context, chefID int64, in manager.BlockInput) (*model.BlockedInterval, error) {
	args := m.Called(chefID, in)
	b, _ := args.Get(0).(*model.BlockedInterval)
	return b, args.Error(1)
}

func (m *mockBlocked) Update(ctx context.Context, chefID, blockID int64, in manager.BlockInput) (*model.BlockedInterval, error) {
	args := m.Called(chefID, blockID, in)
	b, _ := args.Get(0).(*model.BlockedInterval)
	return b, args.Error(1)
}

func (m *mockBlocked) Delete(ctx context.Context, chefID, blockID int64) error {
	return m.Called(chefID, blockID).Error(0)
}

func (m *mockBlocked) CreateRange(ctx context.Context, chefID int64, in manager.RangeInput) ([]model.BlockedInterval, error) {
	args := m.Called(chefID, in)
	list, _ := args.Get(0).([]model.BlockedInterval)
	return list, args.Error(1)
}

type testServer struct {
	finder   *mockFinder
	schedule *mockSchedule
	blocked  *mockBlocked
	handler  http.Handler
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	ts := &testServer{finder: new(mockFinder), schedule: new(mockSchedule), blocked: new(mockBlocked)}
	srv := NewServer(ts.finder, ts.schedule, ts.blocked, testAPIKey, &logger)
	srv.now = func() time.Time { return time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC) }
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("x-api-key", testAPIKey)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAPIKeyRequired(t *testing.T) {
	ts := setupTestServer(t)

	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/chefs/1/schedules", nil)
		if key != "" {
			req.Header.Set("x-api-key", key)
		}
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
	}
	ts.schedule.AssertNotCalled(t, "ListRules", mock.Anything)
}

func TestRequestIDHeader(t *testing.T) {
	ts := setupTestServer(t)
	ts.schedule.On("ListRules", int64(1)).Return(nil, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/chefs/1/schedules", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"rules":[]}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chefs/1/schedules", nil)
	req.Header.Set("x-api-key", testAPIKey)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestHandleSlots(t *testing.T) {
	ts := setupTestServer(t)
	slot := model.TimeSlot{Date: "2030-03-06", DurationMinutes: 480, Note: "cooking 180 min, travel 30 min"}
	ts.finder.On("FindSlots", int64(7), "2030-03-06", "Berlin", "dishes([3 4])", 4, 0).Return([]model.TimeSlot{slot}, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/chefs/7/slots?date=2030-03-06&location=Berlin&guests=4&dish_ids=3,4", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp slotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, 480, resp.Slots[0].DurationMinutes)
	assert.Empty(t, resp.Errors)
}

func TestHandleSlotsErrors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		finderErr  error
		wantStatus int
		wantCode   string
	}{
		{"missing date", "location=Berlin&guests=2", nil, http.StatusBadRequest, "invalid_input"},
		{"bad date", "date=06-03-2030&location=Berlin&guests=2", nil, http.StatusBadRequest, "invalid_input"},
		{"bad guests", "date=2030-03-06&location=Berlin&guests=many", nil, http.StatusBadRequest, "invalid_input"},
		{"menu and dishes", "date=2030-03-06&location=Berlin&guests=2&menu_id=1&dish_ids=2", nil, http.StatusBadRequest, "invalid_input"},
		{"unknown chef", "date=2030-03-06&location=Berlin&guests=2", model.NotFoundf("chef 7"), http.StatusNotFound, "not_found"},
		{"upstream", "date=2030-03-06&location=Berlin&guests=2", &model.UpstreamError{Service: "travel", Op: "estimate_travel", Err: errors.New("boom")}, http.StatusBadGateway, "upstream_error"},
		{"internal", "date=2030-03-06&location=Berlin&guests=2", errors.New("disk"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)
			ts.finder.On("FindSlots", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, tt.finderErr)

			rec := ts.do(t, http.MethodGet, "/api/v1/chefs/7/slots?"+tt.query, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestHandleSlotsBadChefID(t *testing.T) {
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/chefs/abc/slots?date=2030-03-06", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSlotSearch(t *testing.T) {
	body := map[string]any{
		"dates":       []map[string]any{{"date": "2030-03-06", "menu_id": 3}, {"date": "2030-03-07"}},
		"location":    "Berlin",
		"guest_count": 4,
	}

	t.Run("all dates", func(t *testing.T) {
		ts := setupTestServer(t)
		ts.finder.On("FindSlotsAcrossDates", int64(7), 2).Return([]model.TimeSlot{{Date: "2030-03-06"}, {Date: "2030-03-07"}}, nil)

		rec := ts.do(t, http.MethodPost, "/api/v1/chefs/7/slots/search", body)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp slotsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Slots, 2)
	})

	t.Run("partial failure", func(t *testing.T) {
		ts := setupTestServer(t)
		failure := fmt.Errorf("date 2030-03-07: %w", &model.UpstreamError{Service: "cooking", Op: "estimate_menu", Err: errors.New("boom")})
		ts.finder.On("FindSlotsAcrossDates", int64(7), 2).Return([]model.TimeSlot{{Date: "2030-03-06"}}, errors.Join(failure))

		rec := ts.do(t, http.MethodPost, "/api/v1/chefs/7/slots/search", body)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp slotsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Slots, 1)
		require.Len(t, resp.Errors, 1)
		assert.Contains(t, resp.Errors[0], "2030-03-07")
	})

	t.Run("every date fails", func(t *testing.T) {
		ts := setupTestServer(t)
		up := &model.UpstreamError{Service: "travel", Op: "estimate_travel", Err: errors.New("boom")}
		ts.finder.On("FindSlotsAcrossDates", int64(7), 2).Return([]model.TimeSlot{}, errors.Join(
			fmt.Errorf("date 2030-03-06: %w", up),
			fmt.Errorf("date 2030-03-07: %w", up),
		))

		rec := ts.do(t, http.MethodPost, "/api/v1/chefs/7/slots/search", body)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("request rejected", func(t *testing.T) {
		ts := setupTestServer(t)
		ts.finder.On("FindSlotsAcrossDates", int64(7), 2).Return(nil, model.Invalidf("guest count must be positive"))

		rec := ts.do(t, http.MethodPost, "/api/v1/chefs/7/slots/search", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", decodeError(t, rec).Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		ts := setupTestServer(t)
		rec := ts.do(t, http.MethodPost, "/api/v1/chefs/7/slots/search", `{"dates":[],"colour":"red"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		ts.finder.AssertNotCalled(t, "FindSlotsAcrossDates", mock.Anything, mock.Anything)
	})
}

func TestRuleHandlers(t *testing.T) {
	ts := setupTestServer(t)
	in := manager.RuleInput{DayOfWeek: 3, StartTime: "08:00", EndTime: "12:00"}
	rule := &model.WorkingRule{ID: 11, ChefID: 7, DayOfWeek: 3, StartTime: "08:00", EndTime: "12:00"}

	ts.schedule.On("Create", int64(7), in).Return(rule, nil)
	rec := ts.do(t, http.MethodPost, "/api/v1/chefs/7/schedules", map[string]any{"day_of_week": 3, "start_time": "08:00", "end_time": "12:00"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var got model.WorkingRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(11), got.ID)

	rec = ts.do(t, http.MethodPost, "/api/v1/chefs/7/schedules", map[string]any{"start_time": "08:00", "end_time": "12:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	shrink := manager.RuleInput{DayOfWeek: 3, StartTime: "09:00", EndTime: "12:00"}
	ts.schedule.On("Update", int64(7), int64(11), shrink).Return(nil, fmt.Errorf("%w: bookings in 08:00-09:00", model.ErrBookingConflict))
	rec = ts.do(t, http.MethodPut, "/api/v1/chefs/7/schedules/11", map[string]any{"day_of_week": 3, "start_time": "09:00", "end_time": "12:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "booking_conflict", decodeError(t, rec).Code)

	ts.schedule.On("Delete", int64(7), int64(11)).Return(nil)
	rec = ts.do(t, http.MethodDelete, "/api/v1/chefs/7/schedules/11", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ts.schedule.On("Delete", int64(7), int64(12)).Return(model.NotFoundf("working rule 12"))
	rec = ts.do(t, http.MethodDelete, "/api/v1/chefs/7/schedules/12", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.schedule.On("DeleteDay", int64(7), 3).Return(int64(2), nil)
	rec = ts.do(t, http.MethodDelete, "/api/v1/chefs/7/schedules/days/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())

	ts.schedule.AssertExpectations(t)
}

func TestBlockedHandlers(t *testing.T) {
	ts := setupTestServer(t)
	day := time.Date(2030, 3, 6, 0, 0, 0, 0, time.UTC)

	ts.blocked.On("ListBlocked", int64(7), "2030-03-01", "2030-03-31").Return(nil, nil)
	rec := ts.do(t, http.MethodGet, "/api/v1/chefs/7/blocked-dates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"blocked_dates":[]}`, rec.Body.String())

	in := manager.BlockInput{Date: day, StartTime: "12:00", EndTime: "14:00", Reason: "dentist"}
	ts.blocked.On("Create", int64(7), in).Return(&model.BlockedInterval{ID: 5, ChefID: 7, Date: day, StartTime: "12:00", EndTime: "14:00"}, nil)
	rec = ts.do(t, http.MethodPost, "/api/v1/chefs/7/blocked-dates", blockRequest{Date: "2030-03-06", StartTime: "12:00", EndTime: "14:00", Reason: "dentist"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	moved := manager.BlockInput{Date: day.AddDate(0, 0, 1), StartTime: "12:00", EndTime: "14:00"}
	ts.blocked.On("Update", int64(7), int64(5), moved).Return(nil, model.ErrBookingConflict)
	rec = ts.do(t, http.MethodPut, "/api/v1/chefs/7/blocked-dates/5", blockRequest{Date: "2030-03-07", StartTime: "12:00", EndTime: "14:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "booking_conflict", decodeError(t, rec).Code)

	ts.blocked.On("Delete", int64(7), int64(5)).Return(nil)
	rec = ts.do(t, http.MethodDelete, "/api/v1/chefs/7/blocked-dates/5", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rng := manager.RangeInput{From: day, To: day.AddDate(0, 0, 2), StartTime: "08:00", EndTime: "22:00", Reason: "holiday"}
	ts.blocked.On("CreateRange", int64(7), rng).Return([]model.BlockedInterval{{ID: 6}, {ID: 7}, {ID: 8}}, nil)
	rec = ts.do(t, http.MethodPost, "/api/v1/chefs/7/blocked-dates/range", rangeRequest{
		StartDate: "2030-03-06", EndDate: "2030-03-08", StartTime: "08:00", EndTime: "22:00", Reason: "holiday",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string][]model.BlockedInterval
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp["blocked_dates"], 3)

	rec = ts.do(t, http.MethodPost, "/api/v1/chefs/7/blocked-dates/range", rangeRequest{StartDate: "2030-03-06", StartTime: "08:00", EndTime: "22:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.blocked.AssertExpectations(t)
}

func TestBlockedListRange(t *testing.T) {
	ts := setupTestServer(t)
	ts.blocked.On("ListBlocked", int64(7), "2030-04-01", "2030-04-10").Return([]model.BlockedInterval{{ID: 1}}, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/chefs/7/blocked-dates?from=2030-04-01&to=2030-04-10", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/chefs/7/blocked-dates?from=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerWithoutAPIKey(t *testing.T) {
	logger := zerolog.Nop()
	schedule := new(mockSchedule)
	schedule.On("ListRules", int64(1)).Return([]model.WorkingRule{{ID: 1}}, nil)
	handler := NewServer(new(mockFinder), schedule, new(mockBlocked), "", &logger).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/chefs/1/schedules", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
