package manager

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chefslot/internal/config"
	"chefslot/internal/db"
	"chefslot/internal/model"
)

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) HasConflict(ctx context.Context, chefID int64, date time.Time, start, end string) (bool, error) {
	args := m.Called(chefID, date.Format(model.DateLayout), start, end)
	return args.Bool(0), args.Error(1)
}

func (m *mockChecker) HasConflictOnDayOfWeek(ctx context.Context, chefID int64, dayOfWeek int, start, end string, lookaheadDays int) (bool, error) {
	args := m.Called(chefID, dayOfWeek, start, end, lookaheadDays)
	return args.Bool(0), args.Error(1)
}

func (m *mockChecker) HasActiveBookingsForDayOfWeek(ctx context.Context, chefID int64, dayOfWeek int) (bool, error) {
	args := m.Called(chefID, dayOfWeek)
	return args.Bool(0), args.Error(1)
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) PublishJSON(_ context.Context, eventType string, _ int64, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	db       *db.DB
	checker  *mockChecker
	events   *recorder
	schedule *ScheduleService
	blocked  *BlockedDateService
	chefID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	store, err := db.Open(filepath.Join(t.TempDir(), "chefslot.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	chef := &model.Chef{Name: "Anna", Address: "1 Main St", MaxDishesPerMeal: 3, IsActive: true}
	require.NoError(t, store.CreateChef(context.Background(), chef))

	f := &fixture{db: store, checker: new(mockChecker), events: &recorder{}, chefID: chef.ID}
	rules := config.DefaultRules()

	f.schedule, err = NewScheduleService(store, f.checker, f.events, rules, &logger)
	require.NoError(t, err)
	f.blocked, err = NewBlockedDateService(store, f.checker, f.events, rules, &logger)
	require.NoError(t, err)
	return f
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestNewServicesRejectBadBounds(t *testing.T) {
	logger := zerolog.Nop()
	rules := config.DefaultRules()
	rules.WorkStart = "23:00"

	_, err := NewScheduleService(nil, nil, nil, rules, &logger)
	require.Error(t, err)
	_, err = NewBlockedDateService(nil, nil, nil, rules, &logger)
	require.Error(t, err)
}
