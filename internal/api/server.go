// Package api exposes slot search and schedule management over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"chefslot/internal/manager"
	"chefslot/internal/model"
)

// SlotFinder is implemented by availability.Finder.
type SlotFinder interface {
	FindSlots(ctx context.Context, chefID int64, date time.Time, customerLocation string, source model.DurationSource, guestCount, maxDishesPerMeal int) ([]model.TimeSlot, error)
	FindSlotsAcrossDates(ctx context.Context, req model.SlotRequest) ([]model.TimeSlot, error)
}

// ScheduleManager is implemented by manager.ScheduleService.
type ScheduleManager interface {
	ListRules(ctx context.Context, chefID int64) ([]model.WorkingRule, error)
	Create(ctx context.Context, chefID int64, in manager.RuleInput) (*model.WorkingRule, error)
	Update(ctx context.Context, chefID, ruleID int64, in manager.RuleInput) (*model.WorkingRule, error)
	Delete(ctx context.Context, chefID, ruleID int64) error
	DeleteDay(ctx context.Context, chefID int64, dayOfWeek int) (int64, error)
}

// BlockedManager is implemented by manager.BlockedDateService.
type BlockedManager interface {
	ListBlocked(ctx context.Context, chefID int64, from, to time.Time) ([]model.BlockedInterval, error)
	Create(ctx context.Context, chefID int64, in manager.BlockInput) (*model.BlockedInterval, error)
	Update(ctx context.Context, chefID, blockID int64, in manager.BlockInput) (*model.BlockedInterval, error)
	Delete(ctx context.Context, chefID, blockID int64) error
	CreateRange(ctx context.Context, chefID int64, in manager.RangeInput) ([]model.BlockedInterval, error)
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	finder   SlotFinder
	schedule ScheduleManager
	blocked  BlockedManager
	apiKey   string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewServer(finder SlotFinder, schedule ScheduleManager, blocked BlockedManager, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{
		finder:   finder,
		schedule: schedule,
		blocked:  blocked,
		apiKey:   apiKey,
		logger:   logger.With().Str("component", "api").Logger(),
		now:      time.Now,
	}
}

// Handler builds the router. Every /api/v1 route requires the x-api-key header
// when an API key is configured.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.accessLog)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Route("/chefs/{chefID}", func(r chi.Router) {
			r.Get("/slots", s.handleSlots)
			r.Post("/slots/search", s.handleSlotSearch)

			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", s.handleRulesList)
				r.Post("/", s.handleRuleCreate)
				r.Delete("/days/{day}", s.handleRulesDeleteDay)
				r.Put("/{ruleID}", s.handleRuleUpdate)
				r.Delete("/{ruleID}", s.handleRuleDelete)
			})

			r.Route("/blocked-dates", func(r chi.Router) {
				r.Get("/", s.handleBlockedList)
				r.Post("/", s.handleBlockedCreate)
				r.Post("/range", s.handleBlockedRange)
				r.Put("/{blockID}", s.handleBlockedUpdate)
				r.Delete("/{blockID}", s.handleBlockedDelete)
			})
		})
	})
	return r
}

// NewHTTPServer wraps the handler with the configured timeouts.
func (s *Server) NewHTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
