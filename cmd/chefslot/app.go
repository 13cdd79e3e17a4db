package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"chefslot/internal/availability"
	"chefslot/internal/conflict"
	"chefslot/internal/db"
	"chefslot/internal/events"
	"chefslot/internal/manager"
	"chefslot/internal/upstream"
)

// app is the wired engine shared by the commands.
type app struct {
	db       *db.DB
	redis    *redis.Client
	bus      *events.Bus
	travel   *upstream.TravelClient
	cooking  *upstream.CookingClient
	timezone *upstream.TimezoneClient
	checker  *conflict.Checker
	finder   *availability.Finder
	schedule *manager.ScheduleService
	blocked  *manager.BlockedDateService
}

func newApp(ctx context.Context) (*app, error) {
	database, err := db.Open(cfg.Database.Path, &logger)
	if err != nil {
		return nil, err
	}

	a := &app{db: database}
	if cfg.Redis.Address != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("Redis unavailable, estimator cache degraded")
		}
		cancel()
	}

	// One limiter is shared by all estimators.
	limiter := rate.NewLimiter(rate.Limit(cfg.Upstream.RatePerSecond), cfg.Upstream.RateBurst)
	opts := func(timeout time.Duration, baseURL, apiKey string) upstream.Options {
		return upstream.Options{
			BaseURL:  baseURL,
			APIKey:   apiKey,
			Timeout:  timeout,
			Limiter:  limiter,
			Redis:    a.redis,
			CacheTTL: cfg.CacheTTL(),
		}
	}
	up := cfg.Upstream
	a.travel = upstream.NewTravelClient(opts(up.Travel.Timeout(), up.Travel.BaseURL, up.Travel.APIKey))
	a.cooking = upstream.NewCookingClient(opts(up.Cooking.Timeout(), up.Cooking.BaseURL, up.Cooking.APIKey))
	a.timezone = upstream.NewTimezoneClient(opts(up.Timezone.Timeout(), up.Timezone.BaseURL, up.Timezone.APIKey))

	rules := cfg.Rules()
	a.checker = conflict.NewChecker(database, rules.RestBuffer, &logger)
	a.finder = availability.NewFinder(database, a.checker, availability.Estimators{
		Timezone: a.timezone,
		Travel:   a.travel,
		Cooking:  a.cooking,
	}, rules.MinNotice, &logger)

	a.bus = events.NewBus(&logger)
	a.bus.SubscribeAll(events.AuditLogger(&logger))

	if a.schedule, err = manager.NewScheduleService(database, a.checker, a.bus, rules, &logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("schedule service: %w", err)
	}
	if a.blocked, err = manager.NewBlockedDateService(database, a.checker, a.bus, rules, &logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("blocked date service: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		logger.Error().Err(err).Msg("Close database")
	}
}
