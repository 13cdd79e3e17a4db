package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"chefslot/internal/interval"
)

type Config struct {
	Server struct {
		Address         string `yaml:"address"`
		APIKey          string `yaml:"api_key"`
		ReadTimeoutSec  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSec int    `yaml:"write_timeout_seconds"`
		GRPCPort        int    `yaml:"grpc_port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Schedule      string `yaml:"schedule"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Upstream struct {
		Travel          UpstreamService `yaml:"travel"`
		Cooking         UpstreamService `yaml:"cooking"`
		Timezone        UpstreamService `yaml:"timezone"`
		RatePerSecond   float64         `yaml:"rate_per_second"`
		RateBurst       int             `yaml:"rate_burst"`
		CacheTTLSeconds int             `yaml:"cache_ttl_seconds"`
	} `yaml:"upstream"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Scheduling struct {
		WorkStart           string `yaml:"work_start"`
		WorkEnd             string `yaml:"work_end"`
		MinSessionMinutes   int    `yaml:"min_session_minutes"`
		MaxSessionsPerDay   int    `yaml:"max_sessions_per_day"`
		MinGapMinutes       int    `yaml:"min_gap_minutes"`
		RestBufferMinutes   *int   `yaml:"rest_buffer_minutes"`
		MinNoticeHours      *int   `yaml:"min_notice_hours"`
		LookaheadDays       int    `yaml:"lookahead_days"`
		MaxBlockedRangeDays int    `yaml:"max_blocked_range_days"`
	} `yaml:"scheduling"`

	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

// UpstreamService describes one external estimator endpoint.
type UpstreamService struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured request timeout, 10s by default.
func (u UpstreamService) Timeout() time.Duration {
	if u.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(u.TimeoutSec) * time.Second
}

// Rules holds the business constants of the scheduling engine.
type Rules struct {
	WorkStart         string
	WorkEnd           string
	MinSession        time.Duration
	MaxSessionsPerDay int
	MinGap            time.Duration
	RestBuffer        time.Duration
	MinNotice         time.Duration
	LookaheadDays     int
	MaxRangeDays      int
}

// DefaultRules returns the rules used when the config leaves them unset.
func DefaultRules() Rules {
	return Rules{
		WorkStart:         "08:00",
		WorkEnd:           "22:00",
		MinSession:        60 * time.Minute,
		MaxSessionsPerDay: 3,
		MinGap:            60 * time.Minute,
		RestBuffer:        30 * time.Minute,
		MinNotice:         24 * time.Hour,
		LookaheadDays:     60,
		MaxRangeDays:      90,
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/chefslot.db"
	}
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "@every 24h"
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Upstream.RatePerSecond <= 0 {
		c.Upstream.RatePerSecond = 20
	}
	if c.Upstream.RateBurst <= 0 {
		c.Upstream.RateBurst = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	r := c.Rules()
	start, err := interval.ParseClock(r.WorkStart)
	if err != nil {
		return fmt.Errorf("scheduling.work_start: %w", err)
	}
	end, err := interval.ParseClock(r.WorkEnd)
	if err != nil {
		return fmt.Errorf("scheduling.work_end: %w", err)
	}
	if start >= end {
		return errors.New("scheduling.work_start must be before scheduling.work_end")
	}
	if r.RestBuffer < 0 {
		return errors.New("scheduling.rest_buffer_minutes must not be negative")
	}
	if r.MinNotice < 0 {
		return errors.New("scheduling.min_notice_hours must not be negative")
	}
	if r.MinSession > time.Duration(end-start)*time.Minute {
		return errors.New("scheduling.min_session_minutes exceeds the working bounds")
	}
	return nil
}

// Rules returns the scheduling constants with defaults applied.
func (c *Config) Rules() Rules {
	r := DefaultRules()
	s := c.Scheduling
	if s.WorkStart != "" {
		r.WorkStart = s.WorkStart
	}
	if s.WorkEnd != "" {
		r.WorkEnd = s.WorkEnd
	}
	if s.MinSessionMinutes > 0 {
		r.MinSession = time.Duration(s.MinSessionMinutes) * time.Minute
	}
	if s.MaxSessionsPerDay > 0 {
		r.MaxSessionsPerDay = s.MaxSessionsPerDay
	}
	if s.MinGapMinutes > 0 {
		r.MinGap = time.Duration(s.MinGapMinutes) * time.Minute
	}
	// Zero is a valid rest buffer and notice period; only an absent key takes the default.
	if s.RestBufferMinutes != nil {
		r.RestBuffer = time.Duration(*s.RestBufferMinutes) * time.Minute
	}
	if s.MinNoticeHours != nil {
		r.MinNotice = time.Duration(*s.MinNoticeHours) * time.Hour
	}
	if s.LookaheadDays > 0 {
		r.LookaheadDays = s.LookaheadDays
	}
	if s.MaxBlockedRangeDays > 0 {
		r.MaxRangeDays = s.MaxBlockedRangeDays
	}
	return r
}

func (c *Config) CacheTTL() time.Duration {
	if c.Upstream.CacheTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Upstream.CacheTTLSeconds) * time.Second
}
