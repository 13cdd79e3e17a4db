package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: "+filepath.Join(dir, "db", "chefslot.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "@every 24h", cfg.Backup.Schedule)
	assert.Equal(t, 7, cfg.Backup.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, DefaultRules(), cfg.Rules())
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("CHEFSLOT_TEST_KEY", "secret")
	dir := t.TempDir()
	path := writeConfig(t, `
server:
  api_key: ${CHEFSLOT_TEST_KEY}
database:
  path: `+filepath.Join(dir, "chefslot.db")+`
upstream:
  travel:
    base_url: http://travel.local
    timeout_seconds: 3
scheduling:
  work_start: "09:00"
  work_end: "21:00"
  rest_buffer_minutes: 45
  lookahead_days: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Travel.Timeout())
	assert.Equal(t, 10*time.Second, cfg.Upstream.Cooking.Timeout())

	rules := cfg.Rules()
	assert.Equal(t, "09:00", rules.WorkStart)
	assert.Equal(t, "21:00", rules.WorkEnd)
	assert.Equal(t, 45*time.Minute, rules.RestBuffer)
	assert.Equal(t, 30, rules.LookaheadDays)
	assert.Equal(t, 3, rules.MaxSessionsPerDay)
}

func TestValidateRejectsBadBounds(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"inverted", "22:00", "08:00"},
		{"equal", "10:00", "10:00"},
		{"malformed", "8am", "22:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.Scheduling.WorkStart = tt.start
			cfg.Scheduling.WorkEnd = tt.end
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadAllowsZeroBufferAndNotice(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "chefslot.db")+`
scheduling:
  rest_buffer_minutes: 0
  min_notice_hours: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	rules := cfg.Rules()
	assert.Zero(t, rules.RestBuffer)
	assert.Zero(t, rules.MinNotice)
}

func TestValidateRejectsNegativeDurations(t *testing.T) {
	negative := -1

	var cfg Config
	cfg.Scheduling.RestBufferMinutes = &negative
	assert.Error(t, cfg.Validate())

	cfg = Config{}
	cfg.Scheduling.MinNoticeHours = &negative
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
