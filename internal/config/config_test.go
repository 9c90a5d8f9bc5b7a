package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("DESKBOOK_TEST_API_KEY", "secret")
	path := writeFile(t, t.TempDir(), "config.yaml", `
server:
  address: ":9999"
  timezone: "Europe/Berlin"
api:
  base_url: "http://desks.internal:5000"
  api_key: "${DESKBOOK_TEST_API_KEY}"
  timeout_seconds: 3
  cache_ttl_seconds: 15
session:
  timeout_minutes: 5
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, 3*time.Second, cfg.APITimeout())
	assert.Equal(t, 15*time.Second, cfg.CacheTTL())
	assert.Equal(t, 5*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "{}\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, "deskbook_session", cfg.Session.CookieName)
	assert.Equal(t, 10*time.Second, cfg.APITimeout())
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 8090, cfg.Monitoring.HealthCheckPort)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())

	perMinute, burst := cfg.RateLimitPerMinute()
	assert.Equal(t, 120, perMinute)
	assert.Equal(t, 20, burst)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "bad.yaml", "server: [unclosed\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "tz.yaml", "server:\n  timezone: Mars/Olympus\n"))
	assert.ErrorContains(t, err, "server.timezone")
}

func TestLoadService(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "deskservice.yaml", `
database:
  path: "`+filepath.Join(dir, "nested", "desks.db")+`"
backup:
  enabled: true
  interval_hours: 6
`)

	cfg, err := LoadService(path)
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Address)
	assert.Equal(t, "configs/desks.yaml", cfg.Desks.File)
	assert.Equal(t, 30*time.Second, cfg.ReloadInterval())
	assert.Equal(t, 6*time.Hour, cfg.BackupInterval())
	assert.DirExists(t, filepath.Join(dir, "nested"))
}

func TestDesksConfig_Validate(t *testing.T) {
	disabled := false
	tests := []struct {
		name    string
		cfg     DesksConfig
		wantErr string
	}{
		{"valid", DesksConfig{Desks: []DeskConfig{{ID: 1, Name: "Desk A"}, {ID: 2, Name: "Desk B", IsActive: &disabled}}}, ""},
		{"empty", DesksConfig{}, "no desks defined"},
		{"non-positive id", DesksConfig{Desks: []DeskConfig{{ID: 0, Name: "Desk A"}}}, "id must be positive"},
		{"duplicate id", DesksConfig{Desks: []DeskConfig{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}}}, "duplicate id 1"},
		{"missing name", DesksConfig{Desks: []DeskConfig{{ID: 1}}}, "name is required"},
		{"duplicate name", DesksConfig{Desks: []DeskConfig{{ID: 1, Name: "A"}, {ID: 2, Name: "A"}}}, "duplicate name 'A'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	assert.True(t, DeskConfig{ID: 1}.Active())
	assert.False(t, DeskConfig{ID: 1, IsActive: &disabled}.Active())
}

func TestWatchDesks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "desks.yaml", "desks:\n  - id: 1\n    name: Desk A\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	var lastCount atomic.Int32
	err := WatchDesks(ctx, nil, path, 10*time.Millisecond, func(cfg *DesksConfig) {
		calls.Add(1)
		lastCount.Store(int32(len(cfg.Desks)))
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	writeFile(t, dir, "desks.yaml", "desks:\n  - id: 1\n    name: Desk A\n  - id: 2\n    name: Desk B\n")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool { return lastCount.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestWatchDesks_InitialLoadError(t *testing.T) {
	err := WatchDesks(context.Background(), nil, filepath.Join(t.TempDir(), "missing.yaml"), time.Second, nil)
	assert.Error(t, err)
}

func TestDesksPoller_InvalidRevision(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "desks.yaml", "desks:\n  - id: 1\n    name: Desk A\n")
	info, err := os.Stat(path)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	var got []*DesksConfig
	p := &desksPoller{path: path, logger: &logger, handled: info.ModTime(), onUpdate: func(cfg *DesksConfig) {
		got = append(got, cfg)
	}}

	writeFile(t, dir, "desks.yaml", "desks:\n  - id: 1\n    name: Desk A\n  - id: 1\n    name: Desk B\n")
	bad := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, bad, bad))

	p.poll()
	assert.Empty(t, got, "an invalid revision is never applied")
	assert.Contains(t, logs.String(), "Rejected desks config")
	assert.Contains(t, logs.String(), "duplicate id 1")
	assert.Contains(t, logs.String(), path)

	logs.Reset()
	p.poll()
	p.poll()
	assert.Empty(t, logs.String(), "the same revision is reported once")
	assert.Empty(t, got)

	writeFile(t, dir, "desks.yaml", "desks:\n  - id: 1\n    name: Desk A\n  - id: 2\n    name: Desk B\n")
	good := bad.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, good, good))

	p.poll()
	require.Len(t, got, 1)
	assert.Len(t, got[0].Desks, 2)
	assert.Contains(t, logs.String(), "Desks config reloaded")
}

func TestDesksPoller_MissingFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "desks.yaml", "desks:\n  - id: 1\n    name: Desk A\n")
	info, err := os.Stat(path)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	calls := 0
	p := &desksPoller{path: path, logger: &logger, handled: info.ModTime(), onUpdate: func(*DesksConfig) { calls++ }}

	require.NoError(t, os.Remove(path))
	p.poll()
	p.poll()
	assert.Equal(t, 1, strings.Count(logs.String(), "Cannot stat desks config"))
	assert.Equal(t, 0, calls)

	writeFile(t, dir, "desks.yaml", "desks:\n  - id: 3\n    name: Desk C\n")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	p.poll()
	assert.Contains(t, logs.String(), "Desks config is readable again")
	assert.Equal(t, 1, calls)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "DESKBOOK_TEST_DOTENV_KEY=from-dotenv\n")
	prev := dotEnvFile
	dotEnvFile = envPath
	t.Cleanup(func() {
		dotEnvFile = prev
		_ = os.Unsetenv("DESKBOOK_TEST_DOTENV_KEY")
	})

	path := writeFile(t, dir, "config.yaml", "api:\n  api_key: \"${DESKBOOK_TEST_DOTENV_KEY}\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.API.APIKey)

	dotEnvFile = filepath.Join(dir, "missing.env")
	_, err = Load(path)
	assert.NoError(t, err, "a missing .env file is not an error")
}
