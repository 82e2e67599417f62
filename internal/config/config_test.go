package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blindsight/internal/database"
	"github.com/koustreak/blindsight/internal/errs"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "TrackingId", cfg.Target.CookieName)
	assert.Equal(t, "Welcome back!", cfg.Target.SuccessMarker)
	assert.Equal(t, "' AND ", cfg.Envelope.Prefix)
	assert.Equal(t, "-- -", cfg.Envelope.Terminator)
	assert.Equal(t, 10, cfg.Scan.MaxRows)
	assert.Equal(t, 50, cfg.Scan.Ceilings.Tables)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, def.Scan.MaxRows, cfg.Scan.MaxRows)
	assert.Equal(t, def.Scan.Ceilings, cfg.Scan.Ceilings)
	assert.Equal(t, def.Scan.RetryBackoff, cfg.Scan.RetryBackoff)
	assert.Empty(t, cfg.Scan.Tables)
	assert.Equal(t, 10*time.Second, cfg.Target.Timeout)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "blindsight.yaml", `
target:
  url: https://lab.example/filter?category=Gifts
  tracking_id: xyz
  cookies:
    session: s3ss
  timeout: 3s
scan:
  max_rows: 0
  tables: [users]
  strategy: bisect
  ceilings:
    rows: 200
    escalations: 2
lab:
  driver: mysql
  dsn: root:pw@tcp(localhost:3306)/shop
output:
  store: none
  format: toml
`)
	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://lab.example/filter?category=Gifts", cfg.Target.URL)
	assert.Equal(t, "xyz", cfg.Target.TrackingID)
	assert.Equal(t, map[string]string{"session": "s3ss"}, cfg.Target.Cookies)
	assert.Equal(t, 3*time.Second, cfg.Target.Timeout)
	assert.Equal(t, "TrackingId", cfg.Target.CookieName)

	assert.Equal(t, 0, cfg.Scan.MaxRows)
	assert.Equal(t, []string{"users"}, cfg.Scan.Tables)
	assert.Equal(t, "bisect", cfg.Scan.Strategy)
	assert.Equal(t, 200, cfg.Scan.Ceilings.Rows)
	assert.Equal(t, 2, cfg.Scan.Ceilings.Escalations)
	assert.Equal(t, 50, cfg.Scan.Ceilings.Columns)

	assert.Equal(t, database.DriverMySQL, cfg.Lab.Driver)
	assert.Equal(t, StoreNone, cfg.Output.Store)
	assert.Equal(t, "toml", cfg.Output.Format)
}

func TestLoad_TOMLFile(t *testing.T) {
	path := writeFile(t, "blindsight.toml", `
[scan]
failure_policy = "retry-then-fail"
retry_attempts = 5
retry_backoff = "250ms"

[serve]
addr = ":9090"
`)
	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "retry-then-fail", cfg.Scan.FailurePolicy)
	assert.Equal(t, 5, cfg.Scan.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Scan.RetryBackoff)
	assert.Equal(t, ":9090", cfg.Serve.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "blindsight.yaml", "scan:\n  max_rows: 5\n")
	t.Setenv("BLINDSIGHT_SCAN_MAX_ROWS", "25")
	t.Setenv("BLINDSIGHT_TARGET_SUCCESS_MARKER", "Hello")
	t.Setenv("BLINDSIGHT_SCAN_PREFLIGHT", "false")
	t.Setenv("BLINDSIGHT_SCAN_TABLES", "users,orders")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Scan.MaxRows)
	assert.Equal(t, "Hello", cfg.Target.SuccessMarker)
	assert.False(t, cfg.Scan.Preflight)
	assert.Equal(t, []string{"users", "orders"}, cfg.Scan.Tables)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errs.IsInvalidInput(err))

	path := writeFile(t, "bad.yaml", "scan:\n  strategy: guess\n")
	_, err = Load(NewViper(), path)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative rows", func(c *Config) { c.Scan.MaxRows = -1 }},
		{"zero workers", func(c *Config) { c.Scan.TableWorkers = 0 }},
		{"zero ceiling", func(c *Config) { c.Scan.Ceilings.CellLength = 0 }},
		{"negative escalations", func(c *Config) { c.Scan.Ceilings.Escalations = -1 }},
		{"unknown dialect", func(c *Config) { c.Scan.Dialects = []string{"db2"} }},
		{"unknown policy", func(c *Config) { c.Scan.FailurePolicy = "ignore" }},
		{"unknown store", func(c *Config) { c.Output.Store = "s3" }},
		{"dir without directory", func(c *Config) { c.Output.Directory = "" }},
		{"minio without endpoint", func(c *Config) {
			c.Output.Store = StoreMinIO
			c.Output.MinIO.Endpoint = ""
		}},
		{"unknown format", func(c *Config) { c.Output.Format = "csv" }},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.True(t, errs.IsInvalidInput(err), "got %v", err)
		})
	}
}
