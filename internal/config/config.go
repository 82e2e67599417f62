// Package config loads blindsight's settings with viper.
//
// Precedence, highest first: command-line flags bound by the CLI,
// BLINDSIGHT_* environment variables, the config file (YAML, TOML or JSON),
// and DefaultConfig.
package config

import (
	"strings"
	"time"

	"github.com/koustreak/blindsight/internal/database"
	"github.com/koustreak/blindsight/internal/dialect"
	"github.com/koustreak/blindsight/internal/enumerate"
	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/filestore"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/oracle"
	"github.com/koustreak/blindsight/internal/oracle/httporacle"
	"github.com/koustreak/blindsight/internal/resolve"
	"github.com/koustreak/blindsight/internal/result"
)

// Config is the root of every setting.
type Config struct {
	Target   httporacle.Config `mapstructure:"target"`
	Envelope EnvelopeConfig    `mapstructure:"envelope"`
	Scan     ScanConfig        `mapstructure:"scan"`
	Lab      database.Config   `mapstructure:"lab"`
	Log      logger.Config     `mapstructure:"log"`
	Output   OutputConfig      `mapstructure:"output"`
	Serve    ServeConfig       `mapstructure:"serve"`
}

// EnvelopeConfig shapes every payload as <prefix><condition><terminator>.
type EnvelopeConfig struct {
	Prefix     string `mapstructure:"prefix"`
	Terminator string `mapstructure:"terminator"`
}

// ScanConfig tunes the engine.
type ScanConfig struct {
	MaxRows  int      `mapstructure:"max_rows"`
	Tables   []string `mapstructure:"tables"`
	Dialects []string `mapstructure:"dialects"`

	// Strategy is "scan" (charset walk) or "bisect".
	Strategy     string `mapstructure:"strategy"`
	CharWorkers  int    `mapstructure:"char_workers"`
	TableWorkers int    `mapstructure:"table_workers"`
	Preflight    bool   `mapstructure:"preflight"`

	Ceilings enumerate.Ceilings `mapstructure:"ceilings"`

	FailurePolicy string        `mapstructure:"failure_policy"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// Store kinds for OutputConfig.Store.
const (
	StoreDir   = "dir"
	StoreMinIO = "minio"
	StoreNone  = "none"
)

// OutputConfig selects where results are written.
type OutputConfig struct {
	Store     string           `mapstructure:"store"`
	Directory string           `mapstructure:"directory"`
	Format    string           `mapstructure:"format"`
	MinIO     filestore.Config `mapstructure:"minio"`
	// URLTTL is the lifetime of presigned result links.
	URLTTL time.Duration `mapstructure:"url_ttl"`
}

// ServeConfig configures the results browser.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	env := oracle.DefaultEnvelope()
	log := logger.DefaultConfig()
	log.Format = "console"
	log.Output = nil

	return &Config{
		Target:   *httporacle.DefaultConfig(""),
		Envelope: EnvelopeConfig{Prefix: env.Prefix, Terminator: env.Terminator},
		Scan: ScanConfig{
			MaxRows:       10,
			Strategy:      string(resolve.CharsetScan),
			CharWorkers:   1,
			TableWorkers:  1,
			Preflight:     true,
			Ceilings:      enumerate.DefaultCeilings(),
			FailurePolicy: oracle.PolicyFalseOnError,
			RetryAttempts: 3,
			RetryBackoff:  500 * time.Millisecond,
		},
		Lab: *database.DefaultConfig(database.DriverSQLite, ""),
		Log: *log,
		Output: OutputConfig{
			Store:     StoreDir,
			Directory: "results",
			Format:    string(result.FormatJSON),
			MinIO:     *filestore.DefaultConfig("localhost:9000", "", ""),
			URLTTL:    15 * time.Minute,
		},
		Serve: ServeConfig{Addr: "127.0.0.1:8080"},
	}
}

// Validate checks settings shared by every command. Target and lab settings
// are checked by the command that uses them.
func (c *Config) Validate() error {
	if err := c.Scan.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "off":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "invalid log format %q", c.Log.Format)
	}
	return nil
}

// Validate checks the engine settings.
func (s *ScanConfig) Validate() error {
	if s.MaxRows < 0 {
		return errs.New(errs.ErrKindInvalidInput, "scan.max_rows cannot be negative")
	}
	if s.TableWorkers < 1 || s.CharWorkers < 1 {
		return errs.New(errs.ErrKindInvalidInput, "scan workers must be at least 1")
	}
	c := s.Ceilings
	if c.Tables < 1 || c.Columns < 1 || c.Rows < 1 || c.NameLength < 1 || c.CellLength < 1 {
		return errs.New(errs.ErrKindInvalidInput, "scan.ceilings must all be positive")
	}
	if c.Escalations < 0 {
		return errs.New(errs.ErrKindInvalidInput, "scan.ceilings.escalations cannot be negative")
	}
	if _, err := resolve.ParseStrategy(s.Strategy); err != nil {
		return err
	}
	if _, err := dialect.Select(s.Dialects); err != nil {
		return err
	}
	if _, err := oracle.PolicyByName(s.FailurePolicy, s.RetryAttempts, s.RetryBackoff, nil); err != nil {
		return err
	}
	return nil
}

// Validate checks the output settings.
func (o *OutputConfig) Validate() error {
	if _, err := result.ParseFormat(o.Format); err != nil {
		return err
	}
	switch o.Store {
	case StoreDir:
		if o.Directory == "" {
			return errs.New(errs.ErrKindInvalidInput, "output.directory is required for the dir store")
		}
	case StoreMinIO:
		return o.MinIO.Validate()
	case StoreNone:
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown output store %q", o.Store)
	}
	return nil
}
