package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/koustreak/blindsight/internal/errs"
)

// EnvPrefix prefixes every environment variable, e.g. BLINDSIGHT_SCAN_MAX_ROWS.
const EnvPrefix = "BLINDSIGHT"

// NewViper returns a viper instance with the defaults registered and
// environment lookup enabled. Callers may bind flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// Load reads path (when set) into v and decodes the merged settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can see it during
// Unmarshal.
func setDefaults(v *viper.Viper, c *Config) {
	t := c.Target
	v.SetDefault("target.url", t.URL)
	v.SetDefault("target.method", t.Method)
	v.SetDefault("target.cookie_name", t.CookieName)
	v.SetDefault("target.tracking_id", t.TrackingID)
	v.SetDefault("target.cookies", map[string]string{})
	v.SetDefault("target.headers", map[string]string{})
	v.SetDefault("target.encode_payload", t.EncodePayload)
	v.SetDefault("target.success_marker", t.SuccessMarker)
	v.SetDefault("target.match_text", t.MatchText)
	v.SetDefault("target.invert", t.Invert)
	v.SetDefault("target.timeout", t.Timeout)
	v.SetDefault("target.user_agent", t.UserAgent)
	v.SetDefault("target.insecure_skip_verify", t.InsecureSkipVerify)
	v.SetDefault("target.proxy", t.Proxy)
	v.SetDefault("target.follow_redirects", t.FollowRedirects)
	v.SetDefault("target.max_body_bytes", t.MaxBodyBytes)

	v.SetDefault("envelope.prefix", c.Envelope.Prefix)
	v.SetDefault("envelope.terminator", c.Envelope.Terminator)

	s := c.Scan
	v.SetDefault("scan.max_rows", s.MaxRows)
	v.SetDefault("scan.tables", s.Tables)
	v.SetDefault("scan.dialects", s.Dialects)
	v.SetDefault("scan.strategy", s.Strategy)
	v.SetDefault("scan.char_workers", s.CharWorkers)
	v.SetDefault("scan.table_workers", s.TableWorkers)
	v.SetDefault("scan.preflight", s.Preflight)
	v.SetDefault("scan.ceilings.tables", s.Ceilings.Tables)
	v.SetDefault("scan.ceilings.columns", s.Ceilings.Columns)
	v.SetDefault("scan.ceilings.rows", s.Ceilings.Rows)
	v.SetDefault("scan.ceilings.name_length", s.Ceilings.NameLength)
	v.SetDefault("scan.ceilings.cell_length", s.Ceilings.CellLength)
	v.SetDefault("scan.ceilings.escalations", s.Ceilings.Escalations)
	v.SetDefault("scan.failure_policy", s.FailurePolicy)
	v.SetDefault("scan.retry_attempts", s.RetryAttempts)
	v.SetDefault("scan.retry_backoff", s.RetryBackoff)

	l := c.Lab
	v.SetDefault("lab.driver", string(l.Driver))
	v.SetDefault("lab.dsn", l.DSN)
	v.SetDefault("lab.max_conns", l.MaxConns)
	v.SetDefault("lab.min_conns", l.MinConns)
	v.SetDefault("lab.max_conn_lifetime", l.MaxConnLifetime)
	v.SetDefault("lab.max_conn_idle_time", l.MaxConnIdleTime)
	v.SetDefault("lab.connect_timeout", l.ConnectTimeout)
	v.SetDefault("lab.query_timeout", l.QueryTimeout)

	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.time_format", c.Log.TimeFormat)
	v.SetDefault("log.no_color", c.Log.NoColor)

	o := c.Output
	v.SetDefault("output.store", o.Store)
	v.SetDefault("output.directory", o.Directory)
	v.SetDefault("output.format", o.Format)
	v.SetDefault("output.url_ttl", o.URLTTL)
	v.SetDefault("output.minio.provider", string(o.MinIO.Provider))
	v.SetDefault("output.minio.endpoint", o.MinIO.Endpoint)
	v.SetDefault("output.minio.access_key", o.MinIO.AccessKey)
	v.SetDefault("output.minio.secret_key", o.MinIO.SecretKey)
	v.SetDefault("output.minio.use_ssl", o.MinIO.UseSSL)
	v.SetDefault("output.minio.region", o.MinIO.Region)
	v.SetDefault("output.minio.bucket", o.MinIO.Bucket)
	v.SetDefault("output.minio.prefix", o.MinIO.Prefix)

	v.SetDefault("serve.addr", c.Serve.Addr)
}
