package httporacle

import (
	"net/url"
	"strings"
	"time"

	"github.com/koustreak/blindsight/internal/errs"
)

// Config describes the injection point and how a verdict is read back.
type Config struct {
	// URL is the page that reflects the boolean outcome.
	URL    string `mapstructure:"url"`
	Method string `mapstructure:"method"`

	// CookieName is the cookie carrying the payload; its value is
	// TrackingID followed by the payload.
	CookieName string `mapstructure:"cookie_name"`
	TrackingID string `mapstructure:"tracking_id"`

	// Cookies are sent verbatim alongside the tracking cookie, e.g. session.
	Cookies map[string]string `mapstructure:"cookies"`
	Headers map[string]string `mapstructure:"headers"`

	// EncodePayload percent-encodes the payload. Needed when conditions can
	// contain ';' and the application decodes cookie values.
	EncodePayload bool `mapstructure:"encode_payload"`

	// SuccessMarker is searched for in the response body. Its presence means
	// true unless Invert is set.
	SuccessMarker string `mapstructure:"success_marker"`
	// MatchText matches against the page's rendered text instead of raw
	// markup, so tags or entities inside the marker do not matter.
	MatchText bool `mapstructure:"match_text"`
	Invert    bool `mapstructure:"invert"`

	Timeout            time.Duration `mapstructure:"timeout"`
	UserAgent          string        `mapstructure:"user_agent"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Proxy              string        `mapstructure:"proxy"`
	FollowRedirects    bool          `mapstructure:"follow_redirects"`

	// MaxBodyBytes caps how much of each response is read.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// DefaultConfig returns settings for the classic tracking-cookie lab.
func DefaultConfig(target string) *Config {
	return &Config{
		URL:           target,
		Method:        "GET",
		CookieName:    "TrackingId",
		SuccessMarker: "Welcome back!",
		Timeout:       10 * time.Second,
		UserAgent:     "blindsight/1.0",
		MaxBodyBytes:  2 << 20,
	}
}

// Validate checks the fields a request cannot be built without.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errs.New(errs.ErrKindInvalidInput, "target URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.Newf(errs.ErrKindInvalidInput, "target URL %q must be an absolute http(s) URL", c.URL)
	}
	if strings.TrimSpace(c.CookieName) == "" {
		return errs.New(errs.ErrKindInvalidInput, "cookie name is required")
	}
	if c.SuccessMarker == "" {
		return errs.New(errs.ErrKindInvalidInput, "success marker is required")
	}
	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "invalid proxy URL", err)
		}
	}
	return nil
}
