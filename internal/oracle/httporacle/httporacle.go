// Package httporacle delivers probes to a web application through a cookie
// and reads the verdict from the response body.
package httporacle

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/oracle"
)

// Oracle implements oracle.Oracle over HTTP. It is safe for concurrent use.
type Oracle struct {
	cfg    Config
	client *http.Client
	cookie string // fixed cookies, pre-rendered
	log    *logger.Logger
}

// New validates cfg and builds the HTTP client.
func New(cfg *Config, log *logger.Logger) (*Oracle, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "http oracle config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Global()
	}
	c := *cfg
	if c.Method == "" {
		c.Method = http.MethodGet
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultConfig("").MaxBodyBytes
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.InsecureSkipVerify, //nolint:gosec // lab targets use self-signed certs
		},
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if c.Proxy != "" {
		proxyURL, _ := url.Parse(c.Proxy)
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to create cookie jar", err)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   c.Timeout,
		Jar:       &skipJar{CookieJar: jar, skip: c.CookieName},
	}
	if !c.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Oracle{
		cfg:    c,
		client: client,
		cookie: renderCookies(c.Cookies),
		log:    log.Component("httporacle"),
	}, nil
}

// Probe sends one request carrying p.Payload and reports whether the
// success marker came back.
func (o *Oracle) Probe(ctx context.Context, p oracle.Probe) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, o.cfg.Method, o.cfg.URL, nil)
	if err != nil {
		return false, errs.Wrap(errs.ErrKindInvalidInput, "failed to build request", err)
	}
	// net/http sanitises cookie values it considers invalid (quotes, spaces,
	// backslashes), which would mangle the payload. The header is set raw.
	req.Header.Set("Cookie", o.CookieHeader(p.Payload))
	if o.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", o.cfg.UserAgent)
	}
	for k, v := range o.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false, transportError("request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, o.cfg.MaxBodyBytes))
	if err != nil {
		return false, transportError("failed to read response", err)
	}

	found := o.match(body)
	verdict := found != o.cfg.Invert
	if o.log.TraceEnabled() {
		o.log.TraceWith("probe answered", map[string]interface{}{
			"condition": p.Condition,
			"status":    resp.StatusCode,
			"bytes":     len(body),
			"verdict":   verdict,
		})
	}
	return verdict, nil
}

// CookieHeader renders the Cookie header for payload.
func (o *Oracle) CookieHeader(payload string) string {
	if o.cfg.EncodePayload {
		payload = url.QueryEscape(payload)
	}
	h := o.cfg.CookieName + "=" + o.cfg.TrackingID + payload
	if o.cookie != "" {
		h += "; " + o.cookie
	}
	return h
}

func (o *Oracle) match(body []byte) bool {
	if o.cfg.MatchText {
		return strings.Contains(visibleText(body), o.cfg.SuccessMarker)
	}
	return bytes.Contains(body, []byte(o.cfg.SuccessMarker))
}

func renderCookies(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for n := range cookies {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+"="+cookies[n])
	}
	return strings.Join(parts, "; ")
}

func transportError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	return errs.Wrap(errs.ErrKindTransport, msg, err)
}

// skipJar keeps server-set cookies (session refreshes) but never stores the
// injection cookie, which would otherwise be sent twice.
type skipJar struct {
	http.CookieJar
	skip string
}

func (j *skipJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	kept := cookies[:0:0]
	for _, c := range cookies {
		if c.Name != j.skip {
			kept = append(kept, c)
		}
	}
	if len(kept) > 0 {
		j.CookieJar.SetCookies(u, kept)
	}
}
