package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
)

// FailurePolicy decides what a failed probe means. Apply sends p through
// next and returns the verdict the engine should act on.
type FailurePolicy interface {
	Apply(ctx context.Context, next Oracle, p Probe) (bool, error)
	Name() string
}

// Policy names accepted by PolicyByName.
const (
	PolicyFalseOnError  = "false-on-error"
	PolicyRetryThenFail = "retry-then-fail"
)

// FalseOnError collapses every transport failure into a false verdict and
// keeps the scan going. Binary searches can be biased low on a flaky link.
type FalseOnError struct {
	Log *logger.Logger
}

func (FalseOnError) Name() string { return PolicyFalseOnError }

func (f FalseOnError) Apply(ctx context.Context, next Oracle, p Probe) (bool, error) {
	ok, err := next.Probe(ctx, p)
	if err == nil {
		return ok, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, errs.Wrap(errs.ErrKindTimeout, "scan cancelled", ctxErr)
	}
	if f.Log != nil {
		f.Log.WarnWith("probe failed, treating as false", map[string]interface{}{
			"condition": p.Condition,
			"error":     err.Error(),
		})
	}
	return false, nil
}

// RetryThenFail retries a failed probe up to Attempts times in total and then
// surfaces the failure, aborting the scan. Backoff doubles after each try.
type RetryThenFail struct {
	Attempts int
	Backoff  time.Duration
	Log      *logger.Logger
}

func (RetryThenFail) Name() string { return PolicyRetryThenFail }

func (r RetryThenFail) Apply(ctx context.Context, next Oracle, p Probe) (bool, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := r.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := next.Probe(ctx, p)
		if err == nil {
			return ok, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return false, errs.Wrap(errs.ErrKindTimeout, "scan cancelled", ctx.Err())
		}
		if r.Log != nil {
			r.Log.Debugf("probe attempt %d/%d failed: %v", attempt, attempts, err)
		}
		if attempt == attempts || delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return false, errs.Wrap(errs.ErrKindTimeout, "scan cancelled", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	var e *errs.Error
	if errors.As(lastErr, &e) && e.Kind == errs.ErrKindTransport {
		return false, lastErr
	}
	return false, errs.Wrap(errs.ErrKindTransport,
		fmt.Sprintf("probe failed after %d attempts", attempts), lastErr)
}

// PolicyByName builds a policy from its configured name.
func PolicyByName(name string, attempts int, backoff time.Duration, log *logger.Logger) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyFalseOnError:
		return FalseOnError{Log: log}, nil
	case PolicyRetryThenFail:
		return RetryThenFail{Attempts: attempts, Backoff: backoff, Log: log}, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown failure policy %q", name)
	}
}

// Guard applies policy to every probe sent to o.
func Guard(o Oracle, policy FailurePolicy) Oracle {
	return Func(func(ctx context.Context, p Probe) (bool, error) {
		return policy.Apply(ctx, o, p)
	})
}
