package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
)

// flaky fails the first n probes, then answers with verdict.
type flaky struct {
	mu      sync.Mutex
	n       int
	verdict bool
	calls   int
	last    Probe
}

func (f *flaky) Probe(_ context.Context, p Probe) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = p
	if f.calls <= f.n {
		return false, errors.New("connection reset")
	}
	return f.verdict, nil
}

func TestEnvelope_Wrap(t *testing.T) {
	p := DefaultEnvelope().Wrap("LENGTH(database())>9")
	assert.Equal(t, "LENGTH(database())>9", p.Condition)
	assert.Equal(t, "' AND LENGTH(database())>9-- -", p.Payload)
	assert.Equal(t, p.Payload, p.String())

	custom := Envelope{Prefix: "1 AND ", Terminator: ""}.Wrap(Tautology)
	assert.Equal(t, "1 AND 1=1", custom.Payload)
}

func TestSession_Ask(t *testing.T) {
	f := &flaky{verdict: true}
	s := NewSession(f, DefaultEnvelope())

	ok, err := s.Ask(context.Background(), Tautology)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "' AND 1=1-- -", f.last.Payload)
	assert.Equal(t, DefaultEnvelope(), s.Envelope())
}

func TestFalseOnError(t *testing.T) {
	f := &flaky{n: 1, verdict: true}
	o := Guard(f, FalseOnError{Log: logger.Nop()})

	ok, err := o.Probe(context.Background(), Probe{Condition: "1=1"})
	require.NoError(t, err)
	assert.False(t, ok, "failed probe reads as false")

	ok, err = o.Probe(context.Background(), Probe{Condition: "1=1"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFalseOnError_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := Guard(&flaky{n: 1}, FalseOnError{})
	_, err := o.Probe(ctx, Probe{})
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
}

func TestRetryThenFail(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		attempts  int
		wantErr   bool
		wantCalls int
	}{
		{name: "first try", failures: 0, attempts: 3, wantCalls: 1},
		{name: "recovers", failures: 2, attempts: 3, wantCalls: 3},
		{name: "gives up", failures: 5, attempts: 3, wantErr: true, wantCalls: 3},
		{name: "zero attempts means one", failures: 1, attempts: 0, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &flaky{n: tt.failures, verdict: true}
			o := Guard(f, RetryThenFail{Attempts: tt.attempts, Backoff: time.Millisecond})

			ok, err := o.Probe(context.Background(), Probe{Condition: "1=1"})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.IsTransport(err))
			} else {
				require.NoError(t, err)
				assert.True(t, ok)
			}
			assert.Equal(t, tt.wantCalls, f.calls)
		})
	}
}

func TestRetryThenFail_KeepsTransportError(t *testing.T) {
	cause := errs.New(errs.ErrKindTransport, "status 502")
	o := Guard(Func(func(context.Context, Probe) (bool, error) {
		return false, cause
	}), RetryThenFail{Attempts: 2})

	_, err := o.Probe(context.Background(), Probe{})
	assert.Same(t, cause, err)
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("", 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyFalseOnError, p.Name())

	p, err = PolicyByName("Retry-Then-Fail", 4, time.Second, nil)
	require.NoError(t, err)
	require.IsType(t, RetryThenFail{}, p)
	assert.Equal(t, 4, p.(RetryThenFail).Attempts)

	_, err = PolicyByName("ignore", 0, 0, nil)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestCounter(t *testing.T) {
	f := &flaky{n: 2, verdict: true}
	c := NewCounter(f)
	o := Guard(c, RetryThenFail{Attempts: 3})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = o.Probe(context.Background(), Probe{})
		}()
	}
	wg.Wait()

	st := c.Stats()
	assert.Equal(t, int64(6), st.Probes)
	assert.Equal(t, int64(2), st.Failures)
}
