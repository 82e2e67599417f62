// Package oracle defines the single capability the extraction engine is built
// on: a target that answers a crafted condition with true or false.
//
// Every component above this package talks only to Asker. Transports
// (httporacle, sqloracle) implement Oracle; the engine never sees raw
// responses, headers or timing.
//
// Usage:
//
//	transport := httporacle.New(cfg, log)
//	counter := oracle.NewCounter(transport)
//	guarded := oracle.Guard(counter, oracle.FalseOnError{Log: log})
//	session := oracle.NewSession(guarded, oracle.DefaultEnvelope())
//
//	ok, err := session.Ask(ctx, "LENGTH(database())>9")
package oracle

import "context"

// Probe is one crafted input. Condition is the bare boolean expression the
// engine wants evaluated; Payload is the same condition wrapped in the
// injection envelope, ready to be embedded by a transport.
type Probe struct {
	Condition string
	Payload   string
}

func (p Probe) String() string {
	return p.Payload
}

// Oracle sends one probe and reports the verdict. A non-nil error means the
// verdict is unknown (the request failed); what that means for the scan is
// decided by a FailurePolicy, never by the transport.
type Oracle interface {
	Probe(ctx context.Context, p Probe) (bool, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, p Probe) (bool, error)

func (f Func) Probe(ctx context.Context, p Probe) (bool, error) {
	return f(ctx, p)
}

// Asker is what resolvers and the detector consume: ask a condition, get a
// verdict.
type Asker interface {
	Ask(ctx context.Context, condition string) (bool, error)
}

// Envelope wraps a condition into the payload shape the injection point
// expects: <Prefix><condition><Terminator>.
type Envelope struct {
	Prefix     string
	Terminator string
}

// DefaultEnvelope closes a quoted string literal, ANDs the condition and
// comments out the rest of the statement. "-- -" keeps the comment valid on
// MySQL, which needs whitespace after the dashes.
func DefaultEnvelope() Envelope {
	return Envelope{Prefix: "' AND ", Terminator: "-- -"}
}

// Wrap builds the probe for condition.
func (e Envelope) Wrap(condition string) Probe {
	return Probe{Condition: condition, Payload: e.Prefix + condition + e.Terminator}
}

// Session binds an Oracle to an Envelope and implements Asker.
type Session struct {
	oracle   Oracle
	envelope Envelope
}

// NewSession returns a Session that wraps every condition with env before
// handing it to o.
func NewSession(o Oracle, env Envelope) *Session {
	return &Session{oracle: o, envelope: env}
}

// Ask wraps condition and probes the oracle once.
func (s *Session) Ask(ctx context.Context, condition string) (bool, error) {
	return s.oracle.Probe(ctx, s.envelope.Wrap(condition))
}

// Envelope returns the envelope the session wraps conditions with.
func (s *Session) Envelope() Envelope {
	return s.envelope
}

// Preflight conditions. They are valid on every supported engine.
const (
	Tautology     = "1=1"
	Contradiction = "1=2"
)
