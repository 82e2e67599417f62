// Package sqloracle answers probes by evaluating the bare condition against a
// real database. It stands in for a vulnerable application in the lab: the
// same dialect templates run end to end, with no HTTP in between.
package sqloracle

import (
	"context"
	"time"

	"github.com/koustreak/blindsight/internal/database"
	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/oracle"
)

// Oracle implements oracle.Oracle over a database.DB.
type Oracle struct {
	db      database.DB
	timeout time.Duration
	log     *logger.Logger
}

// New returns an Oracle that bounds each probe by timeout (zero disables the
// bound).
func New(db database.DB, timeout time.Duration, log *logger.Logger) *Oracle {
	if log == nil {
		log = logger.Global()
	}
	return &Oracle{db: db, timeout: timeout, log: log.Component("sqloracle")}
}

// Probe evaluates p.Condition. The envelope is meaningless without an
// injection point, so p.Payload is ignored.
//
// A statement the engine rejects (unknown function, bad cast, syntax) is
// false, the way a vulnerable page simply lacks its marker when the injected
// query errors. Connection failures and timeouts are returned as errors.
func (o *Oracle) Probe(ctx context.Context, p oracle.Probe) (bool, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	var verdict int
	err := o.db.QueryRow(ctx, Statement(p.Condition)).Scan(&verdict)
	switch {
	case err == nil:
		if o.log.TraceEnabled() {
			o.log.With().Str("condition", p.Condition).Int("verdict", verdict).Logger().Trace("probe answered")
		}
		return verdict == 1, nil
	case errs.IsQueryFailed(err):
		o.log.With().Str("condition", p.Condition).Err(err).Logger().Debug("condition rejected")
		return false, nil
	default:
		return false, err
	}
}

// Statement is the query a condition is evaluated with. NULL (for example
// LENGTH of a NULL cell) falls through to 0.
func Statement(condition string) string {
	return "SELECT CASE WHEN (" + condition + ") THEN 1 ELSE 0 END"
}
