// Package scan sequences a full extraction:
//
//	Idle → DetectingDialect → EnumeratingTables → {EnumeratingColumns → ExtractingData}* → Done | Failed
//
// No dialect match and an empty table listing are fatal. A table with no
// columns is skipped. Whatever was gathered is handed to the Saver even when
// the scan fails.
package scan

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/blindsight/internal/dialect"
	"github.com/koustreak/blindsight/internal/enumerate"
	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/oracle"
	"github.com/koustreak/blindsight/internal/progress"
	"github.com/koustreak/blindsight/internal/resolve"
	"github.com/koustreak/blindsight/internal/result"
)

// Saver persists a finished (or failed) scan and returns where it went.
type Saver interface {
	Save(ctx context.Context, doc *result.Document) (string, error)
}

// Options configures one scan.
type Options struct {
	// Target identifies the scanned endpoint in the result.
	Target string
	// Dialects to fingerprint, in order. Empty means dialect.Registry.
	Dialects []*dialect.Profile
	// MaxRows caps extracted rows per table; 0 extracts schema only.
	MaxRows int
	// Tables restricts column and row enumeration to these names.
	Tables   []string
	Ceilings enumerate.Ceilings
	Resolve  resolve.Options
	// TableWorkers processes that many tables concurrently.
	TableWorkers int
	// Preflight checks that the oracle separates true from false first.
	Preflight bool
}

// DefaultOptions extracts ten rows per table, one table at a time.
func DefaultOptions() Options {
	return Options{
		MaxRows:      10,
		Ceilings:     enumerate.DefaultCeilings(),
		Resolve:      resolve.Options{Strategy: resolve.CharsetScan},
		TableWorkers: 1,
		Preflight:    true,
	}
}

// Scanner runs scans. Counter, Saver and Reporter are optional.
type Scanner struct {
	asker    oracle.Asker
	opts     Options
	counter  *oracle.Counter
	saver    Saver
	reporter progress.Reporter
	log      *logger.Logger
}

// New builds a Scanner that asks through asker.
func New(asker oracle.Asker, opts Options, log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Global()
	}
	if len(opts.Dialects) == 0 {
		opts.Dialects = dialect.Registry
	}
	if opts.TableWorkers < 1 {
		opts.TableWorkers = 1
	}
	return &Scanner{
		asker:    asker,
		opts:     opts,
		reporter: progress.Discard,
		log:      log.Component("scan"),
	}
}

// WithCounter records probe statistics from c in every result.
func (s *Scanner) WithCounter(c *oracle.Counter) *Scanner {
	s.counter = c
	return s
}

// WithSaver persists every result through sv.
func (s *Scanner) WithSaver(sv Saver) *Scanner {
	s.saver = sv
	return s
}

// WithReporter sends progress events to r.
func (s *Scanner) WithReporter(r progress.Reporter) *Scanner {
	if r != nil {
		s.reporter = r
	}
	return s
}

// Run performs one scan. The result is always returned, also on error, and
// reflects everything recovered before the failure.
func (s *Scanner) Run(ctx context.Context) (*result.ScanResult, error) {
	res := result.New(s.opts.Target)
	log := s.log.With().Str("scan_id", res.ID()).Logger()
	ctx = log.WithContext(ctx)

	log.Info("starting scan")
	if s.opts.Target != "" {
		log.Infof("target: %s", s.opts.Target)
	}

	err := s.run(ctx, res)
	if err != nil {
		res.Fail(err)
		log.ErrorWith("scan failed", err, map[string]interface{}{"state": string(res.State())})
	} else {
		_ = res.Transition(result.StateDone)
		log.Info("scan finished")
	}

	if s.counter != nil {
		st := s.counter.Stats()
		res.SetProbeStats(st.Probes, st.Failures)
	}

	if s.saver != nil {
		where, saveErr := s.saver.Save(ctx, res.Snapshot())
		if saveErr != nil {
			log.ErrorWith("failed to save results", saveErr, nil)
			if err == nil {
				err = saveErr
			}
		} else {
			log.Infof("results saved to %s", where)
		}
	}
	return res, err
}

func (s *Scanner) run(ctx context.Context, res *result.ScanResult) error {
	if s.opts.Preflight {
		if err := s.preflight(ctx); err != nil {
			return err
		}
	}

	if err := res.Transition(result.StateDetectingDialect); err != nil {
		return err
	}
	profile, err := dialect.Detect(ctx, s.asker, s.opts.Dialects)
	if err != nil {
		return err
	}
	if err := res.SetDialect(profile.Name); err != nil {
		return err
	}
	s.reporter.Report(progress.Event{Unit: progress.UnitDialect, Value: profile.Name})

	resolver := resolve.New(s.asker, profile, s.opts.Resolve, s.reporter)
	enum := enumerate.New(resolver, s.opts.Ceilings, s.reporter, res.Warn)

	if err := res.Transition(result.StateEnumeratingTables); err != nil {
		return err
	}
	tables, count, err := enum.DiscoverTables(ctx)
	for _, t := range tables {
		res.AddTable(t)
	}
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		if count == 0 {
			return errs.New(errs.ErrKindNoTables, "target reports zero tables")
		}
		return errs.Newf(errs.ErrKindNoTables, "could not resolve any of %d table names", count)
	}

	selected := s.selectTables(tables)
	if s.opts.TableWorkers == 1 {
		for _, t := range selected {
			if err := s.table(ctx, res, enum, t); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.TableWorkers)
	for _, t := range selected {
		g.Go(func() error {
			return s.table(gctx, res, enum, t)
		})
	}
	return g.Wait()
}

// table runs the EnumeratingColumns → ExtractingData sub-cycle for one table.
// It is the single writer of that table's entries in res.
func (s *Scanner) table(ctx context.Context, res *result.ScanResult, enum *enumerate.Enumerator, table string) error {
	log := logger.FromContext(ctx).With().Str("table", table).Logger()
	ctx = log.WithContext(ctx)

	s.setPhase(res, result.StateEnumeratingColumns)
	log.Infof("discovering columns for table '%s'", table)
	columns, err := enum.DiscoverColumns(ctx, table)
	if err != nil {
		return fmt.Errorf("columns of %q: %w", table, err)
	}
	if setErr := res.SetColumns(table, columns); setErr != nil {
		return setErr
	}
	if len(columns) == 0 {
		log.Warn("no columns found, skipping table")
		return nil
	}
	if s.opts.MaxRows <= 0 {
		return nil
	}

	s.setPhase(res, result.StateExtractingData)
	log.Infof("extracting data from table '%s'", table)
	data, err := enum.ExtractRows(ctx, table, columns, s.opts.MaxRows)
	if err != nil {
		// keep complete rows recovered before the failure
		if len(data.Rows) > 0 {
			_ = res.SetRows(table, data.Total, data.Rows)
		}
		return fmt.Errorf("rows of %q: %w", table, err)
	}
	return res.SetRows(table, data.Total, data.Rows)
}

// setPhase records the sub-cycle state; with table workers it reflects the
// most recent table to move.
func (s *Scanner) setPhase(res *result.ScanResult, st result.State) {
	if res.State().Terminal() {
		return
	}
	_ = res.Transition(st)
}

func (s *Scanner) selectTables(tables []string) []string {
	if len(s.opts.Tables) == 0 {
		return tables
	}
	out := make([]string, 0, len(s.opts.Tables))
	for _, t := range tables {
		if slices.ContainsFunc(s.opts.Tables, func(want string) bool {
			return strings.EqualFold(want, t)
		}) {
			out = append(out, t)
		}
	}
	if len(out) < len(s.opts.Tables) {
		s.log.Warnf("%d of %d requested tables were not discovered", len(s.opts.Tables)-len(out), len(s.opts.Tables))
	}
	return out
}

// preflight asks a tautology and a contradiction; a usable oracle answers
// true then false.
func (s *Scanner) preflight(ctx context.Context) error {
	yes, err := s.asker.Ask(ctx, oracle.Tautology)
	if err != nil {
		return err
	}
	no, err := s.asker.Ask(ctx, oracle.Contradiction)
	if err != nil {
		return err
	}
	if !yes || no {
		return errs.Newf(errs.ErrKindOracleUnstable,
			"oracle answered %t for %s and %t for %s", yes, oracle.Tautology, no, oracle.Contradiction)
	}
	s.log.Debug("preflight passed")
	return nil
}
