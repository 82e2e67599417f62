package main

import (
	"context"
	"io"
	"os"

	"github.com/koustreak/blindsight/internal/config"
	"github.com/koustreak/blindsight/internal/dialect"
	"github.com/koustreak/blindsight/internal/filestore/minio"
	"github.com/koustreak/blindsight/internal/oracle"
	"github.com/koustreak/blindsight/internal/progress"
	"github.com/koustreak/blindsight/internal/resolve"
	"github.com/koustreak/blindsight/internal/result"
	"github.com/koustreak/blindsight/internal/scan"
	"github.com/koustreak/blindsight/internal/store"
)

// resultStore is an opened output backend. presigner is set for object
// stores only.
type resultStore struct {
	store.Store
	presigner *store.Object
	close     func()
}

// openStore opens the configured result store; nil for "none".
func (a *app) openStore(ctx context.Context) (*resultStore, error) {
	out := a.cfg.Output
	format, err := result.ParseFormat(out.Format)
	if err != nil {
		return nil, err
	}

	switch out.Store {
	case config.StoreDir:
		d, err := store.NewDir(out.Directory, format, a.log)
		if err != nil {
			return nil, err
		}
		return &resultStore{Store: d, close: func() {}}, nil
	case config.StoreMinIO:
		drv, err := minio.New(ctx, &out.MinIO)
		if err != nil {
			return nil, err
		}
		obj, err := store.NewObject(ctx, drv, out.MinIO.Bucket, out.MinIO.Prefix, format, a.log)
		if err != nil {
			_ = drv.Close()
			return nil, err
		}
		return &resultStore{Store: obj, presigner: obj, close: func() { _ = drv.Close() }}, nil
	default:
		return nil, nil
	}
}

// scanOptions turns configuration into engine options.
func (a *app) scanOptions(target string) (scan.Options, error) {
	sc := a.cfg.Scan
	profiles, err := dialect.Select(sc.Dialects)
	if err != nil {
		return scan.Options{}, err
	}
	strategy, err := resolve.ParseStrategy(sc.Strategy)
	if err != nil {
		return scan.Options{}, err
	}

	opts := scan.DefaultOptions()
	opts.Target = target
	opts.Dialects = profiles
	opts.MaxRows = sc.MaxRows
	opts.Tables = sc.Tables
	opts.Ceilings = sc.Ceilings
	opts.Resolve = resolve.Options{Strategy: strategy, Workers: sc.CharWorkers}
	opts.TableWorkers = sc.TableWorkers
	opts.Preflight = sc.Preflight
	return opts, nil
}

// runEngine scans through transport, prints the summary and returns the
// final document.
func (a *app) runEngine(ctx context.Context, out io.Writer, transport oracle.Oracle, target string, showProgress bool) (*result.Document, error) {
	sc := a.cfg.Scan
	counter := oracle.NewCounter(transport)
	policy, err := oracle.PolicyByName(sc.FailurePolicy, sc.RetryAttempts, sc.RetryBackoff, a.log)
	if err != nil {
		return nil, err
	}
	env := oracle.Envelope{Prefix: a.cfg.Envelope.Prefix, Terminator: a.cfg.Envelope.Terminator}
	session := oracle.NewSession(oracle.Guard(counter, policy), env)

	opts, err := a.scanOptions(target)
	if err != nil {
		return nil, err
	}

	var reporter progress.Reporter = progress.NewLog(a.log)
	if showProgress {
		reporter = progress.Multi(reporter, progress.NewBar(os.Stderr))
	}

	s := scan.New(session, opts, a.log).WithCounter(counter).WithReporter(reporter)

	rs, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if rs != nil {
		defer rs.close()
		s.WithSaver(rs)
	}

	res, err := s.Run(ctx)
	doc := res.Snapshot()
	printSummary(out, doc)
	return doc, err
}
