// Package enumerate composes the resolvers into schema and data discovery.
//
// Everything is paged by offset over a deterministic ORDER BY, so each name
// or cell is an independent probe sequence against a stable listing.
package enumerate

import (
	"context"
	"fmt"

	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/progress"
	"github.com/koustreak/blindsight/internal/resolve"
	"github.com/koustreak/blindsight/internal/result"
)

// Ceilings bound every binary search. A value above its ceiling saturates;
// Escalations lets a saturated count be searched again with a doubled
// ceiling that many times.
type Ceilings struct {
	Tables      int `mapstructure:"tables"`
	Columns     int `mapstructure:"columns"`
	Rows        int `mapstructure:"rows"`
	NameLength  int `mapstructure:"name_length"`
	CellLength  int `mapstructure:"cell_length"`
	Escalations int `mapstructure:"escalations"`
}

// DefaultCeilings are generous enough for typical web application schemas.
func DefaultCeilings() Ceilings {
	return Ceilings{
		Tables:     50,
		Columns:    50,
		Rows:       1000,
		NameLength: 50,
		CellLength: 100,
	}
}

// WarnFunc receives non-fatal conditions.
type WarnFunc func(w result.Warning)

// Enumerator discovers tables, columns and rows through a Resolver.
type Enumerator struct {
	res      *resolve.Resolver
	ceil     Ceilings
	reporter progress.Reporter
	warn     WarnFunc
}

// New builds an Enumerator. reporter and warn may be nil.
func New(res *resolve.Resolver, ceil Ceilings, reporter progress.Reporter, warn WarnFunc) *Enumerator {
	if reporter == nil {
		reporter = progress.Discard
	}
	if warn == nil {
		warn = func(result.Warning) {}
	}
	return &Enumerator{res: res, ceil: ceil, reporter: reporter, warn: warn}
}

// count resolves a COUNT(*) expression, escalating a saturated ceiling when
// configured. The returned value is clamped to the last ceiling searched.
func (e *Enumerator) count(ctx context.Context, expr string, ceiling int, w result.Warning) (int, error) {
	res, err := e.res.Number(ctx, expr, ceiling)
	if err != nil {
		return 0, err
	}
	for i := 0; res.Saturated && i < e.ceil.Escalations; i++ {
		low := ceiling + 1
		ceiling = ceiling*2 + 1
		logger.FromContext(ctx).Infof("count exceeds ceiling, searching up to %d", ceiling)
		if res, err = e.res.NumberFrom(ctx, expr, low, ceiling); err != nil {
			return 0, err
		}
	}
	if res.Saturated {
		w.Kind = result.WarnBoundExceeded
		w.Ceiling = ceiling
		w.Message = fmt.Sprintf("count exceeds ceiling %d; results truncated", ceiling)
		e.warn(w)
		logger.FromContext(ctx).Warn(w.Message)
		return ceiling, nil
	}
	return res.Value, nil
}

// text resolves one string and turns truncation into warnings.
func (e *Enumerator) text(ctx context.Context, expr string, maxLength int, w result.Warning) (string, error) {
	t, err := e.res.String(ctx, expr, maxLength)
	if err != nil {
		return "", err
	}
	if t.FailedAt > 0 {
		fw := w
		fw.Kind = result.WarnCharacterUnresolvable
		fw.Position = t.FailedAt
		fw.Message = fmt.Sprintf("no charset match at position %d, kept %q", t.FailedAt, t.Value)
		e.warn(fw)
	}
	if t.Length.Saturated {
		sw := w
		sw.Kind = result.WarnBoundExceeded
		sw.Ceiling = maxLength
		sw.Message = fmt.Sprintf("value longer than %d characters, truncated", maxLength)
		e.warn(sw)
	}
	return t.Value, nil
}

// DiscoverTables returns the table names of the current schema in name order.
// A name that resolves empty is skipped with a warning.
func (e *Enumerator) DiscoverTables(ctx context.Context) ([]string, int, error) {
	p := e.res.Profile()
	log := logger.FromContext(ctx)

	n, err := e.count(ctx, p.TableCount(), e.ceil.Tables, result.Warning{})
	if err != nil {
		return nil, 0, err
	}
	log.Infof("found %d tables", n)

	tables := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := e.text(ctx, p.TableAt(i), e.ceil.NameLength, result.Warning{Row: i + 1})
		if err != nil {
			return tables, n, err
		}
		if name == "" {
			e.warn(result.Warning{Kind: result.WarnNameUnresolved, Row: i + 1,
				Message: fmt.Sprintf("could not extract table %d", i+1)})
			log.Warnf("could not extract table %d", i+1)
			continue
		}
		tables = append(tables, name)
		e.reporter.Report(progress.Event{Unit: progress.UnitTable, Index: i + 1, Total: n, Value: name})
	}
	return tables, n, nil
}

// DiscoverColumns returns the column names of table in name order.
func (e *Enumerator) DiscoverColumns(ctx context.Context, table string) ([]string, error) {
	p := e.res.Profile()
	log := logger.FromContext(ctx).With().Str("table", table).Logger()

	n, err := e.count(ctx, p.ColumnCount(table), e.ceil.Columns, result.Warning{Table: table})
	if err != nil {
		return nil, err
	}
	log.Infof("found %d columns", n)

	columns := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := e.text(ctx, p.ColumnAt(table, i), e.ceil.NameLength, result.Warning{Table: table, Row: i + 1})
		if err != nil {
			return columns, err
		}
		if name == "" {
			e.warn(result.Warning{Kind: result.WarnNameUnresolved, Table: table, Row: i + 1,
				Message: fmt.Sprintf("could not extract column %d", i+1)})
			continue
		}
		columns = append(columns, name)
		e.reporter.Report(progress.Event{Unit: progress.UnitColumn, Table: table, Index: i + 1, Total: n, Value: name})
	}
	return columns, nil
}

// TableData is what ExtractRows recovered.
type TableData struct {
	// Total is the table's resolved row count, before the cap.
	Total int
	Rows  []result.Row
}

// ExtractRows recovers up to rowCap rows of table. Offsets at or beyond
// rowCap are never probed. rowCap <= 0 extracts nothing and skips the count.
func (e *Enumerator) ExtractRows(ctx context.Context, table string, columns []string, rowCap int) (TableData, error) {
	if rowCap <= 0 || len(columns) == 0 {
		return TableData{}, nil
	}
	p := e.res.Profile()
	log := logger.FromContext(ctx).With().Str("table", table).Logger()

	total, err := e.count(ctx, p.RowCount(table), e.ceil.Rows, result.Warning{Table: table})
	if err != nil {
		return TableData{}, err
	}
	n := min(total, rowCap)
	log.Infof("found %d rows (extracting up to %d)", total, rowCap)
	e.reporter.Report(progress.Event{Unit: progress.UnitRowCount, Table: table, Index: n, Total: n})

	data := TableData{Total: total, Rows: make([]result.Row, 0, n)}
	for offset := 0; offset < n; offset++ {
		row := make(result.Row, len(columns))
		for _, col := range columns {
			w := result.Warning{Table: table, Column: col, Row: offset + 1}
			value, err := e.text(ctx, p.CellAt(table, col, columns, offset), e.ceil.CellLength, w)
			if err != nil {
				return data, err
			}
			row[col] = value
			e.reporter.Report(progress.Event{Unit: progress.UnitCell, Table: table, Column: col, Index: offset + 1, Total: n, Value: value})
		}
		data.Rows = append(data.Rows, row)
		e.reporter.Report(progress.Event{Unit: progress.UnitRow, Table: table, Index: offset + 1, Total: n})
	}
	return data, nil
}
