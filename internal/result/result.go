// Package result holds what a scan has recovered so far.
//
// ScanResult is owned by one scanner for the lifetime of a scan. It only
// grows: tables are appended, a table's columns are set once, its rows are
// set once. Columns can only be set for a listed table and rows only for a
// table whose columns are known. Snapshot hands a read-only Document to
// persistence.
package result

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/blindsight/internal/errs"
)

// State is the scanner's position in its state machine.
type State string

const (
	StateIdle               State = "idle"
	StateDetectingDialect   State = "detecting_dialect"
	StateEnumeratingTables  State = "enumerating_tables"
	StateEnumeratingColumns State = "enumerating_columns"
	StateExtractingData     State = "extracting_data"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Row maps column name to recovered cell value.
type Row map[string]string

// WarningKind classifies non-fatal conditions.
type WarningKind string

const (
	// WarnCharacterUnresolvable: a position matched no charset member; the
	// value was truncated there.
	WarnCharacterUnresolvable WarningKind = "character_unresolvable"
	// WarnBoundExceeded: a count or length exceeded its search ceiling.
	WarnBoundExceeded WarningKind = "bound_exceeded"
	// WarnNameUnresolved: a table or column name came back empty.
	WarnNameUnresolved WarningKind = "name_unresolved"
)

// Warning is a non-fatal condition recorded during a scan.
type Warning struct {
	Kind     WarningKind `json:"kind" yaml:"kind" toml:"kind"`
	Table    string      `json:"table,omitempty" yaml:"table,omitempty" toml:"table,omitempty"`
	Column   string      `json:"column,omitempty" yaml:"column,omitempty" toml:"column,omitempty"`
	Row      int         `json:"row,omitempty" yaml:"row,omitempty" toml:"row,omitempty"`
	Position int         `json:"position,omitempty" yaml:"position,omitempty" toml:"position,omitempty"`
	Ceiling  int         `json:"ceiling,omitempty" yaml:"ceiling,omitempty" toml:"ceiling,omitempty"`
	Message  string      `json:"message" yaml:"message" toml:"message"`
}

// ScanResult is the mutable aggregate of one scan. It is safe for concurrent
// use; each table must still have a single writer.
type ScanResult struct {
	mu sync.Mutex

	id        string
	target    string
	state     State
	dialect   string
	tables    []string
	tableSet  map[string]bool
	columns   map[string][]string
	rows      map[string][]Row
	rowCounts map[string]int
	warnings  []Warning
	probes    int64
	failures  int64
	errMsg    string
	started   time.Time
	finished  time.Time
}

// New starts an empty result for target.
func New(target string) *ScanResult {
	return &ScanResult{
		id:        uuid.NewString(),
		target:    target,
		state:     StateIdle,
		tableSet:  make(map[string]bool),
		columns:   make(map[string][]string),
		rows:      make(map[string][]Row),
		rowCounts: make(map[string]int),
		started:   time.Now().UTC(),
	}
}

func (r *ScanResult) ID() string {
	return r.id
}

func (r *ScanResult) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Transition moves to next. Leaving a terminal state is rejected.
func (r *ScanResult) Transition(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return errs.Newf(errs.ErrKindInvalidInput, "scan already %s, cannot move to %s", r.state, next)
	}
	r.state = next
	if next.Terminal() {
		r.finished = time.Now().UTC()
	}
	return nil
}

// Fail moves to StateFailed and records cause.
func (r *ScanResult) Fail(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = StateFailed
	r.finished = time.Now().UTC()
	if cause != nil {
		r.errMsg = cause.Error()
	}
}

// SetDialect records the detected engine. It can be set once.
func (r *ScanResult) SetDialect(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dialect != "" && r.dialect != name {
		return errs.Newf(errs.ErrKindInvalidInput, "dialect already set to %s", r.dialect)
	}
	r.dialect = name
	return nil
}

func (r *ScanResult) Dialect() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dialect
}

// AddTable appends a discovered table. Duplicates are ignored.
func (r *ScanResult) AddTable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tableSet[name] {
		return
	}
	r.tableSet[name] = true
	r.tables = append(r.tables, name)
}

// Tables returns the discovered tables in discovery order.
func (r *ScanResult) Tables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tables...)
}

// SetColumns records the columns of a listed table, once.
func (r *ScanResult) SetColumns(table string, columns []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.tableSet[table] {
		return errs.Newf(errs.ErrKindInvalidInput, "columns for unknown table %q", table)
	}
	if _, ok := r.columns[table]; ok {
		return errs.Newf(errs.ErrKindInvalidInput, "columns of %q already set", table)
	}
	r.columns[table] = append([]string{}, columns...)
	return nil
}

// Columns returns the columns of table and whether they are known.
func (r *ScanResult) Columns(table string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cols, ok := r.columns[table]
	return append([]string(nil), cols...), ok
}

// SetRows records the extracted rows of a table whose columns are known,
// once. total is the table's resolved row count before capping.
func (r *ScanResult) SetRows(table string, total int, rows []Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.columns[table]; !ok {
		return errs.Newf(errs.ErrKindInvalidInput, "rows for table %q without columns", table)
	}
	if _, ok := r.rows[table]; ok {
		return errs.Newf(errs.ErrKindInvalidInput, "rows of %q already set", table)
	}
	r.rows[table] = append([]Row{}, rows...)
	r.rowCounts[table] = total
	return nil
}

// Rows returns the extracted rows of table and whether they are known.
func (r *ScanResult) Rows(table string) ([]Row, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, ok := r.rows[table]
	return append([]Row(nil), rows...), ok
}

// Warn records a non-fatal condition.
func (r *ScanResult) Warn(w Warning) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, w)
}

func (r *ScanResult) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Warning(nil), r.warnings...)
}

// SetProbeStats records probe accounting from the oracle counter.
func (r *ScanResult) SetProbeStats(probes, failures int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = probes
	r.failures = failures
}

// Snapshot copies the current state into a Document.
func (r *ScanResult) Snapshot() *Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := &Document{
		ID:                r.id,
		Target:            r.target,
		State:             r.state,
		DatabaseType:      r.dialect,
		Tables:            append([]string{}, r.tables...),
		Columns:           make(map[string][]string, len(r.columns)),
		Data:              make(map[string][]Row, len(r.rows)),
		RowCounts:         make(map[string]int, len(r.rowCounts)),
		Warnings:          append([]Warning(nil), r.warnings...),
		Probes:            r.probes,
		TransportFailures: r.failures,
		Error:             r.errMsg,
		StartedAt:         r.started,
		FinishedAt:        r.finished,
	}
	for t, cols := range r.columns {
		doc.Columns[t] = append([]string{}, cols...)
	}
	for t, rows := range r.rows {
		cp := make([]Row, len(rows))
		for i, row := range rows {
			cp[i] = make(Row, len(row))
			for k, v := range row {
				cp[i][k] = v
			}
		}
		doc.Data[t] = cp
	}
	for t, n := range r.rowCounts {
		doc.RowCounts[t] = n
	}
	return doc
}
