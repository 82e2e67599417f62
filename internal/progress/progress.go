// Package progress reports each resolved unit of a scan as it happens.
package progress

import (
	"sync"

	"github.com/koustreak/blindsight/internal/logger"
)

// Unit is what an Event reports on.
type Unit string

const (
	UnitDialect   Unit = "dialect"
	UnitTable     Unit = "table"
	UnitColumn    Unit = "column"
	UnitRowCount  Unit = "row_count"
	UnitRow       Unit = "row"
	UnitCell      Unit = "cell"
	UnitCharacter Unit = "character"
)

// Event is one resolved unit. Index is 1-based within Total.
type Event struct {
	Unit   Unit
	Table  string
	Column string
	Index  int
	Total  int
	Value  string
}

// Reporter receives events. Implementations must be safe for concurrent use
// when the scan runs table workers.
type Reporter interface {
	Report(e Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(e Event)

func (f ReporterFunc) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Reporter = ReporterFunc(func(Event) {})

// Multi fans an event out to several reporters.
func Multi(reporters ...Reporter) Reporter {
	return ReporterFunc(func(e Event) {
		for _, r := range reporters {
			r.Report(e)
		}
	})
}

// Log writes events to a logger: characters at debug, everything else at info.
type Log struct {
	log *logger.Logger
}

func NewLog(log *logger.Logger) *Log {
	return &Log{log: log.Component("progress")}
}

func (l *Log) Report(e Event) {
	fields := map[string]interface{}{
		"unit":  string(e.Unit),
		"index": e.Index,
		"total": e.Total,
	}
	if e.Table != "" {
		fields["table"] = e.Table
	}
	if e.Column != "" {
		fields["column"] = e.Column
	}
	if e.Value != "" {
		fields["value"] = e.Value
	}

	if e.Unit == UnitCharacter {
		l.log.DebugWith("extracting", fields)
		return
	}
	l.log.InfoWith(string(e.Unit)+" resolved", fields)
}

// Recorder keeps every event in memory. Tests use it.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events, optionally filtered by unit.
func (r *Recorder) Events(units ...Unit) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(units) == 0 {
		return append([]Event(nil), r.events...)
	}
	var out []Event
	for _, e := range r.events {
		for _, u := range units {
			if e.Unit == u {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
