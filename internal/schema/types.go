package schema

import (
	"fmt"

	"github.com/koustreak/blindsight/internal/result"
)

// Table is the ground truth for one table. Rows is nil when rows were not
// read.
type Table struct {
	Name     string
	Columns  []string
	RowCount int
	Rows     []result.Row
}

// Truth is a snapshot of a database.
type Truth struct {
	Tables []Table
}

// Table returns the named table.
func (t *Truth) Table(name string) (Table, bool) {
	for _, tb := range t.Tables {
		if tb.Name == name {
			return tb, true
		}
	}
	return Table{}, false
}

// Mismatch is one difference between a scan result and the truth.
type Mismatch struct {
	Table  string
	Column string
	Row    int // 0-based; -1 when not row specific
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	switch {
	case m.Column != "" && m.Row >= 0:
		return fmt.Sprintf("%s[%d].%s: want %q, got %q", m.Table, m.Row, m.Column, m.Want, m.Got)
	case m.Table != "":
		return fmt.Sprintf("%s: want %s, got %s", m.Table, m.Want, m.Got)
	default:
		return fmt.Sprintf("tables: want %s, got %s", m.Want, m.Got)
	}
}
