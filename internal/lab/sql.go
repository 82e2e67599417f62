package lab

import (
	"strings"

	"github.com/koustreak/blindsight/internal/dialect"
)

// Fixture names are plain lowercase identifiers, so they go in unquoted and
// the statements stay portable across engines.

func createStatement(t Table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(t.Name)
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteString(" VARCHAR(255)")
	}
	b.WriteString(")")
	return b.String()
}

func insertStatement(t Table, row []string) string {
	values := make([]string, len(row))
	for i, v := range row {
		values[i] = dialect.QuoteLiteral(v)
	}
	return "INSERT INTO " + t.Name + " (" + strings.Join(t.Columns, ", ") +
		") VALUES (" + strings.Join(values, ", ") + ")"
}
