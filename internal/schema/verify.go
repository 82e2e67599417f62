package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/blindsight/internal/result"
)

// Snapshot reads the tables, columns and the first maxRows rows of every
// table from i.
func Snapshot(ctx context.Context, i Reader, maxRows int) (*Truth, error) {
	names, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	truth := &Truth{}
	for _, name := range names {
		cols, err := i.ListColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		n, err := i.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		rows, err := i.ReadRows(ctx, name, cols, maxRows)
		if err != nil {
			return nil, err
		}
		truth.Tables = append(truth.Tables, Table{Name: name, Columns: cols, RowCount: n, Rows: rows})
	}
	return truth, nil
}

// Compare lists every difference between doc and truth. Only tables the scan
// enumerated are compared column by column; rows are compared up to what the
// scan extracted.
func Compare(truth *Truth, doc *result.Document) []Mismatch {
	var out []Mismatch

	want := make([]string, 0, len(truth.Tables))
	for _, t := range truth.Tables {
		want = append(want, t.Name)
	}
	if strings.Join(want, ",") != strings.Join(doc.Tables, ",") {
		out = append(out, Mismatch{Row: -1, Want: strings.Join(want, ","), Got: strings.Join(doc.Tables, ",")})
	}

	for _, name := range doc.Tables {
		got, enumerated := doc.Columns[name]
		if !enumerated {
			continue
		}
		t, ok := truth.Table(name)
		if !ok {
			continue
		}
		if strings.Join(t.Columns, ",") != strings.Join(got, ",") {
			out = append(out, Mismatch{Table: name, Row: -1, Want: strings.Join(t.Columns, ","), Got: strings.Join(got, ",")})
			continue
		}

		rows, extracted := doc.Data[name]
		if !extracted {
			continue
		}
		if doc.RowCounts[name] != t.RowCount {
			out = append(out, Mismatch{Table: name, Row: -1,
				Want: fmt.Sprintf("%d rows", t.RowCount), Got: fmt.Sprintf("%d rows", doc.RowCounts[name])})
		}
		for r, row := range rows {
			if r >= len(t.Rows) {
				break
			}
			for _, c := range t.Columns {
				if row[c] != t.Rows[r][c] {
					out = append(out, Mismatch{Table: name, Column: c, Row: r, Want: t.Rows[r][c], Got: row[c]})
				}
			}
		}
	}
	return out
}
