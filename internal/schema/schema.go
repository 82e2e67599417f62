// Package schema reads what a directly reachable database really contains,
// so a lab scan can be checked against it.
package schema

import (
	"context"

	"github.com/koustreak/blindsight/internal/result"
)

// Reader introspects the current schema of a database.
type Reader interface {
	// ListTables returns the user tables in name order.
	ListTables(ctx context.Context) ([]string, error)

	// ListColumns returns the columns of table in name order.
	ListColumns(ctx context.Context, table string) ([]string, error)

	// ReadRows returns up to limit rows of table, every cell as text (NULL
	// as ""), ordered the way the extraction engine pages them.
	ReadRows(ctx context.Context, table string, columns []string, limit int) ([]result.Row, error)

	// Count returns the number of rows in table.
	Count(ctx context.Context, table string) (int, error)
}
