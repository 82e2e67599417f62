package sqloracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blindsight/internal/database"
	"github.com/koustreak/blindsight/internal/dialect"
	"github.com/koustreak/blindsight/internal/lab"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/oracle"
	"github.com/koustreak/blindsight/internal/result"
	"github.com/koustreak/blindsight/internal/scan"
)

func openSeeded(t *testing.T) database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := lab.Open(ctx, database.DefaultConfig(database.DriverSQLite, ":memory:"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, lab.Seed(ctx, db, lab.Fixture))
	return db
}

func TestOracle_Probe(t *testing.T) {
	o := New(openSeeded(t), 0, logger.Nop())

	tests := []struct {
		condition string
		want      bool
	}{
		{oracle.Tautology, true},
		{oracle.Contradiction, false},
		{dialect.SQLite.Fingerprint, true},
		{dialect.MySQL.Fingerprint, false},
		{dialect.PostgreSQL.Fingerprint, false},
		{"(SELECT COUNT(*) FROM users) > 2", true},
		{"(SELECT COUNT(*) FROM users) > 3", false},
		{"LENGTH(NULL) > 0", false},
		{"this is not sql", false},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			got, err := o.Probe(context.Background(), oracle.DefaultEnvelope().Wrap(tt.condition))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOracle_ClosedDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := lab.Open(ctx, database.DefaultConfig(database.DriverSQLite, ":memory:"))
	require.NoError(t, err)
	db.Close()

	_, err = New(db, 0, logger.Nop()).Probe(ctx, oracle.Probe{Condition: oracle.Tautology})
	assert.Error(t, err)
}

func TestOracle_Cancelled(t *testing.T) {
	o := New(openSeeded(t), 0, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Probe(ctx, oracle.Probe{Condition: oracle.Tautology})
	assert.Error(t, err)
}

func TestStatement(t *testing.T) {
	assert.Equal(t, "SELECT CASE WHEN (1=1) THEN 1 ELSE 0 END", Statement("1=1"))
}

// The whole engine against a real SQLite database: detection, schema and
// data enumeration all run through the SQLite profile's templates.
func TestScan_SQLiteEndToEnd(t *testing.T) {
	db := openSeeded(t)
	counter := oracle.NewCounter(New(db, 0, logger.Nop()))
	session := oracle.NewSession(counter, oracle.DefaultEnvelope())

	opts := scan.DefaultOptions()
	opts.Target = "sqlite::memory:"
	res, err := scan.New(session, opts, logger.Nop()).WithCounter(counter).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, result.StateDone, res.State())
	assert.Equal(t, "SQLite", res.Dialect())
	assert.Equal(t, []string{"products", "users"}, res.Tables())

	cols, ok := res.Columns("users")
	require.True(t, ok)
	assert.Equal(t, []string{"email", "password", "username"}, cols)

	rows, ok := res.Rows("users")
	require.True(t, ok)
	require.Len(t, rows, 3)
	assert.Equal(t, result.Row{"email": "admin@shop.example", "password": "x7k2m9q4", "username": "administrator"}, rows[0])
	assert.Equal(t, result.Row{"email": "carlos@shop.example", "password": "montoya", "username": "carlos"}, rows[1])
	assert.Equal(t, result.Row{"email": "wiener@shop.example", "password": "peter", "username": "wiener"}, rows[2])

	products, ok := res.Rows("products")
	require.True(t, ok)
	require.Len(t, products, 2)
	assert.Equal(t, result.Row{"category": "Gifts", "name": "Giant Enter Key"}, products[0])
	assert.Equal(t, result.Row{"category": "Pets", "name": "Cheshire Cat Grin"}, products[1])

	assert.Empty(t, res.Warnings())
	assert.Zero(t, counter.Stats().Failures)
}

func TestScan_SQLiteTablesNamedLikeInternal(t *testing.T) {
	ctx := context.Background()
	db := openSeeded(t)
	require.NoError(t, lab.Seed(ctx, db, []lab.Table{
		{Name: "sqlites", Columns: []string{"v"}, Rows: [][]string{{"kept"}}},
	}))
	// AUTOINCREMENT creates the internal sqlite_sequence table
	_, err := db.Exec(ctx, "CREATE TABLE counters (id INTEGER PRIMARY KEY AUTOINCREMENT, n TEXT)")
	require.NoError(t, err)
	_, err = db.Exec(ctx, "INSERT INTO counters (n) VALUES ('one')")
	require.NoError(t, err)

	want := []string{"counters", "products", "sqlites", "users"}

	listed, err := db.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, listed)

	opts := scan.DefaultOptions()
	opts.Dialects = []*dialect.Profile{dialect.SQLite}
	opts.Tables = []string{"sqlites"}
	res, err := scan.New(oracle.NewSession(New(db, 0, logger.Nop()), oracle.DefaultEnvelope()), opts, logger.Nop()).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, want, res.Tables())
	rows, ok := res.Rows("sqlites")
	require.True(t, ok)
	assert.Equal(t, []result.Row{{"v": "kept"}}, rows)
}
