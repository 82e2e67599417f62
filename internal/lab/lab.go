// Package lab opens the databases blindsight can be pointed at directly and
// seeds them with a small fixture schema.
package lab

import (
	"context"
	"fmt"

	"github.com/koustreak/blindsight/internal/database"
	"github.com/koustreak/blindsight/internal/database/mysql"
	"github.com/koustreak/blindsight/internal/database/postgres"
	"github.com/koustreak/blindsight/internal/database/sqlite"
	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
)

// Open validates cfg and connects with the driver it names.
func Open(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "database config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	driver, _ := database.ParseDriver(string(cfg.Driver))

	var (
		db  database.DB
		err error
	)
	switch driver {
	case database.DriverPostgres:
		db, err = postgres.New(ctx, cfg)
	case database.DriverMySQL:
		db, err = mysql.New(ctx, cfg)
	case database.DriverSQLite:
		db, err = sqlite.New(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Component("lab").With().
		Str("driver", string(driver)).
		Logger().Info("lab database connected")
	return db, nil
}

// Table is one fixture table. Every cell is text so the fixture loads the
// same way on every engine.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Fixture is the schema Seed installs: a credentials table in the shape of
// the classic blind-injection labs, plus a catalogue table.
var Fixture = []Table{
	{
		Name:    "users",
		Columns: []string{"username", "password", "email"},
		Rows: [][]string{
			{"administrator", "x7k2m9q4", "admin@shop.example"},
			{"wiener", "peter", "wiener@shop.example"},
			{"carlos", "montoya", "carlos@shop.example"},
		},
	},
	{
		Name:    "products",
		Columns: []string{"name", "category"},
		Rows: [][]string{
			{"Cheshire Cat Grin", "Pets"},
			{"Giant Enter Key", "Gifts"},
		},
	},
}

// Seed (re)creates the fixture tables in db. Existing rows are replaced, so
// seeding twice leaves the same contents.
func Seed(ctx context.Context, db database.DB, tables []Table) error {
	log := logger.FromContext(ctx).Component("lab")
	for _, t := range tables {
		if len(t.Columns) == 0 {
			return errs.Newf(errs.ErrKindInvalidInput, "fixture table %q has no columns", t.Name)
		}
		if _, err := db.Exec(ctx, createStatement(t)); err != nil {
			return errs.Wrap(errs.KindOf(err), fmt.Sprintf("create %s", t.Name), err)
		}
		if _, err := db.Exec(ctx, "DELETE FROM "+t.Name); err != nil {
			return errs.Wrap(errs.KindOf(err), fmt.Sprintf("clear %s", t.Name), err)
		}
		for i, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return errs.Newf(errs.ErrKindInvalidInput,
					"fixture table %q row %d has %d cells, want %d", t.Name, i, len(row), len(t.Columns))
			}
			if _, err := db.Exec(ctx, insertStatement(t, row)); err != nil {
				return errs.Wrap(errs.KindOf(err), fmt.Sprintf("insert into %s", t.Name), err)
			}
		}
		log.With().Str("table", t.Name).Int("rows", len(t.Rows)).Logger().Debug("fixture seeded")
	}
	return nil
}
