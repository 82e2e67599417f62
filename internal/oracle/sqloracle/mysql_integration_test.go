package sqloracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/koustreak/blindsight/internal/database"
	"github.com/koustreak/blindsight/internal/lab"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/oracle"
	"github.com/koustreak/blindsight/internal/resolve"
	"github.com/koustreak/blindsight/internal/result"
	"github.com/koustreak/blindsight/internal/scan"
)

func setupMySQL(t *testing.T) database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("shop"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err, "failed to get connection string")

	db, err := lab.Open(ctx, database.DefaultConfig(database.DriverMySQL, dsn))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, lab.Seed(ctx, db, lab.Fixture))
	return db
}

func TestScan_MySQLIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupMySQL(t)
	counter := oracle.NewCounter(New(db, 5*time.Second, logger.Nop()))
	session := oracle.NewSession(counter, oracle.DefaultEnvelope())

	opts := scan.DefaultOptions()
	opts.Target = "mysql://shop"
	opts.Resolve.Strategy = resolve.Bisect
	opts.TableWorkers = 2
	res, err := scan.New(session, opts, logger.Nop()).WithCounter(counter).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, result.StateDone, res.State())
	assert.Equal(t, "MySQL", res.Dialect())
	assert.Equal(t, []string{"products", "users"}, res.Tables())

	rows, ok := res.Rows("users")
	require.True(t, ok)
	require.Len(t, rows, 3)
	assert.Equal(t, "administrator", rows[0]["username"])
	assert.Equal(t, "x7k2m9q4", rows[0]["password"])
	assert.Zero(t, counter.Stats().Failures)
}
