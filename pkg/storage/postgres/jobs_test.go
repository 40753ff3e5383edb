package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"urlguard/internal/incident"
	"urlguard/pkg/domain"
	"urlguard/pkg/storage/postgres"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertest"
	"github.com/stretchr/testify/require"
)

// newQueueDB is newTestDB plus the River schema.
func newQueueDB(t *testing.T) *postgres.PgSQL {
	t.Helper()
	pg := newTestDB(t)

	migrator, err := rivermigrate.New(riverdatabasesql.New(pg.DB.(*sql.DB)), nil)
	require.NoError(t, err)
	_, err = migrator.Migrate(t.Context(), rivermigrate.DirectionUp, nil)
	require.NoError(t, err)

	return pg
}

func queuedIncident(url string) incident.JobArgs {
	return incident.JobArgs{Incident: domain.Incident{
		URL:          url,
		RiskLevel:    domain.RiskLevelHigh,
		RiskScore:    91,
		Blocked:      true,
		UserAction:   domain.UserActionBlocked,
		IncidentType: domain.IncidentSuspiciousDomain,
	}}
}

func TestPgSQL_AddJob(t *testing.T) {
	pg := newQueueDB(t)
	ctx := context.Background()
	driver := riverdatabasesql.New(pg.DB.(*sql.DB))

	t.Run("outside a transaction", func(t *testing.T) {
		added, err := pg.AddJob(ctx, queuedIncident("https://evil.tk/login"), &river.InsertOpts{MaxAttempts: 2})
		require.NoError(t, err)
		require.True(t, added)

		job := rivertest.RequireInserted[*riverdatabasesql.Driver](ctx, t, driver, &incident.JobArgs{},
			&rivertest.RequireInsertedOpts{MaxAttempts: 2})
		require.Equal(t, "https://evil.tk/login", job.Args.Incident.URL)
		require.Equal(t, domain.RiskLevelHigh, job.Args.Incident.RiskLevel)
	})

	t.Run("inside a transaction", func(t *testing.T) {
		tx, err := pg.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		added, err := tx.AddJob(ctx, queuedIncident("https://phish.example/verify"), nil)
		require.NoError(t, err)
		require.True(t, added)

		sqlTx := tx.(*postgres.PgSQL).DB.(*sql.Tx)
		job := rivertest.RequireInsertedTx[*riverdatabasesql.Driver](ctx, t, sqlTx, &incident.JobArgs{},
			&rivertest.RequireInsertedOpts{MaxAttempts: incident.DefaultMaxAttempts})
		require.Equal(t, "https://phish.example/verify", job.Args.Incident.URL)
	})

	t.Run("same incident twice is queued twice", func(t *testing.T) {
		args := queuedIncident("https://evil.tk/again")
		for range 2 {
			added, err := pg.AddJob(ctx, args, nil)
			require.NoError(t, err)
			require.True(t, added)
		}
	})
}
