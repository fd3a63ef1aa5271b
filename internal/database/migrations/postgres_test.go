package migrations_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-checkin/internal/config"
	"ms-checkin/internal/database"
	"ms-checkin/internal/database/migrations"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
)

// TestPostgresMigrations runs the SQL migrations against a real postgres container.
func TestPostgresMigrations(t *testing.T) {
	if testing.Short() || os.Getenv("RUN_CONTAINER_TESTS") != "1" {
		t.Skip("set RUN_CONTAINER_TESTS=1 to run container tests")
	}

	ctx := context.Background()
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "checkin",
				"POSTGRES_PASSWORD": "checkin",
				"POSTGRES_DB":       "checkin",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer pg.Terminate(ctx)

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Driver:       "postgres",
		Host:         host,
		Port:         port.Port(),
		Username:     "checkin",
		Password:     "checkin",
		Name:         "checkin",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 5,
		MaxLifetime:  time.Minute,
	}
	db, err := database.Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, migrations.Migrate(ctx, db, logger.Nop()))
	require.NoError(t, migrations.Seed(ctx, db, time.Now().UTC()))

	participants, err := db.NewSelect().Model((*models.Participant)(nil)).Where("event_id = ?", "event-1").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 55, participants)

	now := time.Now().UTC()
	dup := &models.Participant{ID: "dup", EventID: "event-1", FullName: "Dup", Email: "participant1@email.com", CreatedAt: now, UpdatedAt: now}
	_, err = db.NewInsert().Model(dup).Exec(ctx)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	require.NoError(t, migrations.Rollback(ctx, db, logger.Nop()))
	_, err = db.NewSelect().Model((*models.Participant)(nil)).Count(ctx)
	assert.Error(t, err)
}
