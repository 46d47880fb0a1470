package testutils

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-testfixtures/testfixtures/v3"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

const readyTimeout = time.Minute

var ErrNotReady = errors.New("container not ready")

// MigrateUp applies the migrations at sourceURL to the database behind dbInfo.
// Applied versions are tracked in migrationsTable.
func MigrateUp(migrationsTable, sourceURL, dbInfo string) (err error) {
	db, err := sql.Open("postgres", dbInfo)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()

	if err = Retry(db.Ping); err != nil {
		return err
	}

	driver, err := migratepostgres.WithInstance(db, &migratepostgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to read migrations from %s: %w", sourceURL, err)
	}

	if err = m.Up(); errors.Is(err, migrate.ErrNoChange) {
		return nil
	}

	return err
}

// Retry calls op until it succeeds or readyTimeout passes.
func Retry(op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = readyTimeout

	err := backoff.Retry(op, bo)
	if err != nil {
		return errors.Join(ErrNotReady, err)
	}

	return nil
}

func LoadFixtures(t *testing.T, db *sql.DB, dir string) {
	t.Helper()

	loader, err := testfixtures.New(
		testfixtures.Database(db),
		testfixtures.Dialect("postgresql"),
		testfixtures.Directory(dir),
	)
	require.NoError(t, err)
	require.NoError(t, loader.Load())
}
