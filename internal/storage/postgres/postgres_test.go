package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mmynk/tenancydeposit/internal/storage"
	"github.com/mmynk/tenancydeposit/internal/storage/storagetest"
)

// startPostgres returns a DSN for a throwaway Postgres 16. TEST_PG_DSN reuses
// an existing database instead of starting a container.
func startPostgres(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_PG_DSN"); dsn != "" {
		return dsn
	}
	if testing.Short() {
		t.Skip("skipping postgres container in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgC, err := tcpostgres.Run(ctx,
		"postgres:16",
		tcpostgres.WithDatabase("deposits"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pgC)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	store, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()

	storagetest.Run(t, func(t *testing.T) storage.Store {
		if err := store.Reset(ctx); err != nil {
			t.Fatalf("reset: %v", err)
		}
		return nopCloser{store}
	})
}

// nopCloser keeps the shared pool open across subtests.
type nopCloser struct{ *Store }

func (nopCloser) Close() error { return nil }
