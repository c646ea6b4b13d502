package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/conference-scheduler/internal/config"
	"github.com/example/conference-scheduler/internal/persistence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStorageAppliesMigrations(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "confsched.db")
	cfg := config.Config{SQLiteDSN: dsn}

	pool, storage, err := openStorage(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("openStorage returned error: %v", err)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			t.Errorf("failed to close pool: %v", cerr)
		}
	}()

	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("expected a reachable database, got %v", err)
	}

	// The schema is in place when queries fail with not-found rather than a
	// missing-table error.
	if _, err := storage.GetSchedule(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from migrated schema, got %v", err)
	}
}

func TestRunMigrate(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "confsched.db")
	t.Setenv("CONFSCHED_SQLITE_DSN", dsn)

	if err := runMigrate(context.Background(), testLogger()); err != nil {
		t.Fatalf("runMigrate returned error: %v", err)
	}

	// A second run is a no-op.
	if err := runMigrate(context.Background(), testLogger()); err != nil {
		t.Fatalf("repeated runMigrate returned error: %v", err)
	}
}
