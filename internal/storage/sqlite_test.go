package storage_test

import (
	"path/filepath"
	"testing"

	"hesab/internal/storage"
	"hesab/internal/storage/storetest"
)

func TestSQLiteRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "hesab.db"))
		if err != nil {
			t.Fatalf("NewSQLiteRepository() error = %v", err)
		}
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestMigrationsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hesab.db")
	if err := storage.RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if err := storage.RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	v, dirty, err := storage.MigrationVersion(path)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if v != 1 || dirty {
		t.Errorf("MigrationVersion() = %d, %v; want 1, false", v, dirty)
	}
	if err := storage.RollbackMigrations(path, 0); err != nil {
		t.Fatalf("RollbackMigrations() error = %v", err)
	}
}
