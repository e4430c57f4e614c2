package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		database, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "nested", "dir", "test.db")

		database, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created in nested directory")
		}
	})

	t.Run("runs migrations", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		database, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

		for _, table := range []string{"reminders", "notifications", "sync_state"} {
			var tableName string
			err = database.QueryRowContext(context.Background(),
				"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
			if err != nil {
				t.Fatalf("%s table not created: %v", table, err)
			}
		}

		version, err := database.Version()
		if err != nil {
			t.Fatalf("Version() error = %v", err)
		}
		if version != 1 {
			t.Errorf("Version() = %d, want 1", version)
		}
	})

	t.Run("reopening is idempotent", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		first, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		_ = first.Close()

		second, err := Open(dbPath)
		if err != nil {
			t.Fatalf("second Open() error = %v", err)
		}
		_ = second.Close()
	})

	t.Run("enables WAL mode", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		database, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

		var journalMode string
		err = database.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&journalMode)
		if err != nil {
			t.Fatalf("failed to get journal_mode: %v", err)
		}

		if journalMode != "wal" {
			t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
		}
	})

	t.Run("enables foreign keys", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		database, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

		var foreignKeys int
		err = database.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&foreignKeys)
		if err != nil {
			t.Fatalf("failed to get foreign_keys: %v", err)
		}

		if foreignKeys != 1 {
			t.Errorf("foreign_keys = %d, want 1", foreignKeys)
		}
	})
}

func TestDB_Path(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

	if got := database.Path(); got != dbPath {
		t.Errorf("Path() = %q, want %q", got, dbPath)
	}
}

func TestDB_Conn(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

	conn := database.Conn()
	if conn == nil {
		t.Error("Conn() returned nil")
	}

	// Verify connection is usable
	if err := conn.PingContext(context.Background()); err != nil {
		t.Errorf("connection ping failed: %v", err)
	}
}

func TestDB_WithTx(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

	t.Run("commits on success", func(t *testing.T) {
		ctx := context.Background()

		err := database.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO sync_state (category, last_synced) VALUES ('tx-test', 0)`)
			return err
		})
		if err != nil {
			t.Fatalf("WithTx() error = %v", err)
		}

		// Verify row exists
		var id string
		err = database.QueryRowContext(ctx, "SELECT category FROM sync_state WHERE category = 'tx-test'").Scan(&id)
		if err != nil {
			t.Errorf("committed row not found: %v", err)
		}
	})

	t.Run("rolls back on error", func(t *testing.T) {
		ctx := context.Background()

		err := database.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO sync_state (category, last_synced) VALUES ('rollback-test', 0)`)
			if err != nil {
				return err
			}
			return context.Canceled // Simulate error
		})
		if err == nil {
			t.Fatal("WithTx() expected error, got nil")
		}

		// Verify row does not exist
		var id string
		err = database.QueryRowContext(ctx, "SELECT category FROM sync_state WHERE category = 'rollback-test'").Scan(&id)
		if err == nil {
			t.Error("rolled back row should not exist")
		}
	})
}

func TestDB_Close(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := database.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Verify connection is closed
	if err := database.Conn().PingContext(context.Background()); err == nil {
		t.Error("connection should be closed")
	}
}
