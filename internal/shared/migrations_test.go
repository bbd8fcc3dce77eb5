package shared

import (
	"database/sql"
	"testing"
)

func newTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func countAppliedMigrations(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	return count
}

func TestMigrations(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i, migration := range migrations {
			if migration.Up == "" {
				t.Errorf("migration %d has no up SQL", migration.Version)
			}
			if migration.Down == "" {
				t.Errorf("migration %d has no down SQL", migration.Version)
			}
			if i > 0 && migrations[i-1].Version >= migration.Version {
				t.Errorf("migrations out of order at index %d", i)
			}
		}
	})

	t.Run("RunMigrations", func(t *testing.T) {
		t.Run("applies all migrations", func(t *testing.T) {
			db := newTestDatabase(t)
			if err := RunMigrations(db); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			migrations, _ := loadMigrations()
			if got := countAppliedMigrations(t, db); got != len(migrations) {
				t.Errorf("expected %d applied migrations, got %d", len(migrations), got)
			}

			for _, table := range []string{"tokens", "recognitions"} {
				if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
					t.Errorf("expected %s table to exist: %v", table, err)
				}
			}
		})

		t.Run("is idempotent", func(t *testing.T) {
			db := newTestDatabase(t)
			if err := RunMigrations(db); err != nil {
				t.Fatalf("first run failed: %v", err)
			}
			if err := RunMigrations(db); err != nil {
				t.Fatalf("second run failed: %v", err)
			}

			migrations, _ := loadMigrations()
			if got := countAppliedMigrations(t, db); got != len(migrations) {
				t.Errorf("expected %d applied migrations, got %d", len(migrations), got)
			}
		})
	})

	t.Run("RollbackMigration", func(t *testing.T) {
		t.Run("removes the most recent migration", func(t *testing.T) {
			db := newTestDatabase(t)
			if err := RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations: %v", err)
			}

			before := countAppliedMigrations(t, db)
			if err := RollbackMigration(db); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := countAppliedMigrations(t, db); got != before-1 {
				t.Errorf("expected %d applied migrations, got %d", before-1, got)
			}
		})

		t.Run("fails with nothing applied", func(t *testing.T) {
			db := newTestDatabase(t)
			if err := createMigrationsTable(db); err != nil {
				t.Fatalf("failed to create migrations table: %v", err)
			}
			if err := RollbackMigration(db); err == nil {
				t.Error("expected error with no migrations applied")
			}
		})
	})

	t.Run("stripComments", func(t *testing.T) {
		input := "CREATE TABLE t ( -- trailing comment\n-- full line comment\nid INTEGER\n)"
		got := stripComments(input)
		want := "CREATE TABLE t (\nid INTEGER\n)"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("parseMigrationName", func(t *testing.T) {
		cases := []struct {
			name    string
			version int
			up      bool
			ok      bool
		}{
			{"0000_create_tables_up.sql", 0, true, true},
			{"0000_create_tables_down.sql", 0, false, true},
			{"0003_add_index_up.sql", 3, true, true},
			{"notes.txt", 0, false, false},
			{"README_up.sql", 0, false, false},
		}
		for _, c := range cases {
			version, up, ok := parseMigrationName(c.name)
			if version != c.version || up != c.up || ok != c.ok {
				t.Errorf("%s: got (%d, %v, %v), want (%d, %v, %v)", c.name, version, up, ok, c.version, c.up, c.ok)
			}
		}
	})
}
