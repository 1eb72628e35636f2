package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/schedd/internal/model"
)

func openRaw(t *testing.T, driver string) *sql.DB {
	t.Helper()
	db, err := sql.Open(driver, filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateUpRecordsVersions(t *testing.T) {
	for _, driver := range []string{DriverCgo, DriverPure} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			db := openRaw(t, driver)

			n, err := MigrateUp(ctx, db)
			if err != nil {
				t.Fatalf("first migrate up failed: %v", err)
			}
			if n != 1 {
				t.Fatalf("applied = %d, want 1", n)
			}
			v, err := SchemaVersion(ctx, db)
			if err != nil || v != 1 {
				t.Fatalf("schema version = %d err=%v, want 1", v, err)
			}

			n, err = MigrateUp(ctx, db)
			if err != nil {
				t.Fatalf("repeated migrate up failed: %v", err)
			}
			if n != 0 {
				t.Fatalf("repeated migrate up applied %d, want 0", n)
			}
		})
	}
}

func TestMigrateRoundTripCompatibility(t *testing.T) {
	ctx := context.Background()
	db := openRaw(t, DriverCgo)

	if _, err := MigrateUp(ctx, db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}
	n, err := MigrateDown(ctx, db)
	if err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("reverted = %d, want 1", n)
	}
	if v, _ := SchemaVersion(ctx, db); v != 0 {
		t.Fatalf("schema version after down = %d, want 0", v)
	}
	if _, err := db.ExecContext(ctx, `SELECT 1 FROM appointments`); err == nil {
		t.Fatal("appointments table should be gone after migrate down")
	}
	if _, err := MigrateUp(ctx, db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	created, err := repo.CreateAppointment(ctx, model.Appointment{
		Date:  model.NewDate(2025, time.October, 1),
		Start: 9 * 60,
		End:   10 * 60,
		Title: "Roundtrip",
	})
	if err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}

	got, err := repo.GetAppointment(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if got.Title != "Roundtrip" {
		t.Fatalf("unexpected title after roundtrip: %q", got.Title)
	}
}

func TestLoadMigrationsPairsFiles(t *testing.T) {
	all, err := loadMigrations()
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if len(all) == 0 || all[0].version != 1 || all[0].name != "init" {
		t.Fatalf("unexpected migrations: %+v", all)
	}
	for _, m := range all {
		if m.up == "" || m.down == "" {
			t.Fatalf("migration %d missing a file: %+v", m.version, m)
		}
	}
}
