package database

import (
	"path/filepath"
	"testing"
)

func TestMigrateAndSchemaVersion(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "gamearr.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version < 1 {
		t.Errorf("SchemaVersion = %d, want at least 1", version)
	}

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	rolledBack, err := db.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if rolledBack >= version {
		t.Errorf("SchemaVersion after rollback = %d, want below %d", rolledBack, version)
	}
}
