package db

import (
	"testing"
	"testing/fstest"
)

func TestLoadSortsAndSkipsNonMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_breaks.sql":     {Data: []byte("CREATE TABLE b (id int);")},
		"migrations/001_rules.sql":      {Data: []byte("CREATE TABLE a (id int);")},
		"migrations/README.md":          {Data: []byte("notes")},
		"migrations/seed.sql":           {Data: []byte("SELECT 1;")},
		"migrations/abc_not_number.sql": {Data: []byte("SELECT 1;")},
	}
	m := NewMigrator(nil, fsys, "migrations")

	got, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != 1 || got[1].Version != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].SQL != "CREATE TABLE a (id int);" {
		t.Fatalf("unexpected sql: %q", got[0].SQL)
	}
}

func TestLoadRejectsDuplicateVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := NewMigrator(nil, fsys, ".").Load(); err == nil {
		t.Fatal("expected duplicate version error")
	}
}
