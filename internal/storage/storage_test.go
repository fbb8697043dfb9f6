package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/lotas/tabsieb/internal/kv"
)

// testDB creates a temporary database for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "tabsieb.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not found: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if count != len(migrations) {
		t.Errorf("expected %d migrations recorded, got %d", len(migrations), count)
	}
}

func TestOpenDB_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	if err := NewKV(db).Set("filters.history", []byte(`{"nextId":3}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	db.Close()

	db2, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB again: %v", err)
	}
	defer db2.Close()

	got, err := NewKV(db2).Get("filters.history")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != `{"nextId":3}` {
		t.Errorf("value = %s", got)
	}
}

func TestKV_SetGetDelete(t *testing.T) {
	store := NewKV(testDB(t))

	if _, err := store.Get("prefs.timeRange"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get missing: got %v, want ErrNotFound", err)
	}

	if err := store.Set("prefs.timeRange", []byte(`"week"`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("prefs.timeRange", []byte(`"month"`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := store.Get("prefs.timeRange")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `"month"` {
		t.Errorf("Get = %s, want \"month\"", got)
	}

	if err := store.Delete("prefs.timeRange"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete("prefs.timeRange"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	if _, err := store.Get("prefs.timeRange"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after delete: got %v", err)
	}
}

func TestKV_JSONHelpers(t *testing.T) {
	store := NewKV(testDB(t))

	type rec struct {
		ID      int64    `json:"id"`
		Domains []string `json:"domains"`
	}
	in := []rec{{ID: 1, Domains: []string{"a.com"}}, {ID: 2}}
	if err := kv.SetJSON(store, "windows.saved", in); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var out []rec
	if err := kv.GetJSON(store, "windows.saved", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
