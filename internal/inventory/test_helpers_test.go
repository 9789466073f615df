package inventory

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the inventory schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "inventory-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE
		) STRICT;

		CREATE TABLE inventory_items (
			id TEXT PRIMARY KEY,
			sku TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			unit_price_cents INTEGER NOT NULL DEFAULT 0,
			expiry_date TEXT,
			created_by TEXT NOT NULL REFERENCES users(id),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE stock_levels (
			item_id TEXT PRIMARY KEY REFERENCES inventory_items(id) ON DELETE CASCADE,
			quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE stock_history (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL REFERENCES inventory_items(id) ON DELETE CASCADE,
			delta INTEGER NOT NULL,
			quantity_after INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			adjusted_by TEXT NOT NULL REFERENCES users(id),
			created_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE thresholds (
			item_id TEXT PRIMARY KEY REFERENCES inventory_items(id) ON DELETE CASCADE,
			min_quantity INTEGER NOT NULL CHECK (min_quantity >= 0),
			set_by TEXT NOT NULL REFERENCES users(id),
			updated_at TEXT NOT NULL
		) STRICT;

		INSERT INTO users (id, username) VALUES ('usr-maker', 'maker');
		INSERT INTO users (id, username) VALUES ('usr-manager', 'manager');
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying inventory migration: %v", err)
	}

	return db
}

// seedTestItem inserts a catalogue item (with its zero stock row) and returns it.
func seedTestItem(t *testing.T, db *sql.DB, sku, name string) *Item {
	t.Helper()

	repo := NewItemRepository(db)
	item := &Item{
		SKU:       sku,
		Name:      name,
		Category:  "dairy",
		CreatedBy: "usr-maker",
	}
	if err := repo.Create(context.Background(), item); err != nil {
		t.Fatalf("creating test item %s: %v", sku, err)
	}
	return item
}
