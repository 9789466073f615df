package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemRepository defines the interface for catalogue persistence.
type ItemRepository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	GetBySKU(ctx context.Context, sku string) (*Item, error)
	List(ctx context.Context) ([]Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
	ExpiringWithin(ctx context.Context, days int) ([]Item, error)
}

// SQLiteItemRepository implements ItemRepository using SQLite.
type SQLiteItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new SQLite-backed item repository.
func NewItemRepository(db *sql.DB) *SQLiteItemRepository {
	return &SQLiteItemRepository{db: db}
}

const itemColumns = "id, sku, name, category, unit_price_cents, expiry_date, created_by, created_at, updated_at"

// Create inserts a new catalogue item and an empty stock level row for it.
// The ID is generated if empty.
func (r *SQLiteItemRepository) Create(ctx context.Context, item *Item) error {
	if item.ID == "" {
		item.ID = "itm-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	item.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	item.UpdatedAt = item.CreatedAt

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory_items (id, sku, name, category, unit_price_cents, expiry_date, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.SKU, item.Name, item.Category, item.UnitPriceCents,
		nullableTime(item.ExpiryDate), item.CreatedBy, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSKUExists
		}
		return fmt.Errorf("creating item: %w", err)
	}

	// Every item starts with a zero stock level row.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO stock_levels (item_id, quantity, updated_at) VALUES (?, 0, ?)`,
		item.ID, now,
	)
	if err != nil {
		return fmt.Errorf("creating stock level: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item: %w", err)
	}
	return nil
}

// GetByID retrieves an item by its unique ID.
func (r *SQLiteItemRepository) GetByID(ctx context.Context, id string) (*Item, error) {
	return scanItemFrom(r.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM inventory_items WHERE id = ?", id))
}

// GetBySKU retrieves an item by its SKU.
func (r *SQLiteItemRepository) GetBySKU(ctx context.Context, sku string) (*Item, error) {
	return scanItemFrom(r.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM inventory_items WHERE sku = ?", sku))
}

// List returns all items ordered by name.
func (r *SQLiteItemRepository) List(ctx context.Context) ([]Item, error) {
	return r.listItems(ctx, "SELECT "+itemColumns+" FROM inventory_items ORDER BY name ASC")
}

// Update modifies an item's mutable fields (name, category, price, expiry).
func (r *SQLiteItemRepository) Update(ctx context.Context, item *Item) error {
	now := time.Now().UTC().Format(time.RFC3339)
	item.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE inventory_items SET name = ?, category = ?, unit_price_cents = ?, expiry_date = ?, updated_at = ? WHERE id = ?`,
		item.Name, item.Category, item.UnitPriceCents, nullableTime(item.ExpiryDate), now, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Delete removes an item and, via cascade, its stock level, history and threshold.
func (r *SQLiteItemRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM inventory_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ExpiringWithin returns items whose expiry date falls within the next
// given number of days, soonest first. Items without an expiry are excluded.
func (r *SQLiteItemRepository) ExpiringWithin(ctx context.Context, days int) ([]Item, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, days).Format(time.RFC3339)
	return r.listItems(ctx,
		"SELECT "+itemColumns+" FROM inventory_items WHERE expiry_date IS NOT NULL AND expiry_date <= ? ORDER BY expiry_date ASC",
		cutoff,
	)
}

func (r *SQLiteItemRepository) listItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItemFrom(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}

	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanItemFrom scans an item from any scanner (Row or Rows).
func scanItemFrom(s scanner) (*Item, error) {
	var item Item
	var expiry sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&item.ID, &item.SKU, &item.Name, &item.Category,
		&item.UnitPriceCents, &expiry, &item.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("scanning item: %w", err)
	}

	if expiry.Valid {
		t, _ := time.Parse(time.RFC3339, expiry.String) //nolint:errcheck // format is controlled
		item.ExpiryDate = &t
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &item, nil
}

// nullableTime returns nil for nil times, or the RFC3339 string otherwise.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
