package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ThresholdRepository defines the interface for low-stock threshold persistence.
type ThresholdRepository interface {
	Set(ctx context.Context, threshold *Threshold) error
	Get(ctx context.Context, itemID string) (*Threshold, error)
	List(ctx context.Context) ([]Threshold, error)
	Remove(ctx context.Context, itemID string) error
	Breaches(ctx context.Context) ([]Breach, error)
}

// SQLiteThresholdRepository implements ThresholdRepository using SQLite.
type SQLiteThresholdRepository struct {
	db *sql.DB
}

// NewThresholdRepository creates a new SQLite-backed threshold repository.
func NewThresholdRepository(db *sql.DB) *SQLiteThresholdRepository {
	return &SQLiteThresholdRepository{db: db}
}

// Set creates or replaces the threshold for an item.
func (r *SQLiteThresholdRepository) Set(ctx context.Context, threshold *Threshold) error {
	now := time.Now().UTC().Format(time.RFC3339)
	threshold.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO thresholds (item_id, min_quantity, set_by, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET min_quantity = excluded.min_quantity, set_by = excluded.set_by, updated_at = excluded.updated_at`,
		threshold.ItemID, threshold.MinQuantity, threshold.SetBy, now,
	)
	if err != nil {
		return fmt.Errorf("setting threshold: %w", err)
	}
	return nil
}

// Get returns the threshold for an item.
func (r *SQLiteThresholdRepository) Get(ctx context.Context, itemID string) (*Threshold, error) {
	var t Threshold
	var updatedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT item_id, min_quantity, set_by, updated_at FROM thresholds WHERE item_id = ?", itemID,
	).Scan(&t.ItemID, &t.MinQuantity, &t.SetBy, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThresholdNotFound
		}
		return nil, fmt.Errorf("getting threshold: %w", err)
	}

	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &t, nil
}

// List returns all thresholds.
func (r *SQLiteThresholdRepository) List(ctx context.Context) ([]Threshold, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT item_id, min_quantity, set_by, updated_at FROM thresholds ORDER BY item_id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing thresholds: %w", err)
	}
	defer rows.Close()

	var thresholds []Threshold
	for rows.Next() {
		var t Threshold
		var updatedAt string
		if err := rows.Scan(&t.ItemID, &t.MinQuantity, &t.SetBy, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning threshold: %w", err)
		}
		t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
		thresholds = append(thresholds, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating thresholds: %w", err)
	}

	if thresholds == nil {
		thresholds = []Threshold{}
	}
	return thresholds, nil
}

// Remove deletes the threshold for an item.
func (r *SQLiteThresholdRepository) Remove(ctx context.Context, itemID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM thresholds WHERE item_id = ?", itemID)
	if err != nil {
		return fmt.Errorf("removing threshold: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrThresholdNotFound
	}
	return nil
}

// Breaches returns items whose current stock is at or below their threshold.
func (r *SQLiteThresholdRepository) Breaches(ctx context.Context) ([]Breach, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.sku, i.name, i.category, i.unit_price_cents, i.expiry_date,
		       i.created_by, i.created_at, i.updated_at,
		       s.quantity, t.min_quantity
		FROM thresholds t
		JOIN stock_levels s ON s.item_id = t.item_id
		JOIN inventory_items i ON i.id = t.item_id
		WHERE s.quantity <= t.min_quantity
		ORDER BY s.quantity ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying threshold breaches: %w", err)
	}
	defer rows.Close()

	var breaches []Breach
	for rows.Next() {
		var b Breach
		var expiry sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&b.Item.ID, &b.Item.SKU, &b.Item.Name, &b.Item.Category,
			&b.Item.UnitPriceCents, &expiry, &b.Item.CreatedBy, &createdAt, &updatedAt,
			&b.Quantity, &b.Threshold); err != nil {
			return nil, fmt.Errorf("scanning threshold breach: %w", err)
		}

		if expiry.Valid {
			t, _ := time.Parse(time.RFC3339, expiry.String) //nolint:errcheck // format is controlled
			b.Item.ExpiryDate = &t
		}
		b.Item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		b.Item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

		breaches = append(breaches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating threshold breaches: %w", err)
	}

	if breaches == nil {
		breaches = []Breach{}
	}
	return breaches, nil
}
