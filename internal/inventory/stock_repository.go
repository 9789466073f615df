package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StockRepository defines the interface for stock level persistence.
type StockRepository interface {
	GetLevel(ctx context.Context, itemID string) (*StockLevel, error)
	ListLevels(ctx context.Context) ([]StockLevel, error)
	Adjust(ctx context.Context, itemID string, delta int64, reason, adjustedBy string) (*Movement, error)
	History(ctx context.Context, itemID string, limit int) ([]Movement, error)
}

// SQLiteStockRepository implements StockRepository using SQLite.
type SQLiteStockRepository struct {
	db *sql.DB
}

// NewStockRepository creates a new SQLite-backed stock repository.
func NewStockRepository(db *sql.DB) *SQLiteStockRepository {
	return &SQLiteStockRepository{db: db}
}

// defaultHistoryLimit caps history queries when no limit is given.
const defaultHistoryLimit = 100

// GetLevel returns the current stock level for an item.
func (r *SQLiteStockRepository) GetLevel(ctx context.Context, itemID string) (*StockLevel, error) {
	var level StockLevel
	var updatedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT item_id, quantity, updated_at FROM stock_levels WHERE item_id = ?", itemID,
	).Scan(&level.ItemID, &level.Quantity, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("getting stock level: %w", err)
	}

	level.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &level, nil
}

// ListLevels returns stock levels for all items.
func (r *SQLiteStockRepository) ListLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT item_id, quantity, updated_at FROM stock_levels ORDER BY item_id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var level StockLevel
		var updatedAt string
		if err := rows.Scan(&level.ItemID, &level.Quantity, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning stock level: %w", err)
		}
		level.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stock levels: %w", err)
	}

	if levels == nil {
		levels = []StockLevel{}
	}
	return levels, nil
}

// Adjust applies a stock movement: the level update and the history entry
// commit in one transaction. Negative deltas that would take the quantity
// below zero fail with ErrInsufficientStock and leave the level unchanged.
func (r *SQLiteStockRepository) Adjust(ctx context.Context, itemID string, delta int64, reason, adjustedBy string) (*Movement, error) {
	if delta == 0 {
		return nil, ErrZeroDelta
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var current int64
	err = tx.QueryRowContext(ctx,
		"SELECT quantity FROM stock_levels WHERE item_id = ?", itemID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("reading stock level: %w", err)
	}

	after := current + delta
	if after < 0 {
		return nil, fmt.Errorf("%w: have %d, requested %d", ErrInsufficientStock, current, delta)
	}

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339)

	_, err = tx.ExecContext(ctx,
		"UPDATE stock_levels SET quantity = ?, updated_at = ? WHERE item_id = ?",
		after, nowStr, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating stock level: %w", err)
	}

	movement := &Movement{
		ID:            "mov-" + uuid.NewString()[:8],
		ItemID:        itemID,
		Delta:         delta,
		QuantityAfter: after,
		Reason:        reason,
		AdjustedBy:    adjustedBy,
		CreatedAt:     now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stock_history (id, item_id, delta, quantity_after, reason, adjusted_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		movement.ID, movement.ItemID, movement.Delta, movement.QuantityAfter,
		movement.Reason, movement.AdjustedBy, nowStr,
	)
	if err != nil {
		return nil, fmt.Errorf("recording stock movement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stock adjustment: %w", err)
	}
	return movement, nil
}

// History returns the most recent movements for an item, newest first.
func (r *SQLiteStockRepository) History(ctx context.Context, itemID string, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_id, delta, quantity_after, reason, adjusted_by, created_at
		 FROM stock_history WHERE item_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		itemID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stock history: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Delta, &m.QuantityAfter,
			&m.Reason, &m.AdjustedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning stock movement: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stock history: %w", err)
	}

	if movements == nil {
		movements = []Movement{}
	}
	return movements, nil
}
