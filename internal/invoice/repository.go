package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for invoice persistence.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id string) (*Invoice, error)
	List(ctx context.Context) ([]Invoice, error)
	SetStatus(ctx context.Context, id string, status Status) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed invoice repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const invoiceColumns = "id, number, supplier, status, total_cents, created_by, created_at, updated_at"

// Create inserts a draft invoice with its lines in one transaction.
// The total is computed from the lines; the ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, inv *Invoice) error {
	if len(inv.Lines) == 0 {
		return ErrNoLines
	}
	for _, line := range inv.Lines {
		if line.ItemID == "" || line.Quantity <= 0 || line.UnitPriceCents < 0 {
			return fmt.Errorf("%w: item %q qty %d price %d",
				ErrInvalidLine, line.ItemID, line.Quantity, line.UnitPriceCents)
		}
	}

	if inv.ID == "" {
		inv.ID = "inv-" + uuid.NewString()[:8]
	}
	inv.Status = StatusDraft

	inv.TotalCents = 0
	for _, line := range inv.Lines {
		inv.TotalCents += line.Quantity * line.UnitPriceCents
	}

	now := time.Now().UTC().Format(time.RFC3339)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	inv.UpdatedAt = inv.CreatedAt

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO invoices (id, number, supplier, status, total_cents, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Number, inv.Supplier, string(inv.Status), inv.TotalCents,
		inv.CreatedBy, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrNumberExists
		}
		return fmt.Errorf("creating invoice: %w", err)
	}

	for i := range inv.Lines {
		line := &inv.Lines[i]
		if line.ID == "" {
			line.ID = "inl-" + uuid.NewString()[:8]
		}
		line.InvoiceID = inv.ID

		_, err = tx.ExecContext(ctx,
			`INSERT INTO invoice_items (id, invoice_id, item_id, quantity, unit_price_cents)
			 VALUES (?, ?, ?, ?, ?)`,
			line.ID, line.InvoiceID, line.ItemID, line.Quantity, line.UnitPriceCents,
		)
		if err != nil {
			return fmt.Errorf("creating invoice line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice with its lines.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Invoice, error) {
	inv, err := scanInvoiceFrom(r.db.QueryRowContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, invoice_id, item_id, quantity, unit_price_cents
		 FROM invoice_items WHERE invoice_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ItemID,
			&line.Quantity, &line.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("scanning invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice lines: %w", err)
	}

	return inv, nil
}

// List returns all invoices (without lines), newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoiceFrom(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	if invoices == nil {
		invoices = []Invoice{}
	}
	return invoices, nil
}

// SetStatus transitions an invoice out of draft. Only draft invoices can
// be finalised or cancelled.
func (r *SQLiteRepository) SetStatus(ctx context.Context, id string, status Status) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), now, id, string(StatusDraft),
	)
	if err != nil {
		return fmt.Errorf("updating invoice status: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		// Distinguish missing from already-decided.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNotDraft
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanInvoiceFrom scans an invoice from any scanner (Row or Rows).
func scanInvoiceFrom(s scanner) (*Invoice, error) {
	var inv Invoice
	var status string
	var createdAt, updatedAt string

	err := s.Scan(&inv.ID, &inv.Number, &inv.Supplier, &status,
		&inv.TotalCents, &inv.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("scanning invoice: %w", err)
	}

	inv.Status = Status(status)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &inv, nil
}
