package invoice

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of an invoice.
type Status string

const (
	// StatusDraft is an invoice still being edited by a maker.
	StatusDraft Status = "draft"

	// StatusFinalised is an invoice locked for posting. Finalising applies
	// the received quantities to stock.
	StatusFinalised Status = "finalised"

	// StatusCancelled is a draft that was abandoned.
	StatusCancelled Status = "cancelled"
)

// Invoice represents a supplier invoice.
type Invoice struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	Supplier   string    `json:"supplier"`
	Status     Status    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	Lines      []Line    `json:"lines,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Line is a single invoice line: a quantity of one catalogue item at an
// agreed unit price.
type Line struct {
	ID             string `json:"id"`
	InvoiceID      string `json:"invoice_id"`
	ItemID         string `json:"item_id"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Sentinel errors for invoice operations.
var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrNumberExists    = errors.New("invoice number already exists")
	ErrNotDraft        = errors.New("invoice is not a draft")
	ErrNoLines         = errors.New("invoice has no lines")
	ErrInvalidLine     = errors.New("invalid invoice line")
)
