package approval

import (
	"encoding/json"
	"errors"
	"time"
)

// Status represents the lifecycle state of a submission.
type Status string

const (
	// StatusPending is a submission awaiting a checker decision.
	StatusPending Status = "pending"

	// StatusApproved is a submission accepted by a checker.
	StatusApproved Status = "approved"

	// StatusRejected is a submission turned down by a checker.
	StatusRejected Status = "rejected"
)

// Kind identifies what a submission proposes.
type Kind string

const (
	KindItemCreate  Kind = "item_create"
	KindItemUpdate  Kind = "item_update"
	KindStockAdjust Kind = "stock_adjust"
	KindInvoice     Kind = "invoice"
)

// ValidKinds is the set of submission kinds the workflow accepts.
var ValidKinds = []Kind{KindItemCreate, KindItemUpdate, KindStockAdjust, KindInvoice}

// IsValidKind returns true if the kind is one the workflow accepts.
func IsValidKind(k Kind) bool {
	for _, v := range ValidKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Submission is a maker's proposed change awaiting checker review.
// The payload is the proposed change serialised as JSON; its shape
// depends on the kind.
type Submission struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Status    Status          `json:"status"`
	MakerID   string          `json:"maker_id"`
	CheckerID string          `json:"checker_id,omitempty"`
	Comment   string          `json:"comment,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
}

// Sentinel errors for approval operations.
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidKind        = errors.New("invalid submission kind")
	ErrSelfDecision       = errors.New("cannot decide own submission")
	ErrAlreadyDecided     = errors.New("submission already decided")
)
