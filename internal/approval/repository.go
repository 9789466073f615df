package approval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for submission persistence.
type Repository interface {
	Create(ctx context.Context, sub *Submission) error
	GetByID(ctx context.Context, id string) (*Submission, error)
	ListPending(ctx context.Context) ([]Submission, error)
	ListByMaker(ctx context.Context, makerID string) ([]Submission, error)
	Decide(ctx context.Context, id, checkerID string, approve bool, comment string) (*Submission, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed submission repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const submissionColumns = "id, kind, payload, status, maker_id, checker_id, comment, created_at, decided_at"

// Create inserts a pending submission. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, sub *Submission) error {
	if !IsValidKind(sub.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, sub.Kind)
	}

	if sub.ID == "" {
		sub.ID = "sub-" + uuid.NewString()[:8]
	}
	sub.Status = StatusPending

	now := time.Now().UTC().Format(time.RFC3339)
	sub.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	payload := string(sub.Payload)
	if payload == "" {
		payload = "{}"
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions (id, kind, payload, status, maker_id, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, string(sub.Kind), payload, string(sub.Status), sub.MakerID, sub.Comment, now,
	)
	if err != nil {
		return fmt.Errorf("creating submission: %w", err)
	}

	return nil
}

// GetByID retrieves a submission by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Submission, error) {
	return scanSubmissionFrom(r.db.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE id = ?", id))
}

// ListPending returns all pending submissions, oldest first, so checkers
// work the queue in arrival order.
func (r *SQLiteRepository) ListPending(ctx context.Context) ([]Submission, error) {
	return r.listSubmissions(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE status = ? ORDER BY created_at ASC, id ASC",
		string(StatusPending))
}

// ListByMaker returns all submissions raised by a maker, newest first.
func (r *SQLiteRepository) ListByMaker(ctx context.Context, makerID string) ([]Submission, error) {
	return r.listSubmissions(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE maker_id = ? ORDER BY created_at DESC, id DESC",
		makerID)
}

// Decide records a checker's verdict on a pending submission.
//
// The update is guarded by status = 'pending' and maker_id != checker so
// both the single-decision rule and the four-eyes rule hold even under
// concurrent decisions.
func (r *SQLiteRepository) Decide(ctx context.Context, id, checkerID string, approve bool, comment string) (*Submission, error) {
	status := StatusRejected
	if approve {
		status = StatusApproved
	}

	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE submissions
		 SET status = ?, checker_id = ?, comment = ?, decided_at = ?
		 WHERE id = ? AND status = ? AND maker_id != ?`,
		string(status), checkerID, comment, now,
		id, string(StatusPending), checkerID,
	)
	if err != nil {
		return nil, fmt.Errorf("deciding submission: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		// Work out which rule blocked the update.
		sub, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if sub.Status != StatusPending {
			return nil, ErrAlreadyDecided
		}
		if sub.MakerID == checkerID {
			return nil, ErrSelfDecision
		}
		return nil, fmt.Errorf("deciding submission %s: update had no effect", id)
	}

	return r.GetByID(ctx, id)
}

func (r *SQLiteRepository) listSubmissions(ctx context.Context, query string, args ...any) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		sub, err := scanSubmissionFrom(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating submissions: %w", err)
	}

	if subs == nil {
		subs = []Submission{}
	}
	return subs, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanSubmissionFrom scans a submission from any scanner (Row or Rows).
func scanSubmissionFrom(s scanner) (*Submission, error) {
	var sub Submission
	var kind, status, payload string
	var checkerID, decidedAt sql.NullString
	var createdAt string

	err := s.Scan(&sub.ID, &kind, &payload, &status, &sub.MakerID,
		&checkerID, &sub.Comment, &createdAt, &decidedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("scanning submission: %w", err)
	}

	sub.Kind = Kind(kind)
	sub.Status = Status(status)
	sub.Payload = []byte(payload)
	if checkerID.Valid {
		sub.CheckerID = checkerID.String
	}
	sub.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	if decidedAt.Valid {
		t, _ := time.Parse(time.RFC3339, decidedAt.String) //nolint:errcheck // format is controlled
		sub.DecidedAt = &t
	}

	return &sub, nil
}
