package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emart-ops/emart-core/internal/approval"
	"github.com/emart-ops/emart-core/internal/audit"
	"github.com/emart-ops/emart-core/internal/auth"
)

// createSubmissionRequest is the request body for POST /api/submissions.
type createSubmissionRequest struct {
	Kind    approval.Kind   `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	Comment string          `json:"comment"`
}

// decideRequest is the request body for approve/reject.
type decideRequest struct {
	Comment string `json:"comment"`
}

// handleCreateSubmission raises a pending submission for checker review.
func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	claims := claimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	sub := &approval.Submission{
		Kind:    req.Kind,
		Payload: req.Payload,
		MakerID: claims.Subject,
		Comment: req.Comment,
	}

	if err := s.approvals.Create(r.Context(), sub); err != nil {
		if errors.Is(err, approval.ErrInvalidKind) {
			writeValidationError(w, "kind must be item_create, item_update, stock_adjust or invoice")
			return
		}
		writeInternalError(w, "failed to create submission")
		return
	}

	s.recordAudit(r, userFromClaims(claims), audit.ActionSubmit, "submission", sub.ID, string(sub.Kind))
	s.broadcast(ChannelSubmissionPending, map[string]any{
		"submission_id": sub.ID,
		"kind":          sub.Kind,
		"maker_id":      sub.MakerID,
	})

	writeJSON(w, http.StatusCreated, sub)
}

// handleGetSubmission returns a single submission.
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := s.approvals.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, approval.ErrSubmissionNotFound) {
			writeNotFound(w, "submission not found")
			return
		}
		writeInternalError(w, "failed to get submission")
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

// handlePendingSubmissions returns the review queue, oldest first.
// Checker and manager only.
func (s *Server) handlePendingSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.approvals.ListPending(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list pending submissions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs, "count": len(subs)})
}

// handleMySubmissions returns the caller's own submissions, newest first.
func (s *Server) handleMySubmissions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	subs, err := s.approvals.ListByMaker(r.Context(), claims.Subject)
	if err != nil {
		writeInternalError(w, "failed to list submissions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs, "count": len(subs)})
}

// handleApproveSubmission records an approval. Checker and manager only.
func (s *Server) handleApproveSubmission(w http.ResponseWriter, r *http.Request) {
	s.decideSubmission(w, r, true)
}

// handleRejectSubmission records a rejection. Checker and manager only.
func (s *Server) handleRejectSubmission(w http.ResponseWriter, r *http.Request) {
	s.decideSubmission(w, r, false)
}

// decideSubmission applies a checker verdict and broadcasts the outcome.
func (s *Server) decideSubmission(w http.ResponseWriter, r *http.Request, approve bool) {
	id := chi.URLParam(r, "id")

	var req decideRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	claims := claimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	sub, err := s.approvals.Decide(r.Context(), id, claims.Subject, approve, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrSubmissionNotFound):
			writeNotFound(w, "submission not found")
		case errors.Is(err, approval.ErrSelfDecision):
			writeForbidden(w, "cannot decide your own submission")
		case errors.Is(err, approval.ErrAlreadyDecided):
			writeConflict(w, "submission already decided")
		default:
			s.logger.Error("deciding submission failed", "submission_id", id, "error", err)
			writeInternalError(w, "failed to decide submission")
		}
		return
	}

	action := audit.ActionReject
	if approve {
		action = audit.ActionApprove
	}
	s.recordAudit(r, userFromClaims(claims), action, "submission", sub.ID, req.Comment)
	s.broadcast(ChannelSubmissionDecided, map[string]any{
		"submission_id": sub.ID,
		"status":        sub.Status,
		"checker_id":    sub.CheckerID,
	})

	writeJSON(w, http.StatusOK, sub)
}

// userFromClaims builds a minimal user for audit attribution.
func userFromClaims(claims *auth.CustomClaims) *auth.User {
	if claims == nil {
		return nil
	}
	return &auth.User{ID: claims.Subject, Username: claims.Username}
}
