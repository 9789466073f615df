package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emart-ops/emart-core/internal/audit"
	"github.com/emart-ops/emart-core/internal/inventory"
)

// setThresholdRequest is the request body for PUT /api/thresholds/{itemID}.
type setThresholdRequest struct {
	MinQuantity int64 `json:"min_quantity"`
}

// handleListThresholds returns all configured thresholds.
func (s *Server) handleListThresholds(w http.ResponseWriter, r *http.Request) {
	thresholds, err := s.thresholds.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list thresholds")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thresholds": thresholds, "count": len(thresholds)})
}

// handleSetThreshold creates or replaces an item's low-stock threshold.
// Manager-only.
func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req setThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.MinQuantity < 0 {
		writeValidationError(w, "min_quantity must not be negative")
		return
	}

	// Verify the item exists before attaching a threshold to it.
	if _, err := s.items.GetByID(r.Context(), itemID); err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			writeNotFound(w, "item not found")
			return
		}
		writeInternalError(w, "failed to get item")
		return
	}

	claims := claimsFrom(r.Context())

	threshold := &inventory.Threshold{
		ItemID:      itemID,
		MinQuantity: req.MinQuantity,
		SetBy:       claims.Subject,
	}

	if err := s.thresholds.Set(r.Context(), threshold); err != nil {
		writeInternalError(w, "failed to set threshold")
		return
	}

	s.recordAudit(r, userFromClaims(claims), audit.ActionThresholdSet, "item", itemID,
		fmt.Sprintf("min_quantity=%d", req.MinQuantity))

	writeJSON(w, http.StatusOK, threshold)
}

// handleRemoveThreshold deletes an item's threshold. Manager-only.
func (s *Server) handleRemoveThreshold(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	if err := s.thresholds.Remove(r.Context(), itemID); err != nil {
		if errors.Is(err, inventory.ErrThresholdNotFound) {
			writeNotFound(w, "threshold not found")
			return
		}
		writeInternalError(w, "failed to remove threshold")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
