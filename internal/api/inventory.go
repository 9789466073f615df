package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emart-ops/emart-core/internal/inventory"
)

// createItemRequest is the request body for POST /api/inventory.
type createItemRequest struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	ExpiryDate     string `json:"expiry_date,omitempty"` // RFC3339
}

// updateItemRequest is the request body for PATCH /api/inventory/{id}.
// Pointer fields distinguish "not sent" from zero values.
type updateItemRequest struct {
	Name           *string `json:"name"`
	Category       *string `json:"category"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
	ExpiryDate     *string `json:"expiry_date"`
}

// handleListItems returns the full catalogue.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.items.List(r.Context())
	if err != nil {
		s.logger.Error("listing items failed", "error", err)
		writeInternalError(w, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// handleCreateItem adds a catalogue item with a zero stock level.
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.SKU == "" || req.Name == "" {
		writeValidationError(w, "sku and name are required")
		return
	}
	if req.UnitPriceCents < 0 {
		writeValidationError(w, "unit_price_cents must not be negative")
		return
	}

	item := &inventory.Item{
		SKU:            req.SKU,
		Name:           req.Name,
		Category:       req.Category,
		UnitPriceCents: req.UnitPriceCents,
	}

	if req.ExpiryDate != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiryDate)
		if err != nil {
			writeValidationError(w, "expiry_date must be RFC3339")
			return
		}
		item.ExpiryDate = &t
	}

	if claims := claimsFrom(r.Context()); claims != nil {
		item.CreatedBy = claims.Subject
	}

	if err := s.items.Create(r.Context(), item); err != nil {
		if errors.Is(err, inventory.ErrSKUExists) {
			writeConflict(w, "sku already exists")
			return
		}
		s.logger.Error("creating item failed", "sku", req.SKU, "error", err)
		writeInternalError(w, "failed to create item")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// handleGetItem returns a single catalogue item.
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := s.items.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			writeNotFound(w, "item not found")
			return
		}
		writeInternalError(w, "failed to get item")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// handleUpdateItem applies a partial update to a catalogue item.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := s.items.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			writeNotFound(w, "item not found")
			return
		}
		writeInternalError(w, "failed to get item")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeValidationError(w, "name must not be empty")
			return
		}
		item.Name = *req.Name
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.UnitPriceCents != nil {
		if *req.UnitPriceCents < 0 {
			writeValidationError(w, "unit_price_cents must not be negative")
			return
		}
		item.UnitPriceCents = *req.UnitPriceCents
	}
	if req.ExpiryDate != nil {
		if *req.ExpiryDate == "" {
			item.ExpiryDate = nil
		} else {
			t, err := time.Parse(time.RFC3339, *req.ExpiryDate)
			if err != nil {
				writeValidationError(w, "expiry_date must be RFC3339")
				return
			}
			item.ExpiryDate = &t
		}
	}

	if err := s.items.Update(r.Context(), item); err != nil {
		writeInternalError(w, "failed to update item")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// handleDeleteItem removes a catalogue item. Manager-only.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.items.Delete(r.Context(), id); err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			writeNotFound(w, "item not found")
			return
		}
		writeInternalError(w, "failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExpiringItems returns items expiring within ?days (default 7).
func (s *Server) handleExpiringItems(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := parsePositiveInt(v)
		if err != nil {
			writeValidationError(w, "days must be a positive integer")
			return
		}
		days = parsed
	}

	items, err := s.items.ExpiringWithin(r.Context(), days)
	if err != nil {
		writeInternalError(w, "failed to list expiring items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items), "days": days})
}
