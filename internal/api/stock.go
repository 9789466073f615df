package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/emart-ops/emart-core/internal/audit"
	"github.com/emart-ops/emart-core/internal/inventory"
)

// adjustStockRequest is the request body for POST /api/stock/{itemID}/adjust.
type adjustStockRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

// handleListStockLevels returns current stock levels for all items.
func (s *Server) handleListStockLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.stock.ListLevels(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list stock levels")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"levels": levels, "count": len(levels)})
}

// handleGetStockLevel returns the stock level for one item.
func (s *Server) handleGetStockLevel(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	level, err := s.stock.GetLevel(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			writeNotFound(w, "item not found")
			return
		}
		writeInternalError(w, "failed to get stock level")
		return
	}

	writeJSON(w, http.StatusOK, level)
}

// handleAdjustStock applies a stock movement and broadcasts a threshold
// alert if the adjustment drops the item to or below its alert level.
func (s *Server) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	claims := claimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	movement, err := s.stock.Adjust(r.Context(), itemID, req.Delta, req.Reason, claims.Subject)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrZeroDelta):
			writeValidationError(w, "delta must be non-zero")
		case errors.Is(err, inventory.ErrItemNotFound):
			writeNotFound(w, "item not found")
		case errors.Is(err, inventory.ErrInsufficientStock):
			writeConflict(w, "insufficient stock for adjustment")
		default:
			s.logger.Error("stock adjustment failed", "item_id", itemID, "error", err)
			writeInternalError(w, "failed to adjust stock")
		}
		return
	}

	s.recordAudit(r, userFromClaims(claims), audit.ActionStockAdjust, "item", itemID,
		fmt.Sprintf("delta=%d after=%d reason=%s", movement.Delta, movement.QuantityAfter, req.Reason))

	s.broadcastStockAlert(r, itemID, movement.QuantityAfter)

	writeJSON(w, http.StatusOK, movement)
}

// handleStockHistory returns recent movements for an item.
func (s *Server) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := parsePositiveInt(v)
		if err != nil {
			writeValidationError(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	history, err := s.stock.History(r.Context(), itemID, limit)
	if err != nil {
		writeInternalError(w, "failed to get stock history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"movements": history, "count": len(history)})
}

// handleStockAlerts returns current threshold breaches.
func (s *Server) handleStockAlerts(w http.ResponseWriter, r *http.Request) {
	breaches, err := s.thresholds.Breaches(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list stock alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alerts": breaches, "count": len(breaches)})
}

// broadcastStockAlert pushes stock events to WebSocket subscribers.
//
// Every adjustment goes to "stock.adjusted"; a drop to or below the
// item's threshold additionally raises "stock.low".
func (s *Server) broadcastStockAlert(r *http.Request, itemID string, quantityAfter int64) {
	s.broadcast(ChannelStockAdjusted, map[string]any{
		"item_id":  itemID,
		"quantity": quantityAfter,
	})

	threshold, err := s.thresholds.Get(r.Context(), itemID)
	if err != nil {
		return // no threshold set, nothing to alert on
	}
	if quantityAfter <= threshold.MinQuantity {
		s.broadcast(ChannelStockLow, map[string]any{
			"item_id":   itemID,
			"quantity":  quantityAfter,
			"threshold": threshold.MinQuantity,
		})
	}
}

// parsePositiveInt parses a query parameter as a positive integer.
func parsePositiveInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", v)
	}
	return n, nil
}
