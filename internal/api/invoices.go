package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emart-ops/emart-core/internal/invoice"
)

// createInvoiceRequest is the request body for POST /api/invoices.
type createInvoiceRequest struct {
	Number   string `json:"number"`
	Supplier string `json:"supplier"`
	Lines    []struct {
		ItemID         string `json:"item_id"`
		Quantity       int64  `json:"quantity"`
		UnitPriceCents int64  `json:"unit_price_cents"`
	} `json:"lines"`
}

// handleListInvoices returns all invoices without their lines.
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.invoices.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list invoices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices, "count": len(invoices)})
}

// handleCreateInvoice records a draft supplier invoice.
func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Number == "" || req.Supplier == "" {
		writeValidationError(w, "number and supplier are required")
		return
	}

	inv := &invoice.Invoice{
		Number:   req.Number,
		Supplier: req.Supplier,
	}
	for _, line := range req.Lines {
		inv.Lines = append(inv.Lines, invoice.Line{
			ItemID:         line.ItemID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}

	if claims := claimsFrom(r.Context()); claims != nil {
		inv.CreatedBy = claims.Subject
	}

	if err := s.invoices.Create(r.Context(), inv); err != nil {
		switch {
		case errors.Is(err, invoice.ErrNoLines), errors.Is(err, invoice.ErrInvalidLine):
			writeValidationError(w, err.Error())
		case errors.Is(err, invoice.ErrNumberExists):
			writeConflict(w, "invoice number already exists")
		default:
			s.logger.Error("creating invoice failed", "number", req.Number, "error", err)
			writeInternalError(w, "failed to create invoice")
		}
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

// handleGetInvoice returns an invoice with its lines.
func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := s.invoices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrInvoiceNotFound) {
			writeNotFound(w, "invoice not found")
			return
		}
		writeInternalError(w, "failed to get invoice")
		return
	}

	writeJSON(w, http.StatusOK, inv)
}

// handleFinaliseInvoice locks a draft invoice and posts its received
// quantities to stock.
func (s *Server) handleFinaliseInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := s.invoices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrInvoiceNotFound) {
			writeNotFound(w, "invoice not found")
			return
		}
		writeInternalError(w, "failed to get invoice")
		return
	}

	if err := s.invoices.SetStatus(r.Context(), id, invoice.StatusFinalised); err != nil {
		if errors.Is(err, invoice.ErrNotDraft) {
			writeConflict(w, "invoice is not a draft")
			return
		}
		writeInternalError(w, "failed to finalise invoice")
		return
	}

	// Post received quantities into stock under the finalising user.
	claims := claimsFrom(r.Context())
	adjustedBy := ""
	if claims != nil {
		adjustedBy = claims.Subject
	}

	for _, line := range inv.Lines {
		movement, err := s.stock.Adjust(r.Context(), line.ItemID, line.Quantity,
			"invoice "+inv.Number, adjustedBy)
		if err != nil {
			s.logger.Error("posting invoice line to stock failed",
				"invoice_id", inv.ID, "item_id", line.ItemID, "error", err)
			continue
		}
		s.broadcastStockAlert(r, line.ItemID, movement.QuantityAfter)
	}

	updated, err := s.invoices.GetByID(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to reload invoice")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleCancelInvoice abandons a draft invoice.
func (s *Server) handleCancelInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.invoices.SetStatus(r.Context(), id, invoice.StatusCancelled); err != nil {
		switch {
		case errors.Is(err, invoice.ErrInvoiceNotFound):
			writeNotFound(w, "invoice not found")
		case errors.Is(err, invoice.ErrNotDraft):
			writeConflict(w, "invoice is not a draft")
		default:
			writeInternalError(w, "failed to cancel invoice")
		}
		return
	}

	inv, err := s.invoices.GetByID(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to reload invoice")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
