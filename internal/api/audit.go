package api

import (
	"net/http"

	"github.com/emart-ops/emart-core/internal/audit"
)

// handleListAudit returns the audit trail with optional filters.
// Manager-only.
//
// Query parameters: action, entity_type, entity_id, user_id, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
	}

	if v := q.Get("limit"); v != "" {
		parsed, err := parsePositiveInt(v)
		if err != nil {
			writeValidationError(w, "limit must be a positive integer")
			return
		}
		filter.Limit = parsed
	}
	if v := q.Get("offset"); v != "" {
		parsed, err := parsePositiveInt(v)
		if err != nil {
			writeValidationError(w, "offset must be a positive integer")
			return
		}
		filter.Offset = parsed
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit trail failed", "error", err)
		writeInternalError(w, "failed to list audit trail")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
