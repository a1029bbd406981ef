package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/qodeinvest/qode-engine/internal/nlsql"
	"github.com/qodeinvest/qode-engine/internal/pkg/logctx"
	"github.com/qodeinvest/qode-engine/internal/service"
)

func (h *Handler) translateQuestion(w http.ResponseWriter, r *http.Request) {
	if h.translator == nil {
		respondError(w, http.StatusServiceUnavailable, "translator_unavailable", "natural language translation is not configured", nil)
		return
	}

	var payload TranslateRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}

	name := strings.TrimSpace(payload.ResourceName)
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing_resource", "resourceName is required", nil)
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		respondError(w, http.StatusBadRequest, "missing_question", "question is required", nil)
		return
	}

	handle, ok := h.sessions.GetConnection(name)
	if !ok || handle == nil || handle.Adapter == nil {
		respondError(w, http.StatusConflict, "connection_not_ready", service.ErrConnectionUnavailable.Error(), nil)
		return
	}

	ctx := logctx.WithField(r.Context(), "resource", name)
	relations, err := handle.Adapter.GetRelations(ctx, handle.Resource.DefaultSchemaOrFallback())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "relations_failed", err.Error(), nil)
		return
	}

	tables := make([]string, len(relations))
	for i, rel := range relations {
		tables[i] = rel.Name
	}

	sql, err := h.translator.Translate(ctx, payload.Question, tables)
	if err != nil {
		switch {
		case errors.Is(err, nlsql.ErrNotReadOnly):
			respondError(w, http.StatusBadRequest, "not_read_only", err.Error(), nil)
		default:
			respondError(w, http.StatusBadGateway, "translate_failed", err.Error(), nil)
		}
		return
	}

	respondJSON(w, http.StatusOK, TranslateResponse{SQL: sql})
}
