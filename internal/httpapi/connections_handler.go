package httpapi

import (
	"net/http"
	"strings"

	"github.com/qodeinvest/qode-engine/internal/pkg/logctx"
)

func (h *Handler) startConnection(w http.ResponseWriter, r *http.Request) {
	var payload ConnectionRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}

	name := strings.TrimSpace(payload.ResourceName)
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing_resource", "resourceName is required", nil)
		return
	}

	if _, err := h.catalog.ByName(name); err != nil {
		respondError(w, http.StatusNotFound, "resource_not_found", err.Error(), nil)
		return
	}

	ctx := logctx.WithField(r.Context(), "resource", name)
	outcome := h.sessions.Connect(ctx, name)
	result := ConnectionResult{Result: outcome.Result}
	if outcome.UserMessage != "" {
		result.UserMessage = &outcome.UserMessage
	}

	respondJSON(w, http.StatusCreated, result)
}
