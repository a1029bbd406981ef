package httpapi

import (
	"net/http"
)

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.catalog.ListResources()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "catalog_unavailable", err.Error(), nil)
		return
	}

	summaries := make([]ResourceSummary, len(resources))
	for i, res := range resources {
		summaries[i] = resourceSummary(res)
	}

	respondJSON(w, http.StatusOK, ResourcesResponse{Resources: summaries})
}
