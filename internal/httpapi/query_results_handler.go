package httpapi

import (
	"errors"
	"net/http"

	"github.com/qodeinvest/qode-engine/internal/service"
)

func (h *Handler) getQueryResult(w http.ResponseWriter, r *http.Request) {
	jobID, err := decodePathParam(r, "jobId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_job", err.Error(), nil)
		return
	}

	limit, err := optionalInt(r.URL.Query().Get("limit"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", err.Error(), nil)
		return
	}

	offset, err := optionalInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_offset", err.Error(), nil)
		return
	}

	view, err := h.queries.BuildResultView(jobID, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(w, http.StatusNotFound, "job_not_found", err.Error(), nil)
		default:
			respondError(w, http.StatusBadRequest, "result_unavailable", err.Error(), nil)
		}
		return
	}

	respondJSON(w, http.StatusOK, QueryResultResponse{
		Status:       string(view.Status),
		Columns:      view.Columns,
		Rows:         view.Rows,
		RowCount:     view.RowCount,
		Truncated:    view.Truncated,
		RowsAffected: view.RowsAffected,
		Error:        view.Error,
	})
}
