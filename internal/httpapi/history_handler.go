package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "history_unavailable", "query history is not configured", nil)
		return
	}

	limit, err := optionalInt(r.URL.Query().Get("limit"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", err.Error(), nil)
		return
	}
	effectiveLimit := 10
	if limit != nil {
		effectiveLimit = *limit
	}

	saved, err := h.history.List(currentUser(r), effectiveLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_list_failed", err.Error(), nil)
		return
	}

	entries := make([]HistoryEntry, len(saved))
	for i, item := range saved {
		entries[i] = HistoryEntry{
			ID:         item.ID,
			Folder:     item.Folder,
			Name:       item.Name,
			Input:      item.Input,
			HasResults: item.HasResults,
			CreatedAt:  item.CreatedAt,
		}
	}

	respondJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

func (h *Handler) saveHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "history_unavailable", "query history is not configured", nil)
		return
	}

	var payload SaveHistoryRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}
	if strings.TrimSpace(payload.JobID) == "" {
		respondError(w, http.StatusBadRequest, "missing_job_id", "jobId is required", nil)
		return
	}

	result, ok := h.queries.GetResult(payload.JobID)
	if !ok {
		respondError(w, http.StatusNotFound, "job_not_found", "no stored result for job", nil)
		return
	}

	input := payload.Input
	if input == "" {
		input = result.Query
	}

	folder, err := h.history.Save(currentUser(r), input, result.Query, payload.Name, result)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_save_failed", err.Error(), nil)
		return
	}

	respondJSON(w, http.StatusCreated, SaveHistoryResponse{Folder: folder})
}

func (h *Handler) getHistorySQL(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "history_unavailable", "query history is not configured", nil)
		return
	}

	folder, err := decodePathParam(r, "folder")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_folder", err.Error(), nil)
		return
	}

	sql, err := h.history.ReadSQL(currentUser(r), folder)
	if err != nil {
		respondError(w, http.StatusNotFound, "history_not_found", err.Error(), nil)
		return
	}

	respondJSON(w, http.StatusOK, HistorySQLResponse{SQL: sql})
}
