package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/qodeinvest/qode-engine/internal/service"
)

func (h *Handler) execQuery(w http.ResponseWriter, r *http.Request) {
	var payload QueryExecRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}

	if strings.TrimSpace(payload.ResourceName) == "" {
		respondError(w, http.StatusBadRequest, "missing_resource", "resourceName is required", nil)
		return
	}
	if strings.TrimSpace(payload.Query) == "" {
		respondError(w, http.StatusBadRequest, "missing_query", "query is required", nil)
		return
	}

	params, err := decodeQueryParams(payload.Params)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_params", err.Error(), nil)
		return
	}

	var options *service.QueryExecOptions
	if payload.Options != nil {
		options = &service.QueryExecOptions{}
		if payload.Options.MaxRows != nil {
			options.MaxRows = *payload.Options.MaxRows
		}
	}

	job, err := h.queries.Exec(payload.ResourceName, payload.Query, currentUser(r), params, options)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConnectionUnavailable):
			respondError(w, http.StatusConflict, "connection_not_ready", err.Error(), nil)
		default:
			respondError(w, http.StatusInternalServerError, "query_exec_failed", err.Error(), nil)
		}
		return
	}

	respondJSON(w, http.StatusAccepted, QueryExecResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// decodeQueryParams accepts either a JSON object for named parameters or a
// JSON array for positional ones.
func decodeQueryParams(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err == nil {
		return asMap, nil
	}

	var asList []interface{}
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}

	return nil, errors.New("params must be an object or array")
}

func (h *Handler) cancelQuery(w http.ResponseWriter, r *http.Request) {
	jobID, err := decodePathParam(r, "jobId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_job", err.Error(), nil)
		return
	}

	if err := h.queries.CancelJob(jobID); err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			respondError(w, http.StatusNotFound, "job_not_found", err.Error(), nil)
		default:
			respondError(w, http.StatusInternalServerError, "query_cancel_failed", err.Error(), nil)
		}
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": string(service.JobStatusCanceled)})
}
