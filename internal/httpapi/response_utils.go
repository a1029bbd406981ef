package httpapi

import (
	"encoding/json"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	resp := ErrorPayload{Code: code, Message: message}
	if len(details) > 0 {
		resp.Details = &details
	}
	respondJSON(w, status, resp)
}
