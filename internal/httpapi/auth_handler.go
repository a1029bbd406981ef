package httpapi

import (
	"errors"
	"net/http"

	"github.com/qodeinvest/qode-engine/internal/auth"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		respondError(w, http.StatusServiceUnavailable, "auth_unavailable", "authentication is not configured", nil)
		return
	}

	var payload LoginRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return
	}

	session, err := h.auth.Login(payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAuthDisabled):
			respondError(w, http.StatusConflict, "auth_disabled", err.Error(), nil)
		default:
			respondError(w, http.StatusUnauthorized, "login_failed", err.Error(), nil)
		}
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		UserID:    session.UserID,
		UserName:  session.UserName,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		respondError(w, http.StatusServiceUnavailable, "auth_unavailable", "authentication is not configured", nil)
		return
	}

	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusBadRequest, "missing_token", "authorization bearer token is required", nil)
		return
	}

	h.auth.Logout(token)
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
