package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/qodeinvest/qode-engine/internal/auth"
)

func closedAuthService(t *testing.T) *auth.Service {
	t.Helper()
	dir := t.TempDir()
	usersPath := filepath.Join(dir, "users.json")
	users := `{"asha.patel@qodeinvest.com": {"password": "s3cret", "first_name": "Asha", "last_name": "Patel"}}`
	if err := os.WriteFile(usersPath, []byte(users), 0o644); err != nil {
		t.Fatalf("failed to write users file: %v", err)
	}
	svc, err := auth.NewService(usersPath, filepath.Join(dir, "sessions"), 0)
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}
	return svc
}

func decodeErrorPayload(t *testing.T, rec *httptest.ResponseRecorder) ErrorPayload {
	t.Helper()
	var payload ErrorPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	return payload
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	h := &Handler{auth: closedAuthService(t)}
	probe := h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("handler must not run without a token")
	})

	rec := httptest.NewRecorder()
	probe(rec, httptest.NewRequest(http.MethodGet, "/resources", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if payload := decodeErrorPayload(t, rec); payload.Code != "missing_token" {
		t.Fatalf("expected missing_token, got %s", payload.Code)
	}
}

func TestRequireAuthRejectsUnknownToken(t *testing.T) {
	h := &Handler{auth: closedAuthService(t)}
	probe := h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("handler must not run with a bad token")
	})

	req := httptest.NewRequest(http.MethodGet, "/resources", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	probe(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if payload := decodeErrorPayload(t, rec); payload.Code != "invalid_token" {
		t.Fatalf("expected invalid_token, got %s", payload.Code)
	}
}

func TestRequireAuthPassesValidSession(t *testing.T) {
	svc := closedAuthService(t)
	session, err := svc.Login("asha.patel@qodeinvest.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	h := &Handler{auth: svc}
	probe := h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(currentUser(r)))
	})

	req := httptest.NewRequest(http.MethodGet, "/resources", nil)
	req.Header.Set("Authorization", "bearer "+session.Token)
	rec := httptest.NewRecorder()
	probe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "asha_patel" {
		t.Fatalf("expected user asha_patel, got %q", rec.Body.String())
	}
}

func TestRequireAuthOpenModePassesAnonymous(t *testing.T) {
	svc, err := auth.NewService(filepath.Join(t.TempDir(), "absent.json"), t.TempDir(), 0)
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}
	if !svc.Open() {
		t.Fatalf("expected open mode without a users file")
	}

	h := &Handler{auth: svc}
	probe := h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(currentUser(r)))
	})

	rec := httptest.NewRecorder()
	probe(rec, httptest.NewRequest(http.MethodGet, "/resources", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != anonymousUser {
		t.Fatalf("expected anonymous user, got %q", rec.Body.String())
	}
}

func TestBearerTokenParsing(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"BEARER abc123", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
