package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOptionalEndpointsAnswer503WhenUnconfigured(t *testing.T) {
	// Auth is nil, so requireAuth lets everything through.
	mux := (&Server{handler: &Handler{}}).buildMux()

	cases := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode string
	}{
		{"history list", http.MethodGet, "/history", "", "history_unavailable"},
		{"history save", http.MethodPost, "/history", `{"jobId":"j1"}`, "history_unavailable"},
		{"history sql", http.MethodGet, "/history/abc_20250101_000000_Q/sql", "", "history_unavailable"},
		{"translate", http.MethodPost, "/translate", `{"resourceName":"warehouse","question":"latest close"}`, "translator_unavailable"},
		{"latest tick", http.MethodGet, "/ticks/latest?symbol=NIFTY", "", "ticks_unavailable"},
		{"instruments", http.MethodGet, "/ticks/instruments", "", "ticks_unavailable"},
		{"login", http.MethodPost, "/login", `{"email":"a.b@qodeinvest.com","password":"x"}`, "auth_unavailable"},
		{"logout", http.MethodPost, "/logout", "", "auth_unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body *strings.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected 503, got %d (%s)", rec.Code, rec.Body.String())
			}
			if payload := decodeErrorPayload(t, rec); payload.Code != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, payload.Code)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	mux := (&Server{handler: &Handler{}}).buildMux()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("expected body ok, got %q", rec.Body.String())
	}
}

func TestDecodeQueryParams(t *testing.T) {
	params, err := decodeQueryParams(json.RawMessage(`{"symbol":"NIFTY"}`))
	if err != nil {
		t.Fatalf("expected object params to decode, got %v", err)
	}
	named, ok := params.(map[string]interface{})
	if !ok || named["symbol"] != "NIFTY" {
		t.Fatalf("expected named params, got %#v", params)
	}

	params, err = decodeQueryParams(json.RawMessage(`["NIFTY", 5]`))
	if err != nil {
		t.Fatalf("expected array params to decode, got %v", err)
	}
	positional, ok := params.([]interface{})
	if !ok || len(positional) != 2 || positional[0] != "NIFTY" {
		t.Fatalf("expected positional params, got %#v", params)
	}

	if params, err := decodeQueryParams(nil); err != nil || params != nil {
		t.Fatalf("expected empty params to pass through, got %#v %v", params, err)
	}

	if _, err := decodeQueryParams(json.RawMessage(`"NIFTY"`)); err == nil {
		t.Fatalf("expected scalar params to be rejected")
	}
}

func TestOptionalIntParsing(t *testing.T) {
	if value, err := optionalInt("", 1); err != nil || value != nil {
		t.Fatalf("expected empty value to be nil, got %v %v", value, err)
	}
	value, err := optionalInt("25", 1)
	if err != nil || value == nil || *value != 25 {
		t.Fatalf("expected 25, got %v %v", value, err)
	}
	if _, err := optionalInt("abc", 1); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
	if _, err := optionalInt("0", 1); err == nil {
		t.Fatalf("expected error below the minimum")
	}
}
