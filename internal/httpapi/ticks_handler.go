package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) getLatestTick(w http.ResponseWriter, r *http.Request) {
	if h.ticks == nil {
		respondError(w, http.StatusServiceUnavailable, "ticks_unavailable", "tick cache is not configured", nil)
		return
	}

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "missing_symbol", "symbol is required", nil)
		return
	}

	bar, ok, err := h.ticks.LatestBar(r.Context(), symbol)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "tick_lookup_failed", err.Error(), nil)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "tick_not_found", "no cached bar for symbol", nil)
		return
	}

	respondJSON(w, http.StatusOK, TickResponse{Symbol: symbol, Bar: *bar})
}

func (h *Handler) listInstruments(w http.ResponseWriter, r *http.Request) {
	if h.ticks == nil {
		respondError(w, http.StatusServiceUnavailable, "ticks_unavailable", "tick cache is not configured", nil)
		return
	}

	instruments, err := h.ticks.Instruments(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "instruments_failed", err.Error(), nil)
		return
	}
	if instruments == nil {
		instruments = []string{}
	}

	respondJSON(w, http.StatusOK, InstrumentsResponse{Instruments: instruments})
}
