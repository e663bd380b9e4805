package analytics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

const maxTopN = 100

// Handler serves the live aggregate.
type Handler struct {
	aggregator *Aggregator
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// Stats serves GET /api/analytics. The optional top query parameter
// (1..100) sizes the top_words and zero_result_queries lists.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := QueryInt(r, "top", DefaultTopN, 1, maxTopN)
	if err != nil {
		WriteJSON(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, r, http.StatusOK, h.aggregator.StatsTop(n))
}

// QueryInt reads an optional integer query parameter bounded to [lo, hi].
// A missing parameter yields def.
func QueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}
	return v, nil
}

// WriteJSON encodes data as the response body. Encoding failures are only
// logged since the status line is already written.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to write analytics response", "error", err)
	}
}
