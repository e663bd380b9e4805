package snapshot

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

const (
	defaultHistory = 20
	maxHistory     = 500
)

// History serves GET /api/analytics/history. A nil store answers 503 so the
// route exists whether or not Postgres is configured.
func History(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s == nil {
			analytics.WriteJSON(w, r, http.StatusServiceUnavailable, map[string]string{"error": "analytics history is disabled"})
			return
		}
		limit, err := analytics.QueryInt(r, "limit", defaultHistory, 1, maxHistory)
		if err != nil {
			analytics.WriteJSON(w, r, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		snapshots, err := s.List(r.Context(), limit)
		if err != nil {
			logger.FromContext(r.Context()).Error("listing analytics history failed", "error", err)
			analytics.WriteJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "analytics history unavailable"})
			return
		}
		analytics.WriteJSON(w, r, http.StatusOK, map[string]any{"snapshots": snapshots})
	}
}
