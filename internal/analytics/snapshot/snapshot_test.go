package snapshot

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHistoryDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	History(nil)(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/history", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	// The limit is checked before the database is touched.
	h := History(New(nil, "analytics_snapshots"))
	for _, q := range []string{"0", "501", "ten"} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/history?limit="+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestNewQuotesTable(t *testing.T) {
	s := New(nil, `snap"shots`)
	if s.table != `"snap""shots"` {
		t.Fatalf("table = %s", s.table)
	}
}
