package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/pipeline"
)

func newServer(t *testing.T, maxBytes int64) (*httptest.Server, *store.Store) {
	t.Helper()
	s := store.New()
	h := New(pipeline.New(s, extractor.New(time.Second), nil), s, maxBytes)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", h.Upload)
	mux.HandleFunc("GET /api/docs", h.List)
	mux.HandleFunc("GET /api/docs/{id}", h.Get)
	mux.HandleFunc("DELETE /api/docs/{id}", h.Delete)
	mux.HandleFunc("DELETE /api/docs", h.DeleteAll)
	mux.HandleFunc("GET /api/stats", h.Stats)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, s
}

func do(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestDocumentLifecycle(t *testing.T) {
	srv, _ := newServer(t, 1<<20)

	var up ingestion.UploadResponse
	code := do(t, http.MethodPost, srv.URL+"/api/upload",
		`[{"name":"a.txt","content":"apple banana"},{"name":"bad.pdf","content":"!!!","encoding":"pdf_base64"},{"name":"b.txt","content":"banana cherry"}]`, &up)
	if code != http.StatusOK {
		t.Fatalf("upload status = %d", code)
	}
	if up.TotalFiles != 2 || len(up.DocIDs) != 2 || up.DocIDs[0] != 0 || up.DocIDs[1] != 1 {
		t.Fatalf("upload response = %+v", up)
	}
	if len(up.Skipped) != 1 || up.Skipped[0].Reason != ingestion.ReasonExtractionFailed {
		t.Fatalf("skipped = %+v", up.Skipped)
	}

	var list []index.DocumentInfo
	if code := do(t, http.MethodGet, srv.URL+"/api/docs", "", &list); code != http.StatusOK || len(list) != 2 || list[1].Name != "b.txt" {
		t.Fatalf("list = %d %+v", code, list)
	}

	var doc DocumentResponse
	if code := do(t, http.MethodGet, srv.URL+"/api/docs/1", "", &doc); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if doc.Content != "banana cherry" || doc.WordCount != 2 {
		t.Fatalf("doc = %+v", doc)
	}

	var stats store.Stats
	do(t, http.MethodGet, srv.URL+"/api/stats", "", &stats)
	want := store.Stats{TotalDocuments: 2, TotalWords: 4, TotalBytes: 25, AverageWordsPerDoc: 2}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}

	var del DeleteResponse
	if code := do(t, http.MethodDelete, srv.URL+"/api/docs/0", "", &del); code != http.StatusOK || !del.Success || del.Remaining != 1 {
		t.Fatalf("delete = %d %+v", code, del)
	}

	if code := do(t, http.MethodDelete, srv.URL+"/api/docs", "", &del); code != http.StatusOK || del.Remaining != 0 {
		t.Fatalf("delete all = %d %+v", code, del)
	}

	do(t, http.MethodPost, srv.URL+"/api/upload", `[{"name":"c.txt","content":"cat"}]`, &up)
	if len(up.DocIDs) != 1 || up.DocIDs[0] != 0 {
		t.Fatalf("id after delete all = %+v", up.DocIDs)
	}
}

func TestDeleteNotFound(t *testing.T) {
	srv, s := newServer(t, 0)
	if _, err := s.Ingest("a.txt", "x"); err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	code := do(t, http.MethodDelete, srv.URL+"/api/docs/999", "", &body)
	if code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
	if body["error"] != "document with id 999 not found" {
		t.Fatalf("error = %q", body["error"])
	}
	if s.Len() != 1 {
		t.Fatalf("store changed: len = %d", s.Len())
	}
}

func TestGetInvalidID(t *testing.T) {
	srv, _ := newServer(t, 0)
	if code := do(t, http.MethodGet, srv.URL+"/api/docs/abc", "", nil); code != http.StatusBadRequest {
		t.Fatalf("status = %d", code)
	}
}

func TestUploadRejectsBadBodies(t *testing.T) {
	srv, _ := newServer(t, 64)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", "nope", http.StatusBadRequest},
		{"object instead of array", `{"name":"a"}`, http.StatusBadRequest},
		{"empty array", `[]`, http.StatusBadRequest},
		{"missing name", `[{"content":"x"}]`, http.StatusBadRequest},
		{"too large", `[{"name":"a","content":"` + strings.Repeat("x", 100) + `"}]`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, http.MethodPost, srv.URL+"/api/upload", tt.body, nil); code != tt.want {
				t.Fatalf("status = %d, want %d", code, tt.want)
			}
		})
	}
}
