package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/antoniopedrola/synthetic-research/internal/service/ingest"
	"github.com/antoniopedrola/synthetic-research/internal/vectorstore/memory"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (fixedEmbedder) Dimension() int { return 3 }

func setupRouter() (*chi.Mux, *memory.Store) {
	store := memory.NewStore()
	svc := ingest.NewService(fixedEmbedder{}, store, zap.NewNop())

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r, store
}

func TestInsertEvidence(t *testing.T) {
	r, store := setupRouter()

	payload, _ := json.Marshal(map[string]any{
		"segment":     "korea",
		"source_type": "user_quote",
		"content":     "Rocket delivery is why I stay subscribed.",
	})
	req := httptest.NewRequest(http.MethodPost, "/evidence", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 stored item, got %d", store.Len())
	}
}

func TestInsertEvidenceInvalidSegment(t *testing.T) {
	r, store := setupRouter()

	payload, _ := json.Marshal(map[string]any{
		"segment":     "atlantis",
		"source_type": "user_quote",
		"content":     "should be rejected",
	})
	req := httptest.NewRequest(http.MethodPost, "/evidence", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if store.Len() != 0 {
		t.Fatal("invalid item must not be stored")
	}
}

func TestBulkEvidenceReportsSkips(t *testing.T) {
	r, store := setupRouter()

	payload, _ := json.Marshal([]map[string]any{
		{"segment": "korea", "source_type": "user_quote", "content": "one"},
		{"segment": "nowhere", "source_type": "user_quote", "content": "bad"},
		{"segment": "global", "source_type": "search_query", "content": "three"},
	})
	req := httptest.NewRequest(http.MethodPost, "/evidence/bulk", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var report ingest.Report
	if err := json.Unmarshal(resp.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Total != 3 || report.Succeeded != 2 || report.Skipped != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 stored items, got %d", store.Len())
	}
}

func TestBulkEvidenceRejectsNonArray(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/evidence/bulk", bytes.NewReader([]byte(`{"segment":"korea"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
