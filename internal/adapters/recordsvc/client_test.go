package recordsvc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"urbannest/internal/adapters/recordsvc"
)

func TestClient_FetchRecords_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    []map[string]any{{"Id": 7.0, "title_c": "Loft"}},
			})
		}
	}))
	defer ts.Close()

	cl, err := recordsvc.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var rows []map[string]any
	if err := cl.FetchRecords(ctx, "property_c", recordsvc.Query{Limit: 10}, &rows); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rows) != 1 || rows[0]["title_c"] != "Loft" {
		t.Fatalf("unexpected payload: %+v", rows)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_GetRecordByID_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := recordsvc.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var out map[string]any
	if err := cl.GetRecordByID(ctx, "review_c", "9", &out); err != recordsvc.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_EnvelopeFailureMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"success":false,"message":"record not found"}`))
	}))
	defer ts.Close()

	cl, _ := recordsvc.New(ts.URL, "test-key", 100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var out map[string]any
	if err := cl.GetRecordByID(ctx, "review_c", "1", &out); err != recordsvc.ErrNotFound {
		t.Fatalf("expected ErrNotFound from envelope, got %v", err)
	}
}
