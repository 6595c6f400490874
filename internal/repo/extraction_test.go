package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/cache"
	"github.com/inquestlabs/inquest-engine/internal/models"
)

func TestExtractSignals(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/api/v1/extract/signals" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["document"] != "acme filed for bankruptcy" {
			t.Fatalf("unexpected document: %v", payload["document"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"signals": []models.Signal{
				{ID: "s1", Source: "extraction", Impact: models.PolaritySupports},
				{Source: "extraction"}, // no id, must be skipped
			},
		})
	}))
	defer server.Close()

	client := NewExtractionClient(server.URL, "/api/v1/extract/signals", time.Second, cache.NewMemoryProvider(), time.Minute)

	signals, err := client.ExtractSignals(context.Background(), "inv1", "acme filed for bankruptcy")
	if err != nil {
		t.Fatalf("ExtractSignals: %v", err)
	}
	if len(signals) != 1 || signals[0].ID != "s1" {
		t.Fatalf("expected the blank-id record skipped, got %+v", signals)
	}
	if signals[0].CreatedAt.IsZero() {
		t.Fatalf("missing created_at must be stamped")
	}

	// Same document again must be served from cache.
	if _, err := client.ExtractSignals(context.Background(), "inv1", "acme filed for bankruptcy"); err != nil {
		t.Fatalf("cached ExtractSignals: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected one upstream request, got %d", requests)
	}
}

func TestExtractSignalsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewExtractionClient(server.URL, "/extract", time.Second, nil, 0)
	if _, err := client.ExtractSignals(context.Background(), "inv1", "doc"); err == nil {
		t.Fatalf("expected error on upstream failure")
	}
}

func TestExtractSignalsUnconfigured(t *testing.T) {
	client := NewExtractionClient("", "/extract", time.Second, nil, 0)
	if _, err := client.ExtractSignals(context.Background(), "inv1", "doc"); err == nil {
		t.Fatalf("unconfigured client must error")
	}
}
