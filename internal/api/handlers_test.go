package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/cache"
	"github.com/inquestlabs/inquest-engine/internal/config"
	"github.com/inquestlabs/inquest-engine/internal/engine"
	"github.com/inquestlabs/inquest-engine/internal/patterns"
	"github.com/inquestlabs/inquest-engine/internal/services"
	"github.com/inquestlabs/inquest-engine/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	service := services.NewInvestigationService(
		nil,
		st,
		engine.NewIngestor(nil, nil),
		engine.NewPathEngine(nil, engine.DefaultPathConfig()),
		nil,
		cache.NewMemoryProvider(),
		time.Minute,
		0.5,
	)
	handler := NewHandler(nil, service, patterns.NewMiner(nil), nil)
	return NewServer(config.ServerConfig{Address: ":0"}, handler, nil)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func createTestInvestigation(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/investigations",
		`{"title":"shell network","hypothesis":"funds routed offshore"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}
	var inv struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inv.ID == "" {
		t.Fatalf("missing investigation id")
	}
	return inv.ID
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", rec.Code)
	}
}

func TestCreateInvestigationValidation(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/investigations", `{"hypothesis":"no title"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title must be rejected, got %d", rec.Code)
	}
}

func TestGetInvestigationNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/investigations/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status %d", rec.Code)
	}
}

func TestIngestAndGraph(t *testing.T) {
	srv := newTestServer(t)
	id := createTestInvestigation(t, srv)

	body := `{"signals":[
		{"id":"s1","source":"registry","observed_at":"2026-03-01","tier":"A","impact":"supports","facts":["company registered"]},
		{"id":"s2","source":"registry","observed_at":"2026-03-02","tier":"A","impact":"supports","facts":["director appointed"]},
		{"id":"s3","source":"tip line","observed_at":"not-a-date","tier":"D","impact":"supports"}
	]}`
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/investigations/"+id+"/signals", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest: status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Stored  int      `json:"stored"`
		Skipped []string `json:"skipped"`
		Graph   struct {
			Nodes []struct {
				ID         string `json:"id"`
				Confidence int    `json:"confidence"`
			} `json:"nodes"`
			Edges []struct {
				Strength   float64 `json:"strength"`
				Confidence int     `json:"confidence"`
			} `json:"edges"`
			Paths []struct {
				Status     string `json:"status"`
				Confidence int    `json:"confidence"`
			} `json:"paths"`
		} `json:"graph"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stored != 2 {
		t.Fatalf("stored: got %d, want 2", resp.Stored)
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0] != "s3" {
		t.Fatalf("malformed date must skip that record alone: %v", resp.Skipped)
	}
	if len(resp.Graph.Nodes) != 2 {
		t.Fatalf("graph nodes: got %d", len(resp.Graph.Nodes))
	}
	// Confidences leave the API as integer percentages; edge strength is a
	// link weight and stays a [0,1] float.
	if resp.Graph.Nodes[0].Confidence != 90 {
		t.Fatalf("tier A node confidence: got %d, want 90", resp.Graph.Nodes[0].Confidence)
	}
	if len(resp.Graph.Edges) != 1 {
		t.Fatalf("graph edges: got %d", len(resp.Graph.Edges))
	}
	if e := resp.Graph.Edges[0]; e.Strength <= 0 || e.Strength > 1 || e.Confidence != 90 {
		t.Fatalf("edge units: strength %v, confidence %d", e.Strength, e.Confidence)
	}
	if len(resp.Graph.Paths) != 1 || resp.Graph.Paths[0].Status != "active" {
		t.Fatalf("paths: %+v", resp.Graph.Paths)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/investigations/"+id+"/graph", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("graph: status %d", rec.Code)
	}
}

func TestIngestUnknownInvestigation(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/investigations/missing/signals",
		`{"signals":[{"id":"s1","source":"x","impact":"supports"}]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown investigation: status %d", rec.Code)
	}
}

func TestBriefingFormats(t *testing.T) {
	srv := newTestServer(t)
	id := createTestInvestigation(t, srv)
	doJSON(t, srv, http.MethodPost, "/api/v1/investigations/"+id+"/signals",
		`{"signals":[{"id":"s1","source":"registry","observed_at":"2026-03-01","tier":"A","impact":"supports","facts":["company registered"]}]}`)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/investigations/"+id+"/briefing", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("briefing: status %d", rec.Code)
	}
	var briefing struct {
		PrimaryPath *struct {
			Confidence int `json:"confidence"`
			KeyNodes   []struct {
				Confidence int `json:"confidence"`
			} `json:"key_nodes"`
		} `json:"primary_path"`
		Disclaimer string `json:"disclaimer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &briefing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if briefing.PrimaryPath == nil || briefing.Disclaimer == "" {
		t.Fatalf("briefing payload incomplete: %s", rec.Body.String())
	}
	// Key nodes carry the same integer-percentage unit as their siblings.
	if len(briefing.PrimaryPath.KeyNodes) != 1 || briefing.PrimaryPath.KeyNodes[0].Confidence != 90 {
		t.Fatalf("key node confidence must be a percentage: %s", rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/investigations/"+id+"/briefing?format=text", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("text briefing: status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVESTIGATION BRIEFING") {
		t.Fatalf("text export missing header:\n%s", rec.Body.String())
	}
}

func TestPatternsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	createTestInvestigation(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/patterns", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("patterns: status %d", rec.Code)
	}
	if !strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "[") {
		t.Fatalf("patterns must return a JSON array: %s", rec.Body.String())
	}
}

func TestDocumentEndpointWithoutExtractor(t *testing.T) {
	srv := newTestServer(t)
	id := createTestInvestigation(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/investigations/"+id+"/documents",
		`{"document":"acme filed for bankruptcy"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no extraction service configured: status %d", rec.Code)
	}
}
