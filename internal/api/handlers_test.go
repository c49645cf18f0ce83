package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/affiliate-monitor/internal/alert"
	"github.com/ignite/affiliate-monitor/internal/config"
	"github.com/ignite/affiliate-monitor/internal/pipeline"
	"github.com/ignite/affiliate-monitor/internal/source"
	"github.com/ignite/affiliate-monitor/internal/storage"
)

func setupTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.NewWithClient(client, time.Hour)

	handlers := NewHandlers(pipeline.New(pipeline.Options{}), store)
	srv := NewServer(config.ServerConfig{AllowedOrigins: []string{"*"}}, handlers)

	return srv, func() {
		client.Close()
		mr.Close()
	}
}

func snapshotBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	var rows []source.RawRow
	for day := 1; day <= 10; day++ {
		rows = append(rows, source.RawRow{
			"Order ID":    fmt.Sprintf("ORD-%d", day),
			"Commission":  "50",
			"Order Value": "500",
			"Order Time":  fmt.Sprintf("2024-11-%02d", day),
			"sub_id":      "promo_a",
		})
	}
	input := pipeline.Input{
		OrderRows: []pipeline.RowSet{
			{Platform: source.PlatformShopee, Origin: source.OriginFileImport, Rows: rows},
		},
	}
	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(input); err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	return body
}

func TestHealthCheck(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v", resp["status"])
	}
}

func TestLatestBeforeAnyAnalysis(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/latest", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before any analysis", rec.Code)
	}
}

func TestRunAnalysisAndFetch(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", snapshotBody(t))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d: %s", rec.Code, rec.Body.String())
	}
	var report pipeline.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.AggregationStats.TotalRecordsProcessed != 10 {
		t.Errorf("records = %d, want 10", report.AggregationStats.TotalRecordsProcessed)
	}

	// The run is now the cached latest.
	req = httptest.NewRequest(http.MethodGet, "/api/analysis/latest", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("latest status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/metrics/daily", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("daily status = %d", rec.Code)
	}
	var daily struct {
		Daily []json.RawMessage `json:"daily"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &daily); err != nil {
		t.Fatalf("decode daily: %v", err)
	}
	if len(daily.Daily) != 10 {
		t.Errorf("daily points = %d, want 10", len(daily.Daily))
	}
}

func TestRunAnalysisRejectsBadPayload(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAlertReadDismissFlow(t *testing.T) {
	srv, cleanup := setupTestServer(t)
	defer cleanup()

	// Seed a cached report.
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", snapshotBody(t))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("alerts status = %d", rec.Code)
	}
	var alerts []alert.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if len(alerts) == 0 {
		t.Skip("snapshot produced no alerts to flag")
	}

	target := alerts[0].ID
	req = httptest.NewRequest(http.MethodPost, "/api/alerts/"+target+"/read", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.ID == target {
			found = true
			if !a.IsRead {
				t.Error("alert not flagged read after POST")
			}
		}
	}
	if !found {
		t.Errorf("alert %s missing from second fetch", target)
	}
}
