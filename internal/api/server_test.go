package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/api"
	"github.com/AI-Template-SDK/aeo-insights/internal/metrics"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
	"github.com/AI-Template-SDK/aeo-insights/internal/testutil"
	"github.com/AI-Template-SDK/aeo-insights/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, store *testutil.MemoryStore) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	registry := analysis.NewRegistry(analysis.AnalyzerOptions{Logger: zerolog.Nop()})
	kpi := services.NewKPIService(registry, store, analysis.AggregateOptions{}, m, zerolog.Nop())
	srv := api.New(api.Config{
		KPIService:    kpi,
		BatchAnalyzer: services.NewBatchAnalyzer(kpi, 2, 0, zerolog.Nop()),
		Inngest: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}),
		Gatherer: reg,
		MaxBatch: 3,
		Logger:   zerolog.Nop(),
	})
	return srv.Handler(), reg
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndInngestRoutes(t *testing.T) {
	h, _ := newServer(t, testutil.NewMemoryStore())

	if w := do(t, h, http.MethodGet, "/health", nil); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodPut, "/api/inngest", nil); w.Code != http.StatusAccepted {
		t.Errorf("inngest = %d", w.Code)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	store := testutil.NewMemoryStore()
	h, reg := newServer(t, store)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantStored int
	}{
		{
			name: "analyze only",
			body: api.AnalyzeRequest{
				LLMProvider: "openai", ResponseText: testutil.SampleAnswer, Brand: testutil.SampleBrand(),
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "analyze and store",
			body: api.AnalyzeRequest{
				PromptID: "p-1", LLMProvider: "perplexity", ResponseText: testutil.SampleAnswer,
				Brand: testutil.SampleBrand(), Store: true,
			},
			wantStatus: http.StatusCreated,
			wantStored: 1,
		},
		{
			name:       "store without prompt id",
			body:       api.AnalyzeRequest{LLMProvider: "openai", ResponseText: "x", Store: true},
			wantStatus: http.StatusBadRequest,
			wantStored: 1,
		},
		{
			name:       "unknown provider",
			body:       api.AnalyzeRequest{LLMProvider: "mistral", ResponseText: "x"},
			wantStatus: http.StatusBadRequest,
			wantStored: 1,
		},
		{
			name:       "malformed json",
			body:       `{"llm_provider":`,
			wantStatus: http.StatusBadRequest,
			wantStored: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/analyze", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if store.RecordCount() != tt.wantStored {
				t.Errorf("stored = %d, want %d", store.RecordCount(), tt.wantStored)
			}
		})
	}

	var m models.KPIMetrics
	w := do(t, h, http.MethodPost, "/api/v1/analyze", api.AnalyzeRequest{
		LLMProvider: "openai", ResponseText: testutil.SampleAnswer, Brand: testutil.SampleBrand(),
	})
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if !m.OurBrandMentioned || m.CitationsCount != 2 {
		t.Errorf("metrics = %+v", m)
	}

	mw := do(t, h, http.MethodGet, "/metrics", nil)
	if !strings.Contains(mw.Body.String(), "aeo_analyses_total") {
		t.Error("metrics output missing aeo_analyses_total")
	}
	if families, _ := reg.Gather(); len(families) == 0 {
		t.Error("registry gathered nothing")
	}
}

func TestAnalyzeBatchEndpoint(t *testing.T) {
	h, _ := newServer(t, testutil.NewMemoryStore())
	brand := testutil.SampleBrand()

	ok := map[string]any{"responses": []api.AnalyzeRequest{
		{LLMProvider: "openai", ResponseText: testutil.SampleAnswer, Brand: brand},
		{LLMProvider: "anthropic", ResponseText: "No brands here.", Brand: brand},
	}}
	w := do(t, h, http.MethodPost, "/api/v1/analyze/batch", ok)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Results []models.KPIMetrics `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 2 || !out.Results[0].OurBrandMentioned || out.Results[1].OurBrandMentioned {
		t.Errorf("results = %+v", out.Results)
	}

	tooMany := map[string]any{"responses": make([]api.AnalyzeRequest, 4)}
	if w := do(t, h, http.MethodPost, "/api/v1/analyze/batch", tooMany); w.Code != http.StatusBadRequest {
		t.Errorf("oversized batch status = %d", w.Code)
	}
}

func TestAggregateEndpoint(t *testing.T) {
	h, _ := newServer(t, testutil.NewMemoryStore())
	records := testutil.SampleRecords()

	w := do(t, h, http.MethodPost, "/api/v1/aggregate", api.AggregateRequest{Records: records})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	want := analysis.Aggregate(records, analysis.AggregateOptions{})
	if snap.TotalMeasurements != want.TotalMeasurements || snap.VisibilityScore != want.VisibilityScore {
		t.Errorf("snapshot = %+v, want %+v", snap, want)
	}

	legacy := true
	w = do(t, h, http.MethodPost, "/api/v1/aggregate", api.AggregateRequest{Records: records, LegacyProminence: &legacy})
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if want := analysis.Aggregate(records, analysis.AggregateOptions{LegacyProminence: true}); snap.VisibilityScore != want.VisibilityScore {
		t.Errorf("legacy visibility = %v, want %v", snap.VisibilityScore, want.VisibilityScore)
	}

	brand := testutil.SampleBrand()
	w = do(t, h, http.MethodPost, "/api/v1/aggregate", api.AggregateRequest{Records: records, Brand: &brand})
	var topic models.TopicSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &topic); err != nil {
		t.Fatal(err)
	}
	if len(topic.CompetitorMentions) == 0 || topic.OwnedCitations == 0 {
		t.Errorf("topic = %+v", topic)
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	store := testutil.NewMemoryStore()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Add("p-1", "", models.ProviderOpenAI, at, testutil.SampleBrand(), testutil.SampleRecords()...)
	h, _ := newServer(t, store)

	if w := do(t, h, http.MethodGet, "/api/v1/snapshots/p-1?llm_provider=openai&date=2025-06-01", nil); w.Code != http.StatusNotFound {
		t.Errorf("before recompute status = %d", w.Code)
	}

	w := do(t, h, http.MethodPost, "/api/v1/snapshots/recompute", map[string]any{"date": "2025-06-01"})
	if w.Code != http.StatusOK {
		t.Fatalf("recompute status = %d: %s", w.Code, w.Body.String())
	}
	var summary services.DayResult
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Written != 1 {
		t.Errorf("summary = %+v", summary)
	}

	w = do(t, h, http.MethodGet, "/api/v1/snapshots/p-1?llm_provider=openai&date=2025-06-01", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got struct {
		Snapshot models.Snapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Snapshot.TotalMeasurements != len(testutil.SampleRecords()) {
		t.Errorf("snapshot = %+v", got.Snapshot)
	}

	bad := []string{
		"/api/v1/snapshots/p-1?llm_provider=mistral",
		"/api/v1/snapshots/p-1?llm_provider=openai&date=June",
	}
	for _, path := range bad {
		if w := do(t, h, http.MethodGet, path, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}
