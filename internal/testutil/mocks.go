package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
)

// MockCostService is a mock implementation of CostService for testing
type MockCostService struct {
	CalculateCostFunc func(provider, model string, inputTokens, outputTokens int) float64
}

func (m *MockCostService) CalculateCost(provider, model string, inputTokens, outputTokens int) float64 {
	if m.CalculateCostFunc != nil {
		return m.CalculateCostFunc(provider, model, inputTokens, outputTokens)
	}
	return 0.0015
}

// NewMockCostService creates a new mock cost service
func NewMockCostService() *MockCostService {
	return &MockCostService{}
}

// MockBrandLister returns a canned reply and records the texts it was asked about.
type MockBrandLister struct {
	Reply    string
	Err      error
	Delay    time.Duration
	ListFunc func(ctx context.Context, responseText string) (string, error)

	mu       sync.Mutex
	Requests []string
}

func (m *MockBrandLister) ListBrands(ctx context.Context, responseText string) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, responseText)
	m.mu.Unlock()

	if m.ListFunc != nil {
		return m.ListFunc(ctx, responseText)
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.Reply, m.Err
}

func (m *MockBrandLister) Name() string { return "mock" }

// Calls returns how many times ListBrands was invoked.
func (m *MockBrandLister) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

var _ analysis.BrandLister = (*MockBrandLister)(nil)

// DetectionRecord is one observed dynamic detection.
type DetectionRecord struct {
	Lister  string
	Outcome analysis.DetectionOutcome
}

// RecordingObserver captures detection outcomes.
type RecordingObserver struct {
	mu      sync.Mutex
	Records []DetectionRecord
}

func (o *RecordingObserver) ObserveDetection(lister string, outcome analysis.DetectionOutcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Records = append(o.Records, DetectionRecord{Lister: lister, Outcome: outcome})
}

func (o *RecordingObserver) Outcomes() []analysis.DetectionOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]analysis.DetectionOutcome, 0, len(o.Records))
	for _, r := range o.Records {
		out = append(out, r.Outcome)
	}
	return out
}

// MockModelServer emulates the OpenAI, Anthropic and Gemini generation endpoints.
type MockModelServer struct {
	Server *httptest.Server
	Reply  string
	Status int

	mu       sync.Mutex
	Requests []map[string]interface{}
}

// NewMockModelServer creates a new mock model server
func NewMockModelServer(reply string) *MockModelServer {
	mock := &MockModelServer{Reply: reply, Status: http.StatusOK}

	mux := http.NewServeMux()

	// POST /chat/completions - OpenAI
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if !mock.record(w, r) {
			return
		}
		writeJSON(w, map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4.1-mini",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": mock.Reply},
			}},
			"usage": map[string]interface{}{"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128},
		})
	})

	// POST /v1/messages - Anthropic
	mux.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		if !mock.record(w, r) {
			return
		}
		writeJSON(w, map[string]interface{}{
			"id":            "msg_test",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-3-5-haiku-latest",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]interface{}{{"type": "text", "text": mock.Reply}},
			"usage":         map[string]interface{}{"input_tokens": 120, "output_tokens": 8},
		})
	})

	// POST /v1beta/models/{model}:generateContent - Gemini
	mux.HandleFunc("/v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		if !mock.record(w, r) {
			return
		}
		writeJSON(w, map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content":      map[string]interface{}{"role": "model", "parts": []map[string]interface{}{{"text": mock.Reply}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]interface{}{"promptTokenCount": 120, "candidatesTokenCount": 8, "totalTokenCount": 128},
		})
	})

	mock.Server = httptest.NewServer(mux)
	return mock
}

func (m *MockModelServer) record(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	m.mu.Lock()
	m.Requests = append(m.Requests, body)
	status := m.Status
	m.mu.Unlock()

	if status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"error":{"message":"mock failure","type":"invalid_request_error"}}`))
		return false
	}
	return true
}

// RequestCount returns the number of requests received
func (m *MockModelServer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// SetStatus makes every later request fail with status
func (m *MockModelServer) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = status
}

// Close closes the mock server
func (m *MockModelServer) Close() {
	m.Server.Close()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
