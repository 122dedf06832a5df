package claude_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AI-Template-SDK/aeo-insights/internal/providers/claude"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
	"github.com/AI-Template-SDK/aeo-insights/internal/testutil"
)

func TestListBrands(t *testing.T) {
	mock := testutil.NewMockModelServer(`["Acme", "Gamma"]`)
	defer mock.Close()

	cfg := testutil.SampleConfig()
	cfg.Detector.Model = ""
	l := claude.New(cfg, common.Accounting{}, option.WithBaseURL(mock.Server.URL), option.WithMaxRetries(0))

	got, err := l.ListBrands(context.Background(), "Acme and Gamma")
	if err != nil {
		t.Fatalf("ListBrands: %v", err)
	}
	if got != `["Acme", "Gamma"]` {
		t.Errorf("reply = %q", got)
	}

	body := mock.Requests[0]
	if body["model"] != claude.DefaultModel {
		t.Errorf("model = %v, want %s", body["model"], claude.DefaultModel)
	}
	if _, ok := body["system"]; !ok {
		t.Error("expected a system prompt")
	}
}

func TestListBrandsError(t *testing.T) {
	mock := testutil.NewMockModelServer("")
	defer mock.Close()
	mock.SetStatus(http.StatusBadRequest)

	l := claude.New(testutil.SampleConfig(), common.Accounting{}, option.WithBaseURL(mock.Server.URL), option.WithMaxRetries(0))
	if _, err := l.ListBrands(context.Background(), "text"); err == nil {
		t.Fatal("expected an error")
	}
}
