package gemini_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/gemini"
	"github.com/AI-Template-SDK/aeo-insights/internal/testutil"
)

type costObserver struct{ model string }

func (c *costObserver) ObserveCost(_, model string, _ float64) { c.model = model }

func TestListBrands(t *testing.T) {
	mock := testutil.NewMockModelServer(`{"brands":["Acme"]}`)
	defer mock.Close()

	cfg := testutil.SampleConfig()
	cfg.Detector.Model = ""
	obs := &costObserver{}
	l, err := gemini.New(context.Background(), cfg, common.Accounting{Observer: obs}, mock.Server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := l.ListBrands(context.Background(), "Acme is a brand")
	if err != nil {
		t.Fatalf("ListBrands: %v", err)
	}
	if got != `{"brands":["Acme"]}` {
		t.Errorf("reply = %q", got)
	}
	if obs.model != gemini.DefaultModel {
		t.Errorf("cost observed for model %q, want %s", obs.model, gemini.DefaultModel)
	}
	if l.Name() != "gemini" {
		t.Errorf("Name() = %q", l.Name())
	}
}

func TestListBrandsError(t *testing.T) {
	mock := testutil.NewMockModelServer("")
	defer mock.Close()
	mock.SetStatus(http.StatusInternalServerError)

	l, err := gemini.New(context.Background(), testutil.SampleConfig(), common.Accounting{}, mock.Server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := l.ListBrands(context.Background(), "text"); err == nil {
		t.Fatal("expected an error")
	}
}
