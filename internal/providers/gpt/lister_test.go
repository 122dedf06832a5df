package gpt_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/gpt"
	"github.com/AI-Template-SDK/aeo-insights/internal/testutil"
)

type costObserver struct {
	calls int
	usd   float64
}

func (c *costObserver) ObserveCost(_, _ string, usd float64) {
	c.calls++
	c.usd += usd
}

func newLister(mock *testutil.MockModelServer, obs *costObserver) *gpt.Lister {
	accounting := common.Accounting{Costs: testutil.NewMockCostService(), Observer: obs, Logger: zerolog.Nop()}
	return gpt.New(testutil.SampleConfig(), accounting,
		option.WithBaseURL(mock.Server.URL),
		option.WithMaxRetries(0),
	)
}

func TestListBrandsRequestsStructuredOutput(t *testing.T) {
	mock := testutil.NewMockModelServer(`{"brands":["Acme","Beta"]}`)
	defer mock.Close()
	obs := &costObserver{}

	got, err := newLister(mock, obs).ListBrands(context.Background(), "Acme beats Beta.")
	if err != nil {
		t.Fatalf("ListBrands: %v", err)
	}
	if got != `{"brands":["Acme","Beta"]}` {
		t.Errorf("reply = %q", got)
	}
	if mock.RequestCount() != 1 {
		t.Fatalf("requests = %d, want 1", mock.RequestCount())
	}

	body := mock.Requests[0]
	if body["model"] != "gpt-4.1-mini" {
		t.Errorf("model = %v, want gpt-4.1-mini", body["model"])
	}
	format, _ := body["response_format"].(map[string]interface{})
	if format["type"] != "json_schema" {
		t.Errorf("response_format = %v, want json_schema", body["response_format"])
	}
	if obs.calls != 1 || obs.usd != 0.0015 {
		t.Errorf("cost observer got %d calls / %v usd", obs.calls, obs.usd)
	}
}

func TestListBrandsUpstreamError(t *testing.T) {
	mock := testutil.NewMockModelServer(`[]`)
	defer mock.Close()
	mock.SetStatus(http.StatusInternalServerError)
	obs := &costObserver{}

	if _, err := newLister(mock, obs).ListBrands(context.Background(), "text"); err == nil {
		t.Fatal("expected an error")
	}
	if obs.calls != 0 {
		t.Errorf("failed calls should not be priced, got %d", obs.calls)
	}
}

func TestListerDrivesDynamicDetection(t *testing.T) {
	mock := testutil.NewMockModelServer(`{"brands":["Beta","Acme"]}`)
	defer mock.Close()

	detector := analysis.NewDynamicDetector(newLister(mock, &costObserver{}), analysis.DetectorConfig{}, zerolog.Nop())
	got := detector.Detect(context.Background(), "Acme is first, then Beta.", "Acme")

	if !got.OurBrandMentioned || got.OurBrandPosition == nil || *got.OurBrandPosition != 1 {
		t.Errorf("our brand = %v/%v, want mentioned at 1", got.OurBrandMentioned, got.OurBrandPosition)
	}
	if got.TotalBrandsMentioned != 2 || got.RelevancyScore != 100 {
		t.Errorf("analysis = %+v", got)
	}
}

func TestAzureListerName(t *testing.T) {
	cfg := testutil.SampleConfig()
	cfg.AzureOpenAIEndpoint = "https://example.openai.azure.com"
	cfg.AzureOpenAIKey = "azure-key"
	cfg.AzureAPIVersion = "2024-12-01-preview"

	l := gpt.NewAzure(cfg, common.Accounting{})
	if l.Name() != "azure" {
		t.Errorf("Name() = %q, want azure", l.Name())
	}
}
