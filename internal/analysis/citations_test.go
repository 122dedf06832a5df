package analysis_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

func TestExtractCitations(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantURLs    []string
		wantDomains []string
		wantTitles  []string // "" means nil
	}{
		{
			name:        "markdown link and bare url",
			text:        "Check [our site](https://acme.com/pricing) and https://other.com/page.",
			wantURLs:    []string{"https://acme.com/pricing", "https://other.com/page"},
			wantDomains: []string{"acme.com", "other.com"},
			wantTitles:  []string{"our site", ""},
		},
		{
			name:        "duplicate url collapses",
			text:        "See https://a.com and also https://a.com",
			wantURLs:    []string{"https://a.com"},
			wantDomains: []string{"a.com"},
			wantTitles:  []string{""},
		},
		{
			name:        "trailing punctuation stripped",
			text:        "Read more at https://example.com/docs! Or https://example.com/faq?",
			wantURLs:    []string{"https://example.com/docs", "https://example.com/faq"},
			wantDomains: []string{"example.com", "example.com"},
			wantTitles:  []string{"", ""},
		},
		{
			name:        "www prefix removed from domain",
			text:        "Compare on https://www.G2.com/categories/crm",
			wantURLs:    []string{"https://www.G2.com/categories/crm"},
			wantDomains: []string{"g2.com"},
			wantTitles:  []string{""},
		},
		{
			name:        "ranked by first occurrence, not by pattern order",
			text:        "Start at https://first.com then read [guide](https://second.com/guide)",
			wantURLs:    []string{"https://first.com", "https://second.com/guide"},
			wantDomains: []string{"first.com", "second.com"},
			wantTitles:  []string{"", "guide"},
		},
		{
			name:        "markdown url also seen as bare url keeps title",
			text:        "[Docs](https://docs.acme.com) are at https://docs.acme.com",
			wantURLs:    []string{"https://docs.acme.com"},
			wantDomains: []string{"docs.acme.com"},
			wantTitles:  []string{"Docs"},
		},
		{
			name:        "numbered references",
			text:        "Acme leads [1].\n\n[1] https://one.com/a\n2. https://two.com/b",
			wantURLs:    []string{"https://one.com/a", "https://two.com/b"},
			wantDomains: []string{"one.com", "two.com"},
			wantTitles:  []string{"", ""},
		},
		{
			name:        "markdown link with parentheses in the path",
			text:        "See [Foo](https://en.wikipedia.org/wiki/Foo_(bar)) for details.",
			wantURLs:    []string{"https://en.wikipedia.org/wiki/Foo_(bar)"},
			wantDomains: []string{"en.wikipedia.org"},
			wantTitles:  []string{"Foo"},
		},
		{
			name:        "mid line bracketed reference",
			text:        "Acme leads, per text [1] https://b.com/y",
			wantURLs:    []string{"https://b.com/y"},
			wantDomains: []string{"b.com"},
			wantTitles:  []string{""},
		},
		{
			name:     "non http schemes ignored",
			text:     "Mail mailto:team@acme.com or ftp://files.acme.com/x",
			wantURLs: []string{},
		},
		{
			name:     "empty text",
			text:     "",
			wantURLs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			citations := analysis.ExtractCitations(tt.text)

			if citations == nil {
				t.Fatal("ExtractCitations() returned nil, want empty slice")
			}
			if len(citations) != len(tt.wantURLs) {
				t.Fatalf("ExtractCitations() returned %d citations, want %d: %+v", len(citations), len(tt.wantURLs), citations)
			}

			for i, c := range citations {
				if c.URL != tt.wantURLs[i] {
					t.Errorf("citation %d URL = %s, want %s", i, c.URL, tt.wantURLs[i])
				}
				if c.Domain != tt.wantDomains[i] {
					t.Errorf("citation %d Domain = %s, want %s", i, c.Domain, tt.wantDomains[i])
				}
				if c.Position != i+1 {
					t.Errorf("citation %d Position = %d, want %d", i, c.Position, i+1)
				}
				switch {
				case tt.wantTitles[i] == "" && c.Title != nil:
					t.Errorf("citation %d Title = %q, want nil", i, *c.Title)
				case tt.wantTitles[i] != "" && (c.Title == nil || *c.Title != tt.wantTitles[i]):
					t.Errorf("citation %d Title = %v, want %q", i, c.Title, tt.wantTitles[i])
				}
				if c.FaviconURL == nil || !strings.Contains(*c.FaviconURL, "domain="+c.Domain) {
					t.Errorf("citation %d FaviconURL = %v, want hint for %s", i, c.FaviconURL, c.Domain)
				}
			}
		})
	}
}

func TestExtractCitationsIsDeterministic(t *testing.T) {
	text := "Try [Acme](https://acme.com), https://beta.io/pricing, and https://acme.com again.\n1. https://gamma.dev"

	first := analysis.ExtractCitations(text)
	second := analysis.ExtractCitations(text)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("ExtractCitations() is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestNumberedReferences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[int]string
	}{
		{
			name: "reference list",
			text: "Answer text.\n\n[1] https://one.com/a.\n[2]: https://two.com/b\n3. https://three.com/c\n[1] https://dupe.com",
			want: map[int]string{
				1: "https://one.com/a",
				2: "https://two.com/b",
				3: "https://three.com/c",
			},
		},
		{
			name: "bracketed reference mid line",
			text: "Acme leads the market, text [1] https://b.com/y",
			want: map[int]string{1: "https://b.com/y"},
		},
		{
			name: "dotted number mid line is prose",
			text: "Top picks: 2. https://two.com/b",
			want: map[int]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := analysis.NumberedReferences(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NumberedReferences() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppendSourceCitations(t *testing.T) {
	text := "Acme is covered at https://acme.com/blog"
	citations := analysis.ExtractCitations(text)

	merged := analysis.AppendSourceCitations(citations, []string{
		"https://acme.com/blog",
		"https://news.example.org/acme",
		"not a url",
		"https://www.reviews.io/acme.",
	}, len(text))

	wantURLs := []string{"https://acme.com/blog", "https://news.example.org/acme", "https://www.reviews.io/acme"}
	if len(merged) != len(wantURLs) {
		t.Fatalf("AppendSourceCitations() returned %d citations, want %d: %+v", len(merged), len(wantURLs), merged)
	}
	for i, c := range merged {
		if c.URL != wantURLs[i] {
			t.Errorf("citation %d URL = %s, want %s", i, c.URL, wantURLs[i])
		}
		if c.Position != i+1 {
			t.Errorf("citation %d Position = %d, want %d", i, c.Position, i+1)
		}
	}
	if merged[1].FirstOccurrence < len(text) {
		t.Errorf("source citation FirstOccurrence = %d, want >= %d", merged[1].FirstOccurrence, len(text))
	}
}

func TestCitationDomainFallsBackToRaw(t *testing.T) {
	raw := "http://[::1"
	if got := analysis.CitationDomain(raw); got != raw {
		t.Errorf("CitationDomain(%q) = %q, want raw input", raw, got)
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := map[string]string{
		"blog.acme.co.uk": "acme.co.uk",
		"www.acme.com":    "acme.com",
		"docs.acme.com":   "acme.com",
		"acme.com":        "acme.com",
		"localhost":       "localhost",
	}
	for host, want := range tests {
		if got := analysis.RegistrableDomain(host); got != want {
			t.Errorf("RegistrableDomain(%q) = %q, want %q", host, got, want)
		}
	}
}

func TestIsOwnedCitation(t *testing.T) {
	tests := []struct {
		domain  string
		website string
		want    bool
	}{
		{"acme.com", "https://www.acme.com/", true},
		{"blog.acme.com", "acme.com", true},
		{"acme.co", "https://acme.com", false},
		{"notacme.com", "https://acme.com", false},
		{"acme.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain+"|"+tt.website, func(t *testing.T) {
			got := analysis.IsOwnedCitation(models.Citation{Domain: tt.domain}, tt.website)
			if got != tt.want {
				t.Errorf("IsOwnedCitation(%s, %s) = %v, want %v", tt.domain, tt.website, got, tt.want)
			}
		})
	}
}
