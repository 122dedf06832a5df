package analysis

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"
	"mvdan.cc/xurls/v2"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

const faviconTemplate = "https://www.google.com/s2/favicons?domain=%s&sz=64"

var (
	// Link targets may carry one level of balanced parentheses, as in Wikipedia's "Foo_(bar)".
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\((https?://(?:[^\s()]|\([^\s()]*\))+)\)`)

	// "[n] url" and "[n]: url" may appear anywhere; "n. url" only at the start of a line.
	numberedRefPattern = regexp.MustCompile(`(?m)(?:^[ \t]*(\d+)\.|\[(\d+)\]:?)[ \t]+(https?://[^\s)\]]+)`)

	bareURLPattern = xurls.Strict()
)

// ExtractCitations returns the de-duplicated, position-ranked source URLs referenced by an answer.
// Markdown links are collected first, then bare URLs, then numbered references; the first
// occurrence of a cleaned URL wins.
func ExtractCitations(text string) []models.Citation {
	citations := []models.Citation{}
	if strings.TrimSpace(text) == "" {
		return citations
	}

	seen := make(map[string]bool)
	add := func(raw string, title *string, offset int) {
		cleaned := CleanURL(raw)
		if cleaned == "" || seen[cleaned] {
			return
		}
		seen[cleaned] = true
		citations = append(citations, newCitation(cleaned, title, offset))
	}

	links := markdownLinkPattern.FindAllStringSubmatchIndex(text, -1)
	for _, m := range links {
		var title *string
		if t := strings.TrimSpace(text[m[2]:m[3]]); t != "" {
			title = &t
		}
		add(text[m[4]:m[5]], title, m[0])
	}

	for _, loc := range bareURLPattern.FindAllStringIndex(text, -1) {
		raw := trimUnbalanced(text[loc[0]:loc[1]])
		if !isHTTPURL(raw) || insideMatch(links, loc[0]) {
			continue
		}
		add(raw, nil, loc[0])
	}

	for _, m := range numberedRefPattern.FindAllStringSubmatchIndex(text, -1) {
		add(text[m[6]:m[7]], nil, m[6])
	}

	return rankCitations(citations)
}

// insideMatch reports whether offset falls within one of the matched spans.
func insideMatch(spans [][]int, offset int) bool {
	for _, m := range spans {
		if offset >= m[0] && offset < m[1] {
			return true
		}
	}
	return false
}

// NumberedReferences maps footnote numbers ("[1] url", "[1]: url", "1. url") to their URLs.
func NumberedReferences(text string) map[int]string {
	refs := make(map[int]string)
	for _, m := range numberedRefPattern.FindAllStringSubmatch(text, -1) {
		num := m[1]
		if num == "" {
			num = m[2]
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		if _, ok := refs[n]; !ok {
			refs[n] = CleanURL(m[3])
		}
	}
	return refs
}

// AppendSourceCitations merges provider-supplied source URLs after the in-text citations.
func AppendSourceCitations(citations []models.Citation, sourceURLs []string, textLen int) []models.Citation {
	if len(sourceURLs) == 0 {
		return citations
	}
	seen := make(map[string]bool, len(citations))
	for _, c := range citations {
		seen[c.URL] = true
	}
	merged := append([]models.Citation{}, citations...)
	for i, raw := range sourceURLs {
		cleaned := CleanURL(raw)
		if cleaned == "" || seen[cleaned] || !isHTTPURL(cleaned) {
			continue
		}
		seen[cleaned] = true
		merged = append(merged, newCitation(cleaned, nil, textLen+i))
	}
	return rankCitations(merged)
}

// CleanURL trims whitespace and trailing sentence punctuation.
func CleanURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), ".,;:!?")
}

// CitationDomain returns the hostname without a leading "www.", or raw when it cannot be parsed.
func CitationDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return raw
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// RegistrableDomain reduces a hostname to its eTLD+1 ("blog.acme.co.uk" -> "acme.co.uk").
func RegistrableDomain(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	base, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return base
}

// WebsiteDomain strips protocol, "www." and any path from a configured website.
func WebsiteDomain(website string) string {
	d := strings.ToLower(strings.TrimSpace(website))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}

// IsOwnedCitation reports whether a citation points at the brand's own site, subdomains included.
func IsOwnedCitation(c models.Citation, website string) bool {
	site := WebsiteDomain(website)
	if site == "" {
		return false
	}
	return RegistrableDomain(c.Domain) == RegistrableDomain(site)
}

func newCitation(cleaned string, title *string, offset int) models.Citation {
	domain := CitationDomain(cleaned)
	favicon := fmt.Sprintf(faviconTemplate, domain)
	return models.Citation{
		URL:             cleaned,
		Domain:          domain,
		Title:           title,
		FaviconURL:      &favicon,
		FirstOccurrence: offset,
	}
}

func rankCitations(citations []models.Citation) []models.Citation {
	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].FirstOccurrence < citations[j].FirstOccurrence
	})
	for i := range citations {
		citations[i].Position = i + 1
	}
	return citations
}

// trimUnbalanced drops closing brackets that end a bare URL without a matching opener,
// as in "(see https://acme.com)".
func trimUnbalanced(raw string) string {
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		for strings.HasSuffix(raw, pair[1]) && strings.Count(raw, pair[0]) < strings.Count(raw, pair[1]) {
			raw = raw[:len(raw)-1]
		}
	}
	return raw
}

func isHTTPURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
