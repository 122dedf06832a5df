package analysis

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

// DetectBrands finds the tracked brand and the listed competitors in text using
// case-insensitive whole-word matching. Each brand is reported once, ranked by its
// first occurrence.
func DetectBrands(text, ourBrand string, competitors []string) models.BrandAnalysis {
	ourBrand = strings.TrimSpace(ourBrand)
	if strings.TrimSpace(text) == "" || ourBrand == "" {
		return models.EmptyBrandAnalysis()
	}

	seen := make(map[string]bool, len(competitors)+1)
	var mentions []models.BrandMention

	for i, name := range append([]string{ourBrand}, competitors...) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true

		if offset := indexWholeWord(text, name); offset >= 0 {
			mentions = append(mentions, models.BrandMention{
				BrandName:       name,
				FirstOccurrence: offset,
				IsOurBrand:      i == 0,
			})
		}
	}

	return rankMentions(mentions)
}

// rankMentions orders mentions by first occurrence (ties keep input order), assigns dense
// positions and derives the tracked-brand fields.
func rankMentions(mentions []models.BrandMention) models.BrandAnalysis {
	result := models.EmptyBrandAnalysis()
	if len(mentions) == 0 {
		return result
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].FirstOccurrence < mentions[j].FirstOccurrence
	})
	for i := range mentions {
		mentions[i].Position = i + 1
		if mentions[i].IsOurBrand && !result.OurBrandMentioned {
			pos := i + 1
			result.OurBrandMentioned = true
			result.OurBrandPosition = &pos
		}
	}

	result.BrandsDetected = mentions
	result.TotalBrandsMentioned = len(mentions)
	result.RelevancyScore = relevancyScore(result.OurBrandMentioned, len(mentions))
	return result
}

func relevancyScore(ourBrandMentioned bool, brandCount int) int {
	switch {
	case ourBrandMentioned:
		return 100
	case brandCount > 0:
		return 50
	default:
		return 0
	}
}

// indexWholeWord returns the byte offset in s of the first case-insensitive occurrence of
// word that is bounded on both sides, or -1.
func indexWholeWord(s, word string) int {
	for start := 0; start < len(s); {
		i, end := indexFold(s, word, start)
		if i < 0 {
			return -1
		}

		before := i == 0
		if !before {
			r, _ := utf8.DecodeLastRuneInString(s[:i])
			before = isWordBoundary(r)
		}
		after := end == len(s)
		if !after {
			r, _ := utf8.DecodeRuneInString(s[end:])
			after = isWordBoundary(r)
		}
		if before && after {
			return i
		}

		_, size := utf8.DecodeRuneInString(s[i:])
		start = i + size
	}
	return -1
}

// indexFold returns the byte span in s of the first case-insensitive occurrence of word at
// or after from, or -1, -1. Offsets index s itself, whose case mappings may differ in
// byte length from word's.
func indexFold(s, word string, from int) (int, int) {
	if word == "" {
		return -1, -1
	}
	for i := from; i < len(s); {
		if n := foldPrefixLen(s[i:], word); n > 0 {
			return i, i + n
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, -1
}

// foldPrefixLen reports how many bytes at the start of s match word rune by rune under
// simple case mapping, or 0.
func foldPrefixLen(s, word string) int {
	n := 0
	for _, wr := range word {
		if n >= len(s) {
			return 0
		}
		sr, size := utf8.DecodeRuneInString(s[n:])
		if !equalFoldRune(sr, wr) {
			return 0
		}
		n += size
	}
	return n
}

func equalFoldRune(a, b rune) bool {
	return a == b || unicode.ToLower(a) == unicode.ToLower(b) || unicode.ToUpper(a) == unicode.ToUpper(b)
}

// isWordBoundary covers whitespace and punctuation (brackets, quotes and hyphens included)
// plus the markdown backtick and table pipe. Connector punctuation such as the underscore
// joins identifiers, so Acme_Pro is one word.
func isWordBoundary(r rune) bool {
	if unicode.Is(unicode.Pc, r) {
		return false
	}
	return unicode.IsSpace(r) || unicode.IsPunct(r) || r == '`' || r == '|'
}
