package analysis

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

var (
	positiveWords = map[string]bool{
		"best": true, "recommended": true, "great": true, "top": true, "ideal": true,
		"trusted": true, "excellent": true, "outstanding": true, "leading": true,
	}
	negativeWords = map[string]bool{
		"avoid": true, "poor": true, "bad": true, "limitations": true, "issues": true,
		"problem": true, "worst": true, "failed": true, "concerns": true,
	}

	rankingCuePattern = regexp.MustCompile(`\b[1-3]\.|\b(?:first|second|third)\b|\btop\s+\d+`)
	structurePattern  = regexp.MustCompile(`(?m)\d+\.|^[ \t]*[-*•][ \t]|\n[ \t]*\n`)
)

const (
	windowBefore = 100
	windowAfter  = 150

	rankingCueBonus = 0.2
	nearbyURLBonus  = 0.1

	alignmentWordTarget = 200
	structureBonus      = 0.1
)

// MentionPresent is the legacy loose mention check: the brand name or the website domain
// appears anywhere in the text as a case-insensitive substring.
func MentionPresent(text string, brand models.BrandContext) bool {
	lower := strings.ToLower(text)
	if name := strings.ToLower(strings.TrimSpace(brand.Name)); name != "" && strings.Contains(lower, name) {
		return true
	}
	if domain := WebsiteDomain(brand.Website); domain != "" && strings.Contains(lower, domain) {
		return true
	}
	return false
}

// Sentiment scores the answer in [-1, 1] from fixed positive and negative word lists.
func Sentiment(text string) float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	net := 0
	for _, w := range words {
		switch {
		case positiveWords[w]:
			net++
		case negativeWords[w]:
			net--
		}
	}
	if net == 0 {
		return 0
	}
	return clamp(float64(net)/5, -1, 1)
}

// Prominence is a distance score in [0, 1]: 0 is most prominent, 1 means the brand is absent.
func Prominence(text, brandName string) float64 {
	brand := strings.ToLower(strings.TrimSpace(brandName))
	if brand == "" || text == "" {
		return 1
	}
	lower := strings.ToLower(text)
	idx := strings.Index(lower, brand)
	if idx < 0 {
		return 1
	}

	score := 1 - float64(idx)/float64(len(lower))

	window := lower[max(0, idx-windowBefore):min(len(lower), idx+windowAfter)]
	if rankingCuePattern.MatchString(window) {
		score += rankingCueBonus
	}
	if strings.Contains(window, "http") {
		score += nearbyURLBonus
	}

	return clamp(1-score, 0, 1)
}

// Alignment is a structural proxy for answer thoroughness in [0, 1].
func Alignment(text string) float64 {
	score := math.Min(1, float64(len(strings.Fields(text)))/alignmentWordTarget)
	if structurePattern.MatchString(text) {
		score += structureBonus
	}
	return math.Min(1, score)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
