package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

// BrandLister asks a generative model for the brand names found in an answer and returns
// the model's raw reply, expected to be a JSON array of strings.
type BrandLister interface {
	ListBrands(ctx context.Context, responseText string) (string, error)
	Name() string
}

// DetectionObserver receives the outcome of every dynamic detection.
type DetectionObserver interface {
	ObserveDetection(lister string, outcome DetectionOutcome, elapsed time.Duration)
}

type DetectionOutcome string

const (
	OutcomeOK         DetectionOutcome = "ok"
	OutcomeFallback   DetectionOutcome = "fallback_parse"
	OutcomeUnparsable DetectionOutcome = "unparsable"
	OutcomeError      DetectionOutcome = "error"
	OutcomeTimeout    DetectionOutcome = "timeout"
)

type DetectorConfig struct {
	Timeout          time.Duration // per call; 0 means 30s
	MaxResponseChars int           // text sent to the model is truncated to this; 0 means no limit
	Observer         DetectionObserver
}

const defaultDetectionTimeout = 30 * time.Second

var quotedNamePattern = regexp.MustCompile(`"([^"\\\n]{1,120})"`)

// DynamicDetector discovers brands with a generative model instead of a fixed competitor list.
// Detect never fails: any model or parse error yields an empty BrandAnalysis.
type DynamicDetector struct {
	lister BrandLister
	cfg    DetectorConfig
	logger zerolog.Logger
}

func NewDynamicDetector(lister BrandLister, cfg DetectorConfig, logger zerolog.Logger) *DynamicDetector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDetectionTimeout
	}
	return &DynamicDetector{lister: lister, cfg: cfg, logger: logger}
}

func (d *DynamicDetector) Detect(ctx context.Context, responseText, ourBrandName string) models.BrandAnalysis {
	if d == nil || d.lister == nil || strings.TrimSpace(responseText) == "" {
		return models.EmptyBrandAnalysis()
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	raw, err := d.lister.ListBrands(callCtx, d.truncate(responseText))
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}
		d.logger.Warn().Err(err).Str("lister", d.lister.Name()).Str("outcome", string(outcome)).
			Msg("[DynamicDetector] brand listing failed, treating as no brands found")
		d.observe(outcome, start)
		return models.EmptyBrandAnalysis()
	}

	names, outcome := ParseBrandList(raw)
	if outcome != OutcomeOK {
		d.logger.Debug().Str("lister", d.lister.Name()).Str("outcome", string(outcome)).
			Int("brands", len(names)).Msg("[DynamicDetector] model reply was not a strict JSON array")
	}
	d.observe(outcome, start)

	return RankDiscoveredBrands(responseText, ourBrandName, names)
}

// ParseBrandList decodes a model reply into brand names. It accepts a JSON array of
// strings or an object with a "brands" array, then falls back to quoted substrings.
func ParseBrandList(raw string) ([]string, DetectionOutcome) {
	trimmed := strings.TrimSpace(raw)

	var list []string
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
		return normalizeNames(list), OutcomeOK
	}
	var wrapped struct {
		Brands []string `json:"brands"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil && wrapped.Brands != nil {
		return normalizeNames(wrapped.Brands), OutcomeOK
	}

	var quoted []string
	for _, m := range quotedNamePattern.FindAllStringSubmatch(trimmed, -1) {
		if strings.EqualFold(m[1], "brands") {
			continue
		}
		quoted = append(quoted, m[1])
	}
	if names := normalizeNames(quoted); len(names) > 0 {
		return names, OutcomeFallback
	}
	return []string{}, OutcomeUnparsable
}

// RankDiscoveredBrands locates each discovered name in text. Names the model returned but
// the text does not contain are kept and ranked after every real mention, in list order.
func RankDiscoveredBrands(text, ourBrandName string, names []string) models.BrandAnalysis {
	if len(names) == 0 {
		return models.EmptyBrandAnalysis()
	}
	ours := strings.TrimSpace(ourBrandName)

	mentions := make([]models.BrandMention, 0, len(names))
	for i, name := range names {
		offset, _ := indexFold(text, name, 0)
		if offset < 0 {
			offset = len(text) + i
		}
		mentions = append(mentions, models.BrandMention{
			BrandName:       name,
			FirstOccurrence: offset,
			IsOurBrand:      ours != "" && strings.EqualFold(strings.TrimSpace(name), ours),
		})
	}
	return rankMentions(mentions)
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

func (d *DynamicDetector) truncate(text string) string {
	if d.cfg.MaxResponseChars <= 0 || len(text) <= d.cfg.MaxResponseChars {
		return text
	}
	cut := d.cfg.MaxResponseChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func (d *DynamicDetector) observe(outcome DetectionOutcome, start time.Time) {
	if d.cfg.Observer != nil {
		d.cfg.Observer.ObserveDetection(d.lister.Name(), outcome, time.Since(start))
	}
}
