package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

// MemoryStore is an in-memory result store with the same skip/force snapshot semantics as Postgres.
type MemoryStore struct {
	mu              sync.Mutex
	Records         []models.AnalysisRecord
	PromptSnapshots map[string]models.Snapshot
	TopicSnapshots  map[string]models.TopicSnapshot

	// SaveErr, when set, is returned by every write
	SaveErr error
	// FailPrompt makes ListPromptResults fail for that prompt id
	FailPrompt string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		PromptSnapshots: make(map[string]models.Snapshot),
		TopicSnapshots:  make(map[string]models.TopicSnapshot),
	}
}

func promptKey(k models.SnapshotKey) string {
	return fmt.Sprintf("%s|%s|%s", k.PromptID, k.Provider, k.Day().Format("2006-01-02"))
}

func topicKey(k models.TopicKey) string {
	return fmt.Sprintf("%s|%s", k.TopicID, k.Day().Format("2006-01-02"))
}

func (s *MemoryStore) SaveResult(_ context.Context, rec *models.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("rec-%d", len(s.Records)+1)
	}
	s.Records = append(s.Records, *rec)
	return nil
}

// Add stores metrics under a prompt without going through analysis.
func (s *MemoryStore) Add(promptID, topicID string, provider models.Provider, at time.Time, brand models.BrandContext, metrics ...models.KPIMetrics) {
	for _, m := range metrics {
		s.SaveResult(context.Background(), &models.AnalysisRecord{
			PromptID: promptID, TopicID: topicID, Provider: provider, MeasuredAt: at, Brand: brand, Metrics: m,
		})
	}
}

func (s *MemoryStore) ListPromptResults(_ context.Context, key models.SnapshotKey) ([]models.KPIMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPrompt != "" && key.PromptID == s.FailPrompt {
		return nil, fmt.Errorf("query failed for prompt %s", key.PromptID)
	}
	out := []models.KPIMetrics{}
	for _, r := range s.Records {
		if r.PromptID == key.PromptID && r.Provider == key.Provider && models.Day(r.MeasuredAt).Equal(key.Day()) {
			out = append(out, r.Metrics)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListTopicResults(_ context.Context, key models.TopicKey) ([]models.KPIMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.KPIMetrics{}
	for _, r := range s.Records {
		if r.TopicID != "" && r.TopicID == key.TopicID && models.Day(r.MeasuredAt).Equal(key.Day()) {
			out = append(out, r.Metrics)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListPromptKeys(_ context.Context, day time.Time) ([]models.SnapshotKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day = models.Day(day)
	seen := map[string]bool{}
	keys := []models.SnapshotKey{}
	for _, r := range s.Records {
		k := models.SnapshotKey{PromptID: r.PromptID, Provider: r.Provider, Date: day}
		if models.Day(r.MeasuredAt).Equal(day) && !seen[promptKey(k)] {
			seen[promptKey(k)] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return promptKey(keys[i]) < promptKey(keys[j]) })
	return keys, nil
}

func (s *MemoryStore) ListTopicKeys(_ context.Context, day time.Time) ([]models.TopicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day = models.Day(day)
	seen := map[string]bool{}
	keys := []models.TopicKey{}
	for _, r := range s.Records {
		if r.TopicID == "" || !models.Day(r.MeasuredAt).Equal(day) || seen[r.TopicID] {
			continue
		}
		seen[r.TopicID] = true
		keys = append(keys, models.TopicKey{TopicID: r.TopicID, Date: day})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].TopicID < keys[j].TopicID })
	return keys, nil
}

func (s *MemoryStore) GetTopicBrand(_ context.Context, key models.TopicKey) (models.BrandContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Records) - 1; i >= 0; i-- {
		r := s.Records[i]
		if r.TopicID == key.TopicID && models.Day(r.MeasuredAt).Equal(key.Day()) {
			return r.Brand, nil
		}
	}
	return models.BrandContext{}, fmt.Errorf("no results for topic %s", key.TopicID)
}

func (s *MemoryStore) SavePromptSnapshot(_ context.Context, key models.SnapshotKey, snap models.Snapshot, force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return false, s.SaveErr
	}
	k := promptKey(key)
	if _, exists := s.PromptSnapshots[k]; exists && !force {
		return false, nil
	}
	s.PromptSnapshots[k] = snap
	return true, nil
}

func (s *MemoryStore) SaveTopicSnapshot(_ context.Context, key models.TopicKey, snap models.TopicSnapshot, force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return false, s.SaveErr
	}
	k := topicKey(key)
	if _, exists := s.TopicSnapshots[k]; exists && !force {
		return false, nil
	}
	s.TopicSnapshots[k] = snap
	return true, nil
}

func (s *MemoryStore) GetPromptSnapshot(_ context.Context, key models.SnapshotKey) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.PromptSnapshots[promptKey(key)]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// TopicSnapshot returns the stored topic snapshot for key.
func (s *MemoryStore) TopicSnapshot(key models.TopicKey) (models.TopicSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.TopicSnapshots[topicKey(key)]
	return snap, ok
}

// RecordCount returns the number of stored results.
func (s *MemoryStore) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Records)
}

// KPICounter counts analyses and snapshot outcomes.
type KPICounter struct {
	mu        sync.Mutex
	Analyses  map[models.DetectionStrategy]int
	Snapshots map[string]int
}

func NewKPICounter() *KPICounter {
	return &KPICounter{Analyses: map[models.DetectionStrategy]int{}, Snapshots: map[string]int{}}
}

func (c *KPICounter) ObserveAnalysis(_ models.Provider, strategy models.DetectionStrategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Analyses[strategy]++
}

func (c *KPICounter) ObserveSnapshot(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Snapshots[result]++
}
