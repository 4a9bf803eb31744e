package repositories

import (
	"sync"

	"statement-classifier/internal/models"
)

// MemoryRuleStore keeps rules in process memory
type MemoryRuleStore struct {
	mu    sync.Mutex
	rules []models.CategoryRule
	saves int
}

// NewMemoryRuleStore creates an in-memory store holding a copy of rules
func NewMemoryRuleStore(rules ...models.CategoryRule) *MemoryRuleStore {
	return &MemoryRuleStore{rules: copyRules(rules)}
}

func (s *MemoryRuleStore) Load() ([]models.CategoryRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRules(s.rules), nil
}

func (s *MemoryRuleStore) Save(rules []models.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = copyRules(rules)
	s.saves++
	return nil
}

// Saves returns how many times Save was called
func (s *MemoryRuleStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func copyRules(rules []models.CategoryRule) []models.CategoryRule {
	out := make([]models.CategoryRule, len(rules))
	for i, r := range rules {
		out[i] = r.Copy()
	}
	return out
}
