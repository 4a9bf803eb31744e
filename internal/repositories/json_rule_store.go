package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "statement-classifier/internal/errors"
	"statement-classifier/internal/models"
)

type ruleDocument struct {
	Rules []models.CategoryRule `json:"rules"`
}

// jsonRuleStore keeps rules in a single JSON document on disk
type jsonRuleStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONRuleStore creates a rule store backed by the JSON file at path
func NewJSONRuleStore(path string) RuleStoreInterface {
	return &jsonRuleStore{path: path}
}

// Load reads the rule document; a missing file is an empty rule set
func (s *jsonRuleStore) Load() ([]models.CategoryRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.CategoryRule{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.RuleStoreLoadFailed, fmt.Errorf("failed to read %s: %w", s.path, err))
	}

	var doc ruleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.RuleStoreLoadFailed, fmt.Errorf("failed to decode %s: %w", s.path, err))
	}
	if doc.Rules == nil {
		doc.Rules = []models.CategoryRule{}
	}

	return doc.Rules, nil
}

// Save writes the document to a sibling temp file and renames it over the old one
func (s *jsonRuleStore) Save(rules []models.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rules == nil {
		rules = []models.CategoryRule{}
	}

	data, err := json.MarshalIndent(ruleDocument{Rules: rules}, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.RuleStoreSaveFailed, fmt.Errorf("failed to encode rules: %w", err))
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return apperrors.Wrap(apperrors.RuleStoreSaveFailed, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create rule directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	committed = true
	return nil
}
