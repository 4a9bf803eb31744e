package repositories

import (
	"errors"
	"fmt"
	"io"
	"os"

	"statement-classifier/internal/models"

	"gopkg.in/yaml.v3"
)

// SeedRule is one rule definition in a seed file
type SeedRule struct {
	Keywords []string          `yaml:"keywords"`
	Priority int               `yaml:"priority"`
	Enabled  *bool             `yaml:"enabled"`
	Tags     map[string]string `yaml:"tags"`
	Field    string            `yaml:"field"`
	Category string            `yaml:"category"`
}

type seedDocument struct {
	Rules []SeedRule `yaml:"rules"`
}

// ToRule converts the seed entry into a rule without an ID
func (s SeedRule) ToRule() models.CategoryRule {
	rule := models.CategoryRule{
		Keywords: models.NormalizedKeywords(s.Keywords),
		Priority: s.Priority,
		Enabled:  true,
		Tags:     models.TagMap(s.Tags),
	}
	if s.Enabled != nil {
		rule.Enabled = *s.Enabled
	}
	if len(rule.Tags) == 0 {
		rule.Tags = models.FromLegacy(s.Field, s.Category)
	}
	return rule
}

// ParseSeedRules decodes a YAML seed document
func ParseSeedRules(r io.Reader) ([]SeedRule, error) {
	var doc seedDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed rules: %w", err)
	}
	return doc.Rules, nil
}

// LoadSeedRules reads the YAML seed file at path; a missing file has no seeds
func LoadSeedRules(path string) ([]SeedRule, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return ParseSeedRules(f)
}
