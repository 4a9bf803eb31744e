package repositories

import (
	"statement-classifier/internal/models"
)

// RuleStoreInterface persists the ordered rule set as a whole
type RuleStoreInterface interface {
	// Load returns the stored rules in stored order; an absent store yields no rules and no error
	Load() ([]models.CategoryRule, error)
	// Save replaces the stored rules with rules, preserving order
	Save(rules []models.CategoryRule) error
}
