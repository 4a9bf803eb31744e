package repositories

import (
	"fmt"

	apperrors "statement-classifier/internal/errors"
	"statement-classifier/internal/models"

	"gorm.io/gorm"
)

// sqlRuleStore keeps rules in the category_rules table, ordered by position
type sqlRuleStore struct {
	db *gorm.DB
}

// NewSQLRuleStore creates a rule store backed by a gorm connection
func NewSQLRuleStore(db *gorm.DB) RuleStoreInterface {
	return &sqlRuleStore{
		db: db,
	}
}

// Load retrieves all rules in stored order
func (r *sqlRuleStore) Load() ([]models.CategoryRule, error) {
	var records []models.CategoryRuleRecord
	if err := r.db.Order("position ASC").Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.RuleStoreLoadFailed, fmt.Errorf("failed to load category rules: %w", err))
	}

	rules := make([]models.CategoryRule, 0, len(records))
	for _, rec := range records {
		rules = append(rules, rec.ToRule())
	}
	return rules, nil
}

// Save replaces the table contents in one database transaction
func (r *sqlRuleStore) Save(rules []models.CategoryRule) error {
	records := make([]models.CategoryRuleRecord, 0, len(rules))
	for i, rule := range rules {
		records = append(records, models.NewCategoryRuleRecord(rule, i))
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.CategoryRuleRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear category rules: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, 100).Error; err != nil {
			return fmt.Errorf("failed to insert category rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.RuleStoreSaveFailed, err)
	}
	return nil
}
