package repositories

import (
	"fmt"

	"statement-classifier/internal/config"
	"statement-classifier/internal/database"
)

// OpenRuleStore builds the rule store selected by configuration.
// The returned close function releases any database connection.
func OpenRuleStore(cfg *config.Config) (RuleStoreInterface, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Rules.Backend {
	case config.RulesBackendJSON:
		return NewJSONRuleStore(cfg.Rules.Path), noop, nil
	case config.RulesBackendMemory:
		return NewMemoryRuleStore(), noop, nil
	case config.RulesBackendSQLite, config.RulesBackendPostgres:
		dbCfg := cfg.Database
		dbCfg.Driver = cfg.Rules.Backend
		db, err := database.Initialize(&dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open rule database: %w", err)
		}
		return NewSQLRuleStore(db.DB), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported rules backend %q", cfg.Rules.Backend)
	}
}
