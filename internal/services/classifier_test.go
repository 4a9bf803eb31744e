package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"statement-classifier/internal/config"
	"statement-classifier/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

const seedPath = "../../db/seeds/category_rules.yaml"

type ClassifierTestSuite struct {
	suite.Suite
	dir    string
	logger *slog.Logger
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierTestSuite))
}

func (s *ClassifierTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ClassifierTestSuite) config(backend string) *config.Config {
	return &config.Config{
		Environment: "testing",
		LogLevel:    "debug",
		Rules: config.RulesConfig{
			Backend:           backend,
			Path:              filepath.Join(s.dir, "rules.json"),
			SeedPath:          seedPath,
			StoreMaxFailures:  3,
			StoreResetTimeout: time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:         "sqlite",
			SQLitePath:     filepath.Join(s.dir, "rules.db"),
			MaxConnections: 1,
			MaxIdleConns:   1,
		},
		Ingest: config.IngestConfig{
			UseNativeCategories: true,
			MinConfidence:       0.5,
			ClassifyWorkers:     2,
			ParallelThreshold:   100,
		},
	}
}

func (s *ClassifierTestSuite) writeFile(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *ClassifierTestSuite) TestNewClassifier_SeedsEmptyStore() {
	c, err := NewClassifier(s.config(config.RulesBackendJSON), s.logger, prometheus.NewRegistry())
	s.Require().NoError(err)
	defer c.Close()

	rules := c.Engine.Rules()
	s.Len(rules, 6)
	s.Equal(10, rules[0].Priority)
	s.FileExists(filepath.Join(s.dir, "rules.json"))

	category, ok := c.Engine.FindMatchingCategory("SHELL OIL 57444")
	s.True(ok)
	s.Equal(models.CategoryGasFuel, category)
}

func (s *ClassifierTestSuite) TestNewClassifier_DoesNotReseed() {
	cfg := s.config(config.RulesBackendSQLite)

	first, err := NewClassifier(cfg, s.logger, nil)
	s.Require().NoError(err)
	rule := first.Engine.Rules()[0]
	s.Require().NoError(first.Engine.DeleteRule(rule.ID))
	s.Require().NoError(first.Close())

	second, err := NewClassifier(cfg, s.logger, nil)
	s.Require().NoError(err)
	defer second.Close()

	s.Len(second.Engine.Rules(), 5)
	_, err = second.Engine.GetRule(rule.ID)
	s.Error(err)
}

func (s *ClassifierTestSuite) TestNewClassifier_MissingSeedFile() {
	cfg := s.config(config.RulesBackendMemory)
	cfg.Rules.SeedPath = filepath.Join(s.dir, "missing.yaml")

	c, err := NewClassifier(cfg, s.logger, nil)
	s.Require().NoError(err)
	s.Empty(c.Engine.Rules())
	s.NoError(c.Close())
}

func (s *ClassifierTestSuite) TestNewClassifier_InvalidConfig() {
	cfg := s.config("redis")
	_, err := NewClassifier(cfg, s.logger, nil)
	s.Error(err)

	cfg = s.config(config.RulesBackendMemory)
	cfg.Ingest.MinConfidence = 2
	_, err = NewClassifier(cfg, s.logger, nil)
	s.Error(err)
}

func (s *ClassifierTestSuite) TestProcessFile_CSV() {
	c, err := NewClassifier(s.config(config.RulesBackendMemory), s.logger, nil)
	s.Require().NoError(err)
	defer c.Close()

	path := s.writeFile("discover.csv", "\ufeffTrans. Date,Post Date,Description,Amount,Category\n"+
		"01/15/2024,01/16/2024,NETFLIX.COM,15.49,Services\n"+
		"01/16/2024,01/17/2024,TRADER JOE'S #552,64.20,Supermarkets\n"+
		"01/17/2024,01/18/2024,BLUE BOTTLE,5.75,Restaurants\n")

	result, err := c.ProcessFile(context.Background(), path)
	s.Require().NoError(err)

	s.Equal(models.SchemaDiscover, result.Detection.Schema)
	s.Equal(2, result.RulesApplied)

	txs := result.Report.Transactions
	s.Require().Len(txs, 3)
	s.Equal(models.RecurrenceSubscription, txs[0].Recurrence)
	s.Equal(models.NecessityWants, txs[0].Necessity)
	s.Equal(models.CategoryGroceries, txs[1].Category)
	s.Equal(models.NecessityNeeds, txs[1].Necessity)
	s.Equal(models.CategoryFoodDining, txs[2].Category)
	s.Equal(models.NecessityUnknown, txs[2].Necessity)
}

func (s *ClassifierTestSuite) TestProcessFile_Missing() {
	c, err := NewClassifier(s.config(config.RulesBackendMemory), s.logger, nil)
	s.Require().NoError(err)

	_, err = c.ProcessFile(context.Background(), filepath.Join(s.dir, "nope.csv"))
	s.Error(err)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level should be enabled")
	}

	logger = NewLogger("nonsense")
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("unknown level should fall back to info")
	}
}
