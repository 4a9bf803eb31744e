package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"statement-classifier/internal/config"
	"statement-classifier/internal/models"
	"statement-classifier/internal/repositories"

	"github.com/prometheus/client_golang/prometheus"
)

// Classifier holds the ingest components wired from configuration
type Classifier struct {
	Engine   *RuleEngine
	Detector FormatDetectorInterface
	Registry *NormalizerRegistry
	Pipeline PipelineServiceInterface
	Defaults PipelineOptions

	logger  *slog.Logger
	closeFn func() error
}

// NewClassifier opens the configured rule store, seeds it when empty and
// builds the pipeline. A nil logger logs JSON to stderr at cfg.LogLevel;
// a nil registerer disables metrics.
func NewClassifier(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}

	ingestLogger := NewIngestLogger(logger)
	var metrics MetricsRecorderInterface = NoopMetrics{}
	if reg != nil {
		metrics = NewPrometheusMetrics(reg)
	}

	store, closeFn, err := repositories.OpenRuleStore(cfg)
	if err != nil {
		return nil, err
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:     cfg.Rules.StoreMaxFailures,
		ResetTimeout:    cfg.Rules.StoreResetTimeout,
		HalfOpenMaxSucc: 1,
	})
	engine := NewRuleEngine(NewGuardedRuleStore(store, breaker),
		WithEngineLogger(ingestLogger),
		WithEngineMetrics(metrics),
		WithClassifyWorkers(cfg.Ingest.ClassifyWorkers),
		WithParallelThreshold(cfg.Ingest.ParallelThreshold),
	)

	c := &Classifier{
		Engine:   engine,
		Detector: NewFormatDetector(WithMinConfidence(cfg.Ingest.MinConfidence)),
		Registry: NewNormalizerRegistry(),
		Defaults: PipelineOptions{UseNativeCategories: cfg.Ingest.UseNativeCategories},
		logger:   logger,
		closeFn:  closeFn,
	}
	c.Pipeline = NewPipelineService(c.Detector, c.Registry, engine, ingestLogger, metrics)

	c.seed(cfg.Rules.SeedPath)

	logger.Info("classifier ready",
		slog.String("env", cfg.Environment),
		slog.String("rules_backend", cfg.Rules.Backend),
		slog.Int("rules", len(engine.Rules())),
	)
	return c, nil
}

// seed installs the YAML seed rules when the store holds none. Seed problems
// are logged and never fatal.
func (c *Classifier) seed(path string) {
	if path == "" {
		return
	}

	seeds, err := repositories.LoadSeedRules(path)
	if err != nil {
		c.logger.Warn("failed to load seed rules", slog.String("path", path), slog.Any("error", err))
		return
	}

	rules := make([]models.CategoryRule, 0, len(seeds))
	for _, s := range seeds {
		rules = append(rules, s.ToRule())
	}

	n, err := c.Engine.SeedIfEmpty(rules)
	if err != nil {
		c.logger.Warn("seed rules were not persisted", slog.Any("error", err))
	}
	if n > 0 {
		c.logger.Info("seeded category rules", slog.Int("count", n), slog.String("path", path))
	}
}

// ProcessFile ingests a CSV or XLSX export from disk using the configured defaults
func (c *Classifier) ProcessFile(ctx context.Context, path string) (*models.PipelineResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return c.Pipeline.ProcessXLSX(ctx, f, "", c.Defaults)
	default:
		return c.Pipeline.ProcessCSV(ctx, f, c.Defaults)
	}
}

// Close releases the rule store
func (c *Classifier) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

// NewLogger returns a JSON logger on stderr; unknown levels fall back to info
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
