package services

import (
	"context"
	"io"
	"time"

	"statement-classifier/internal/models"
	"statement-classifier/internal/reader"
)

// FormatDetectorInterface identifies the issuer layout of a header row
type FormatDetectorInterface interface {
	Detect(columns []string) models.DetectionResult
	DetectTable(table *reader.Table) models.DetectionResult
	FormatInfo(schema models.SchemaID) models.FormatInfo
	Signatures() []models.FormatSignature
}

// SchemaNormalizerInterface converts one issuer's raw rows into canonical transactions
type SchemaNormalizerInterface interface {
	Schema() models.SchemaID
	Bank() string
	Normalize(table *reader.Table, trustNativeCategories bool) (*models.NormalizeReport, error)
}

// RuleEngineInterface owns the ordered rule set and applies it to transactions
type RuleEngineInterface interface {
	AddRule(keywords []string, priority int, tags models.TagMap) (*models.CategoryRule, error)
	UpdateRule(id string, update models.RuleUpdate) (*models.CategoryRule, error)
	DeleteRule(id string) error
	GetRule(id string) (*models.CategoryRule, error)
	Rules() []models.CategoryRule
	SeedIfEmpty(seeds []models.CategoryRule) (int, error)

	Match(description string, rule models.CategoryRule) bool
	ApplyToTransaction(tx *models.Transaction) bool
	ApplyToAll(txs []*models.Transaction) int
	ApplySingleRule(rule models.CategoryRule, txs []*models.Transaction) int
	FindMatchingCategory(description string) (string, bool)
}

// PipelineServiceInterface runs detection, normalization and classification over one file
type PipelineServiceInterface interface {
	Process(ctx context.Context, table *reader.Table, opts PipelineOptions) (*models.PipelineResult, error)
	ProcessCSV(ctx context.Context, r io.Reader, opts PipelineOptions) (*models.PipelineResult, error)
	ProcessXLSX(ctx context.Context, r io.Reader, sheet string, opts PipelineOptions) (*models.PipelineResult, error)
}

// IngestLoggerInterface emits structured events for the ingest pipeline
type IngestLoggerInterface interface {
	LogFormatDetected(ctx context.Context, result models.DetectionResult)
	LogRowSkipped(ctx context.Context, schema models.SchemaID, rowErr models.RowError)
	LogNormalizeCompleted(ctx context.Context, schema models.SchemaID, parsed, skipped int, durationMs int64)
	LogRulesApplied(ctx context.Context, mode string, matched, total int)
	LogRuleMutation(ctx context.Context, operation, ruleID string)
	LogRuleTagSkipped(ctx context.Context, ruleID, field string, err error)
	LogRuleStoreFailure(ctx context.Context, operation string, err error)
}

// MetricsRecorderInterface records pipeline metrics
type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}
