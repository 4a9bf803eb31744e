package services

import (
	"context"
	"io"
	"time"

	apperrors "statement-classifier/internal/errors"
	"statement-classifier/internal/models"
	"statement-classifier/internal/reader"
)

// PipelineOptions controls one ingest run
type PipelineOptions struct {
	// UseNativeCategories lets a trusted issuer category column seed Category
	UseNativeCategories bool
	// Schema forces a layout and bypasses detection when set
	Schema models.SchemaID
}

type pipelineService struct {
	detector FormatDetectorInterface
	registry *NormalizerRegistry
	engine   RuleEngineInterface
	logger   IngestLoggerInterface
	metrics  MetricsRecorderInterface
}

// NewPipelineService wires detection, normalization and rule application
func NewPipelineService(
	detector FormatDetectorInterface,
	registry *NormalizerRegistry,
	engine RuleEngineInterface,
	logger IngestLoggerInterface,
	metrics MetricsRecorderInterface,
) PipelineServiceInterface {
	if detector == nil {
		detector = NewFormatDetector()
	}
	if registry == nil {
		registry = NewNormalizerRegistry()
	}
	if logger == nil {
		logger = NewDiscardIngestLogger()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &pipelineService{
		detector: detector,
		registry: registry,
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
	}
}

func (s *pipelineService) ProcessCSV(ctx context.Context, r io.Reader, opts PipelineOptions) (*models.PipelineResult, error) {
	table, err := reader.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, table, opts)
}

func (s *pipelineService) ProcessXLSX(ctx context.Context, r io.Reader, sheet string, opts PipelineOptions) (*models.PipelineResult, error) {
	table, err := reader.ReadXLSX(r, sheet)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, table, opts)
}

// Process detects the layout of table, normalizes its rows and applies the rule set
func (s *pipelineService) Process(ctx context.Context, table *reader.Table, opts PipelineOptions) (*models.PipelineResult, error) {
	if table == nil || len(table.Columns) == 0 {
		return nil, apperrors.New(apperrors.FileUnreadable, apperrors.WithDetails("no header row"))
	}

	detection := s.detect(table, opts.Schema)
	s.metrics.IncrementCounter(MetricFormatDetected, map[string]string{"schema": string(detection.Schema)})
	s.logger.LogFormatDetected(ctx, detection)

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.FileIngestCancelled, err)
	}

	normalizer := s.registry.For(detection.Schema)
	trust := opts.UseNativeCategories && detection.TrustNativeCategories

	start := time.Now()
	report, err := normalizer.Normalize(table, trust)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	tags := map[string]string{"schema": string(normalizer.Schema())}
	s.metrics.RecordProcessingTime(MetricNormalizeTime, elapsed)
	s.metrics.RecordGauge(MetricRowsNormalized, float64(len(report.Transactions)), tags)
	s.metrics.RecordGauge(MetricRowsSkipped, float64(report.SkippedCount()), tags)
	for _, skipped := range report.Skipped {
		s.logger.LogRowSkipped(ctx, report.Schema, skipped)
	}
	s.logger.LogNormalizeCompleted(ctx, report.Schema, len(report.Transactions), report.SkippedCount(), elapsed.Milliseconds())

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.FileIngestCancelled, err)
	}

	applied := 0
	if s.engine != nil {
		applied = s.engine.ApplyToAll(report.Transactions)
	}

	return &models.PipelineResult{
		Detection:    detection,
		Report:       report,
		RulesApplied: applied,
	}, nil
}

// detect runs the detector unless a schema is forced, in which case the
// signature's own trust setting applies at full confidence
func (s *pipelineService) detect(table *reader.Table, forced models.SchemaID) models.DetectionResult {
	if forced == "" {
		return s.detector.DetectTable(table)
	}

	result := models.DetectionResult{Schema: forced, Confidence: 1.0}
	for _, sig := range s.detector.Signatures() {
		if sig.Schema == forced {
			result.TrustNativeCategories = sig.NativeCategories
			break
		}
	}
	return result
}
