package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"statement-classifier/internal/models"
)

type correlationIDKey struct{}

// WithCorrelationID returns a context whose log entries carry id
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

type IngestLogger struct {
	logger *slog.Logger
}

func NewIngestLogger(logger *slog.Logger) IngestLoggerInterface {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestLogger{
		logger: logger,
	}
}

// NewDiscardIngestLogger returns a logger that writes nowhere
func NewDiscardIngestLogger() IngestLoggerInterface {
	return NewIngestLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (l *IngestLogger) LogFormatDetected(ctx context.Context, result models.DetectionResult) {
	l.logger.InfoContext(ctx, "format detected",
		slog.String("event_type", "format_detected"),
		slog.String("schema", string(result.Schema)),
		slog.Float64("confidence", result.Confidence),
		slog.Bool("trust_native_categories", result.TrustNativeCategories),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (l *IngestLogger) LogRowSkipped(ctx context.Context, schema models.SchemaID, rowErr models.RowError) {
	l.logger.WarnContext(ctx, "row skipped",
		slog.String("event_type", "row_skipped"),
		slog.String("schema", string(schema)),
		slog.Int("row", rowErr.Row),
		slog.String("reason", rowErr.Reason),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (l *IngestLogger) LogNormalizeCompleted(ctx context.Context, schema models.SchemaID, parsed, skipped int, durationMs int64) {
	l.logger.InfoContext(ctx, "normalize completed",
		slog.String("event_type", "normalize_completed"),
		slog.String("schema", string(schema)),
		slog.Int("parsed", parsed),
		slog.Int("skipped", skipped),
		slog.Int64("duration_ms", durationMs),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (l *IngestLogger) LogRulesApplied(ctx context.Context, mode string, matched, total int) {
	l.logger.InfoContext(ctx, "rules applied",
		slog.String("event_type", "rules_applied"),
		slog.String("mode", mode),
		slog.Int("matched", matched),
		slog.Int("total", total),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (l *IngestLogger) LogRuleMutation(ctx context.Context, operation, ruleID string) {
	l.logger.InfoContext(ctx, "rule mutation",
		slog.String("event_type", "rule_mutation"),
		slog.String("operation", operation),
		slog.String("rule_id", ruleID),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (l *IngestLogger) LogRuleTagSkipped(ctx context.Context, ruleID, field string, err error) {
	l.logger.WarnContext(ctx, "rule tag skipped",
		slog.String("event_type", "rule_tag_skipped"),
		slog.String("rule_id", ruleID),
		slog.String("field", field),
		slog.String("error", err.Error()),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (l *IngestLogger) LogRuleStoreFailure(ctx context.Context, operation string, err error) {
	l.logger.ErrorContext(ctx, "rule store failure",
		slog.String("event_type", "rule_store_failure"),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func getCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	if correlationID, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return correlationID
	}

	if correlationID, ok := ctx.Value("correlation_id").(string); ok {
		return correlationID
	}

	return ""
}
