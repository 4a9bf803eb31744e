package services

import (
	"strings"

	"statement-classifier/internal/models"
	"statement-classifier/internal/reader"
)

const (
	requiredWeight       = 0.4
	characteristicWeight = 0.4
	overallWeight        = 0.2

	// DefaultMinConfidence is the score below which a header is reported as unknown
	DefaultMinConfidence = 0.5
)

// knownSignatures lists issuer layouts in evaluation order; ties go to the earlier entry
var knownSignatures = []models.FormatSignature{
	{
		Schema:           models.SchemaChaseCredit,
		Name:             "Chase Credit Card",
		Bank:             models.BankChase,
		CardType:         models.CardTypeCredit,
		Description:      "Chase credit card activity export",
		Required:         []string{"Transaction Date", "Post Date", "Description", "Amount"},
		Characteristic:   []string{"Category", "Memo"},
		All:              []string{"Transaction Date", "Post Date", "Description", "Category", "Type", "Amount", "Memo"},
		NativeCategories: true,
	},
	{
		Schema:           models.SchemaChaseDebit,
		Name:             "Chase Debit/Checking",
		Bank:             models.BankChase,
		CardType:         models.CardTypeDebit,
		Description:      "Chase checking account activity export",
		Required:         []string{"Posting Date", "Description", "Amount"},
		Characteristic:   []string{"Details", "Balance"},
		All:              []string{"Details", "Posting Date", "Description", "Amount", "Type", "Balance", "Check or Slip #"},
		NativeCategories: false,
	},
	{
		Schema:           models.SchemaDiscover,
		Name:             "Discover Credit Card",
		Bank:             models.BankDiscover,
		CardType:         models.CardTypeCredit,
		Description:      "Discover card activity export",
		Required:         []string{"Description", "Amount"},
		Characteristic:   []string{"Trans. Date"},
		All:              []string{"Trans. Date", "Post Date", "Description", "Amount", "Category"},
		NativeCategories: true,
	},
}

var unknownFormat = models.FormatInfo{
	Name:        "Unknown Format",
	Bank:        models.BankUnknown,
	CardType:    models.BankUnknown,
	Description: "Columns did not match a known issuer layout",
}

type formatDetector struct {
	signatures    []models.FormatSignature
	minConfidence float64
}

// FormatDetectorOption configures a format detector
type FormatDetectorOption func(*formatDetector)

// WithMinConfidence overrides the unknown-format threshold
func WithMinConfidence(threshold float64) FormatDetectorOption {
	return func(d *formatDetector) {
		d.minConfidence = threshold
	}
}

// WithSignatures appends issuer layouts after the built-in ones
func WithSignatures(signatures ...models.FormatSignature) FormatDetectorOption {
	return func(d *formatDetector) {
		d.signatures = append(d.signatures, signatures...)
	}
}

// NewFormatDetector creates a detector over the built-in issuer signatures
func NewFormatDetector(opts ...FormatDetectorOption) FormatDetectorInterface {
	d := &formatDetector{
		signatures:    append([]models.FormatSignature(nil), knownSignatures...),
		minConfidence: DefaultMinConfidence,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scores the header against every signature and picks the best
func (d *formatDetector) Detect(columns []string) models.DetectionResult {
	present := make(map[string]bool, len(columns))
	for _, col := range reader.NormalizeHeader(columns) {
		present[col] = true
	}

	result := models.DetectionResult{
		Schema: models.SchemaUnknown,
		Scores: make(map[models.SchemaID]float64, len(d.signatures)),
	}

	var best *models.FormatSignature
	bestScore := 0.0
	for i := range d.signatures {
		sig := &d.signatures[i]
		score := scoreSignature(sig, present)
		result.Scores[sig.Schema] = score
		if best == nil || score > bestScore {
			best = sig
			bestScore = score
		}
	}

	result.Confidence = bestScore
	if best == nil || bestScore < d.minConfidence {
		return result
	}

	result.Schema = best.Schema
	result.TrustNativeCategories = best.NativeCategories
	return result
}

// DetectTable detects the layout of a parsed table
func (d *formatDetector) DetectTable(table *reader.Table) models.DetectionResult {
	if table == nil {
		return d.Detect(nil)
	}
	return d.Detect(table.Columns)
}

// FormatInfo describes a schema for display
func (d *formatDetector) FormatInfo(schema models.SchemaID) models.FormatInfo {
	for _, sig := range d.signatures {
		if sig.Schema == schema {
			return models.FormatInfo{
				Name:        sig.Name,
				Bank:        sig.Bank,
				CardType:    sig.CardType,
				Description: sig.Description,
			}
		}
	}
	return unknownFormat
}

func (d *formatDetector) Signatures() []models.FormatSignature {
	return append([]models.FormatSignature(nil), d.signatures...)
}

// scoreSignature weighs required, characteristic and overall column coverage
func scoreSignature(sig *models.FormatSignature, present map[string]bool) float64 {
	required := 0.0
	if n := len(sig.Required); n > 0 {
		matched := countPresent(sig.Required, present)
		if matched == n {
			required = 1.0
		} else {
			required = float64(matched) / float64(n) * 0.5
		}
	}

	characteristic := 0.0
	if n := len(sig.Characteristic); n > 0 {
		characteristic = float64(countPresent(sig.Characteristic, present)) / float64(n)
	}

	overall := 0.0
	if n := len(sig.All); n > 0 {
		overall = float64(countPresent(sig.All, present)) / float64(n)
	}

	return requiredWeight*required + characteristicWeight*characteristic + overallWeight*overall
}

func countPresent(columns []string, present map[string]bool) int {
	n := 0
	for _, c := range columns {
		if present[strings.TrimSpace(c)] {
			n++
		}
	}
	return n
}
