package models

// SchemaID identifies a known issuer export layout
type SchemaID string

const (
	SchemaChaseCredit SchemaID = "chase_credit"
	SchemaChaseDebit  SchemaID = "chase_debit"
	SchemaDiscover    SchemaID = "discover"
	SchemaUnknown     SchemaID = "unknown"
)

// Card types
const (
	CardTypeCredit = "credit"
	CardTypeDebit  = "debit"
)

// Bank names stamped on normalized transactions
const (
	BankChase    = "chase"
	BankDiscover = "discover"
	BankUnknown  = "unknown"
)

// FormatSignature is the static column fingerprint of one issuer layout
type FormatSignature struct {
	Schema           SchemaID
	Name             string
	Bank             string
	CardType         string
	Description      string
	Required         []string
	Characteristic   []string
	All              []string
	NativeCategories bool
}

// DetectionResult is the outcome of matching a header row against the known signatures
type DetectionResult struct {
	Schema                SchemaID             `json:"schema"`
	Confidence            float64              `json:"confidence"`
	TrustNativeCategories bool                 `json:"trust_native_categories"`
	Scores                map[SchemaID]float64 `json:"scores,omitempty"`
}

// IsKnown reports whether a concrete issuer layout was recognised
func (d DetectionResult) IsKnown() bool {
	return d.Schema != SchemaUnknown && d.Schema != ""
}

// FormatInfo describes a schema for display
type FormatInfo struct {
	Name        string `json:"name"`
	Bank        string `json:"bank"`
	CardType    string `json:"card_type"`
	Description string `json:"description"`
}
