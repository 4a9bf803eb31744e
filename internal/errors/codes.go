package errors

// ErrorCode represents a standardized error code used throughout the ingest pipeline
type ErrorCode string

// Kind groups error codes by the scope of the failure
type Kind string

const (
	KindRow       Kind = "row"
	KindFile      Kind = "file"
	KindRuleStore Kind = "rule_store"
	KindRule      Kind = "rule"
	KindUnknown   Kind = "unknown"
)

// Row error codes (ROW_*): one raw row could not be normalized
const (
	RowInvalidDate   ErrorCode = "ROW_001"
	RowInvalidAmount ErrorCode = "ROW_002"
	RowMissingField  ErrorCode = "ROW_003"
)

// File error codes (FILE_*): the whole input is structurally unusable
const (
	FileMissingDateColumn        ErrorCode = "FILE_001"
	FileMissingAmountColumn      ErrorCode = "FILE_002"
	FileMissingDescriptionColumn ErrorCode = "FILE_003"
	FileUnreadable               ErrorCode = "FILE_004"
	FileIngestCancelled          ErrorCode = "FILE_005"
)

// Rule store error codes (RULESTORE_*)
const (
	RuleStoreLoadFailed ErrorCode = "RULESTORE_001"
	RuleStoreSaveFailed ErrorCode = "RULESTORE_002"
)

// Rule error codes (RULE_*)
const (
	RuleNotFound     ErrorCode = "RULE_001"
	RuleInvalid      ErrorCode = "RULE_002"
	RuleUnknownField ErrorCode = "RULE_003"
)

// errorMessages maps error codes to their default human-readable messages
var errorMessages = map[ErrorCode]string{
	RowInvalidDate:   "Row has an unparseable date",
	RowInvalidAmount: "Row has an unparseable amount",
	RowMissingField:  "Row is missing a required value",

	FileMissingDateColumn:        "No date column could be resolved",
	FileMissingAmountColumn:      "No amount column could be resolved",
	FileMissingDescriptionColumn: "No description column could be resolved",
	FileUnreadable:               "File is empty or could not be read",
	FileIngestCancelled:          "Ingest was cancelled before completion",

	RuleStoreLoadFailed: "Rule store could not be loaded",
	RuleStoreSaveFailed: "Rule store could not be saved",

	RuleNotFound:     "Rule not found",
	RuleInvalid:      "Rule is invalid",
	RuleUnknownField: "Rule targets an unknown classification field",
}

var errorKinds = map[ErrorCode]Kind{
	RowInvalidDate:               KindRow,
	RowInvalidAmount:             KindRow,
	RowMissingField:              KindRow,
	FileMissingDateColumn:        KindFile,
	FileMissingAmountColumn:      KindFile,
	FileMissingDescriptionColumn: KindFile,
	FileUnreadable:               KindFile,
	FileIngestCancelled:          KindFile,
	RuleStoreLoadFailed:          KindRuleStore,
	RuleStoreSaveFailed:          KindRuleStore,
	RuleNotFound:                 KindRule,
	RuleInvalid:                  KindRule,
	RuleUnknownField:             KindRule,
}

// GetErrorMessage returns the default message for a given error code
// If the error code is not found, it returns a generic error message
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "An error occurred"
}

// IsValidErrorCode checks if the provided error code is a valid registered code
func IsValidErrorCode(code ErrorCode) bool {
	_, ok := errorMessages[code]
	return ok
}

// GetKind returns the failure scope of an error code
func GetKind(code ErrorCode) Kind {
	if kind, ok := errorKinds[code]; ok {
		return kind
	}
	return KindUnknown
}
