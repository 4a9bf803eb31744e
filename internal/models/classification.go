package models

import (
	"errors"
	"fmt"
	"strings"
)

// Necessity describes how essential an expense is
type Necessity string

const (
	NecessityNeeds        Necessity = "Needs"
	NecessityFlexibleNeed Necessity = "Flexible Need"
	NecessityWants        Necessity = "Wants"
	NecessitySavings      Necessity = "Savings"
	NecessityUnknown      Necessity = "Unknown"
)

// Recurrence describes how often a transaction repeats
type Recurrence string

const (
	RecurrenceSubscription Recurrence = "Subscription"
	RecurrenceRecurring    Recurrence = "Recurring"
	RecurrenceOneTime      Recurrence = "One-time"
	RecurrenceUnknown      Recurrence = "Unknown"
)

// Classification fields a rule may assign
const (
	FieldCategory   = "category"
	FieldNecessity  = "necessity"
	FieldRecurrence = "recurrence"
	FieldNote       = "note"
)

var (
	ErrInvalidNecessity           = errors.New("invalid necessity")
	ErrInvalidRecurrence          = errors.New("invalid recurrence")
	ErrUnknownClassificationField = errors.New("unknown classification field")
)

// AllNecessities returns every valid necessity value
func AllNecessities() []Necessity {
	return []Necessity{
		NecessityNeeds,
		NecessityFlexibleNeed,
		NecessityWants,
		NecessitySavings,
		NecessityUnknown,
	}
}

// AllRecurrences returns every valid recurrence value
func AllRecurrences() []Recurrence {
	return []Recurrence{
		RecurrenceSubscription,
		RecurrenceRecurring,
		RecurrenceOneTime,
		RecurrenceUnknown,
	}
}

func (n Necessity) String() string { return string(n) }

func (n Necessity) IsValid() bool {
	for _, v := range AllNecessities() {
		if n == v {
			return true
		}
	}
	return false
}

func (r Recurrence) String() string { return string(r) }

func (r Recurrence) IsValid() bool {
	for _, v := range AllRecurrences() {
		if r == v {
			return true
		}
	}
	return false
}

// ParseNecessity accepts the canonical spelling of a necessity, ignoring case
func ParseNecessity(s string) (Necessity, error) {
	s = strings.TrimSpace(s)
	for _, v := range AllNecessities() {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidNecessity, s)
}

// ParseRecurrence accepts the canonical spelling of a recurrence, ignoring case
func ParseRecurrence(s string) (Recurrence, error) {
	s = strings.TrimSpace(s)
	for _, v := range AllRecurrences() {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
}

// classificationSetters is the closed set of fields a rule tag may target
var classificationSetters = map[string]func(t *Transaction, value string) error{
	FieldCategory: func(t *Transaction, value string) error {
		t.Category = value
		return nil
	},
	FieldNecessity: func(t *Transaction, value string) error {
		n, err := ParseNecessity(value)
		if err != nil {
			return err
		}
		t.Necessity = n
		return nil
	},
	FieldRecurrence: func(t *Transaction, value string) error {
		r, err := ParseRecurrence(value)
		if err != nil {
			return err
		}
		t.Recurrence = r
		return nil
	},
	FieldNote: func(t *Transaction, value string) error {
		t.Note = value
		return nil
	},
}

// ClassificationFields returns the field names rules may assign
func ClassificationFields() []string {
	return []string{FieldCategory, FieldNecessity, FieldRecurrence, FieldNote}
}

// IsClassificationField reports whether field can be assigned by a rule
func IsClassificationField(field string) bool {
	_, ok := classificationSetters[field]
	return ok
}

// ValidateTagValue checks that value is acceptable for field
func ValidateTagValue(field, value string) error {
	switch field {
	case FieldNecessity:
		_, err := ParseNecessity(value)
		return err
	case FieldRecurrence:
		_, err := ParseRecurrence(value)
		return err
	case FieldCategory, FieldNote:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownClassificationField, field)
	}
}
