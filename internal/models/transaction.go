package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical date encoding for transactions
const DateLayout = "2006-01-02"

// Transaction is one canonical bank record. Amount is negative for money
// leaving the account and positive for money coming in, whatever the issuer.
type Transaction struct {
	TransactionDate time.Time
	PostDate        time.Time
	Description     string
	Amount          decimal.Decimal
	Category        string
	Necessity       Necessity
	Recurrence      Recurrence
	Bank            string
	Type            string
	Memo            string
	Note            string
}

// NewTransaction builds an unclassified transaction with default classification
func NewTransaction(txDate, postDate time.Time, description string, amount decimal.Decimal, bank string) *Transaction {
	if postDate.IsZero() {
		postDate = txDate
	}
	return &Transaction{
		TransactionDate: txDate,
		PostDate:        postDate,
		Description:     description,
		Amount:          amount,
		Category:        DefaultCategory,
		Necessity:       NecessityUnknown,
		Recurrence:      RecurrenceOneTime,
		Bank:            bank,
	}
}

// IsExpense returns true when money left the account
func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsIncome returns true when money came into the account
func (t *Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// MonthYear returns the transaction month as YYYY-MM
func (t *Transaction) MonthYear() string {
	return t.TransactionDate.Format("2006-01")
}

// SetClassification assigns value to a classification field.
// Empty values are ignored and report false.
func (t *Transaction) SetClassification(field, value string) (bool, error) {
	setter, ok := classificationSetters[field]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownClassificationField, field)
	}
	if value == "" {
		return false, nil
	}
	if err := setter(t, value); err != nil {
		return false, err
	}
	return true, nil
}

// Classification returns the current value of a classification field
func (t *Transaction) Classification(field string) (string, error) {
	switch field {
	case FieldCategory:
		return t.Category, nil
	case FieldNecessity:
		return string(t.Necessity), nil
	case FieldRecurrence:
		return string(t.Recurrence), nil
	case FieldNote:
		return t.Note, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownClassificationField, field)
	}
}

func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction[%s %s %s %s (%s)]",
		t.TransactionDate.Format(DateLayout), t.Bank, t.Description, t.Amount.StringFixed(2), t.Category)
}

type transactionJSON struct {
	TransactionDate string     `json:"transaction_date"`
	PostDate        string     `json:"post_date"`
	Description     string     `json:"description"`
	Amount          string     `json:"amount"`
	Category        string     `json:"category"`
	Necessity       Necessity  `json:"necessity"`
	Recurrence      Recurrence `json:"recurrence"`
	Bank            string     `json:"bank"`
	Type            string     `json:"type,omitempty"`
	Memo            string     `json:"memo,omitempty"`
	Note            string     `json:"note,omitempty"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		TransactionDate: t.TransactionDate.Format(DateLayout),
		PostDate:        t.PostDate.Format(DateLayout),
		Description:     t.Description,
		Amount:          t.Amount.StringFixed(2),
		Category:        t.Category,
		Necessity:       t.Necessity,
		Recurrence:      t.Recurrence,
		Bank:            t.Bank,
		Type:            t.Type,
		Memo:            t.Memo,
		Note:            t.Note,
	})
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	txDate, err := time.Parse(DateLayout, raw.TransactionDate)
	if err != nil {
		return fmt.Errorf("invalid transaction_date: %w", err)
	}
	postDate := txDate
	if raw.PostDate != "" {
		if postDate, err = time.Parse(DateLayout, raw.PostDate); err != nil {
			return fmt.Errorf("invalid post_date: %w", err)
		}
	}
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	*t = Transaction{
		TransactionDate: txDate,
		PostDate:        postDate,
		Description:     raw.Description,
		Amount:          amount,
		Category:        raw.Category,
		Necessity:       raw.Necessity,
		Recurrence:      raw.Recurrence,
		Bank:            raw.Bank,
		Type:            raw.Type,
		Memo:            raw.Memo,
		Note:            raw.Note,
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	if t.Necessity == "" {
		t.Necessity = NecessityUnknown
	}
	if t.Recurrence == "" {
		t.Recurrence = RecurrenceOneTime
	}
	return nil
}
