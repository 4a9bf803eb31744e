package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "statement-classifier/internal/errors"
	"statement-classifier/internal/models"
	"statement-classifier/internal/reader"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyAmount = errors.New("amount is empty")
	ErrEmptyDate   = errors.New("date is empty")
)

// Date layouts tried in order; single-digit months and days are accepted
var (
	usDateLayouts       = []string{"1/2/2006", "2006-01-02"}
	flexibleDateLayouts = []string{"1/2/2006", "2006-01-02", "1/2/06"}
)

// rowFields are the raw values one row offers to category and type inference
type rowFields struct {
	Description string
	RawCategory string
	TypeCode    string
	Details     string
	Amount      decimal.Decimal
}

// schemaLayout describes how one issuer's columns map onto a transaction
type schemaLayout struct {
	schema models.SchemaID
	bank   string

	dateColumns        []string
	postDateColumns    []string
	descriptionColumns []string
	amountColumns      []string
	debitColumns       []string
	creditColumns      []string
	categoryColumns    []string
	typeColumns        []string
	detailsColumns     []string
	memoColumns        []string

	dateLayouts []string

	// negateAmount flips issuers that report charges as positive numbers
	negateAmount bool

	// nativeCategory maps the issuer's category data when it is trusted
	nativeCategory func(f rowFields) string
	// inferType derives the informational transaction type
	inferType func(f rowFields) string
}

// resolvedColumns holds the actual header names chosen for one file
type resolvedColumns struct {
	date, postDate, description, amount, debit, credit string
	category, typ, details, memo                       string
}

// layoutNormalizer converts rows of one issuer layout into transactions
type layoutNormalizer struct {
	layout schemaLayout
}

func newLayoutNormalizer(layout schemaLayout) SchemaNormalizerInterface {
	if len(layout.dateLayouts) == 0 {
		layout.dateLayouts = usDateLayouts
	}
	return &layoutNormalizer{layout: layout}
}

func (n *layoutNormalizer) Schema() models.SchemaID {
	return n.layout.schema
}

func (n *layoutNormalizer) Bank() string {
	return n.layout.bank
}

// Normalize converts every usable row; bad rows are skipped and recorded
func (n *layoutNormalizer) Normalize(table *reader.Table, trustNativeCategories bool) (*models.NormalizeReport, error) {
	if table == nil || len(table.Columns) == 0 {
		return nil, apperrors.New(apperrors.FileUnreadable, apperrors.WithDetails("no header row"))
	}

	cols, err := n.resolve(table.Columns)
	if err != nil {
		return nil, err
	}

	report := &models.NormalizeReport{
		Schema:       n.layout.schema,
		Bank:         n.layout.bank,
		Transactions: make([]*models.Transaction, 0, len(table.Rows)),
	}
	for i, row := range table.Rows {
		report.Add(n.normalizeRow(i+1, row, cols, trustNativeCategories))
	}
	return report, nil
}

func (n *layoutNormalizer) resolve(columns []string) (resolvedColumns, error) {
	idx := newColumnIndex(columns)
	l := n.layout

	cols := resolvedColumns{
		date:        idx.first(l.dateColumns...),
		postDate:    idx.first(l.postDateColumns...),
		description: idx.first(l.descriptionColumns...),
		amount:      idx.first(l.amountColumns...),
		debit:       idx.first(l.debitColumns...),
		credit:      idx.first(l.creditColumns...),
		category:    idx.first(l.categoryColumns...),
		typ:         idx.first(l.typeColumns...),
		details:     idx.first(l.detailsColumns...),
		memo:        idx.first(l.memoColumns...),
	}

	if cols.date == "" {
		return cols, apperrors.New(apperrors.FileMissingDateColumn,
			apperrors.WithDetails("tried: "+strings.Join(l.dateColumns, ", ")))
	}
	if cols.amount == "" && cols.debit == "" && cols.credit == "" {
		return cols, apperrors.New(apperrors.FileMissingAmountColumn,
			apperrors.WithDetails("tried: "+strings.Join(append(append([]string{}, l.amountColumns...), l.debitColumns...), ", ")))
	}
	if cols.description == "" {
		return cols, apperrors.New(apperrors.FileMissingDescriptionColumn,
			apperrors.WithDetails("tried: "+strings.Join(l.descriptionColumns, ", ")))
	}
	return cols, nil
}

func (n *layoutNormalizer) normalizeRow(rowNum int, row models.RawRow, cols resolvedColumns, trust bool) models.RowResult {
	fail := func(code apperrors.ErrorCode, column string, cause error) models.RowResult {
		err := apperrors.New(code,
			apperrors.WithRow(rowNum),
			apperrors.WithDetails(fmt.Sprintf("%s=%q", column, row[column])),
			apperrors.WithCause(cause),
		)
		reason := fmt.Sprintf("%s: %s: %v", code, apperrors.GetErrorMessage(code), cause)
		return models.RowResult{Failure: &models.RowError{Row: rowNum, Reason: reason, Err: err}}
	}

	txDate, err := parseDate(cell(row, cols.date), n.layout.dateLayouts)
	if err != nil {
		return fail(dateErrorCode(err), cols.date, err)
	}

	postDate := txDate
	if raw := cell(row, cols.postDate); raw != "" {
		if postDate, err = parseDate(raw, n.layout.dateLayouts); err != nil {
			return fail(apperrors.RowInvalidDate, cols.postDate, err)
		}
	}

	amount, column, err := n.rowAmount(row, cols)
	if err != nil {
		code := apperrors.RowInvalidAmount
		if errors.Is(err, ErrEmptyAmount) {
			code = apperrors.RowMissingField
		}
		return fail(code, column, err)
	}
	if n.layout.negateAmount {
		amount = amount.Neg()
	}

	fields := rowFields{
		Description: cleanDescription(cell(row, cols.description)),
		RawCategory: cell(row, cols.category),
		TypeCode:    cell(row, cols.typ),
		Details:     cell(row, cols.details),
		Amount:      amount,
	}

	tx := models.NewTransaction(txDate, postDate, fields.Description, amount, n.layout.bank)
	tx.Memo = cell(row, cols.memo)
	tx.Type = fields.TypeCode
	if n.layout.inferType != nil {
		tx.Type = n.layout.inferType(fields)
	}

	if trust && n.layout.nativeCategory != nil {
		if category := n.layout.nativeCategory(fields); category != "" {
			tx.Category = category
		}
	}

	return models.RowResult{Transaction: tx}
}

// rowAmount reads the signed amount, or credit minus debit for split-column exports
func (n *layoutNormalizer) rowAmount(row models.RawRow, cols resolvedColumns) (decimal.Decimal, string, error) {
	if cols.amount != "" {
		amount, err := parseAmount(cell(row, cols.amount))
		return amount, cols.amount, err
	}

	debitRaw, creditRaw := cell(row, cols.debit), cell(row, cols.credit)
	if debitRaw == "" && creditRaw == "" {
		return decimal.Zero, cols.debit + "/" + cols.credit, ErrEmptyAmount
	}

	amount := decimal.Zero
	if debitRaw != "" {
		debit, err := parseAmount(debitRaw)
		if err != nil {
			return decimal.Zero, cols.debit, err
		}
		amount = amount.Sub(debit.Abs())
	}
	if creditRaw != "" {
		credit, err := parseAmount(creditRaw)
		if err != nil {
			return decimal.Zero, cols.credit, err
		}
		amount = amount.Add(credit.Abs())
	}
	return amount, cols.debit + "/" + cols.credit, nil
}

func dateErrorCode(err error) apperrors.ErrorCode {
	if errors.Is(err, ErrEmptyDate) {
		return apperrors.RowMissingField
	}
	return apperrors.RowInvalidDate
}

// columnIndex resolves aliases against a header, ignoring case and surrounding space
type columnIndex map[string]string

func newColumnIndex(columns []string) columnIndex {
	idx := make(columnIndex, len(columns))
	for _, c := range columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, seen := idx[key]; !seen && key != "" {
			idx[key] = c
		}
	}
	return idx
}

// first returns the header name of the first alias present, or ""
func (idx columnIndex) first(aliases ...string) string {
	for _, a := range aliases {
		if actual, ok := idx[strings.ToLower(strings.TrimSpace(a))]; ok {
			return actual
		}
	}
	return ""
}

func cell(row models.RawRow, column string) string {
	if column == "" {
		return ""
	}
	return strings.TrimSpace(row[column])
}

// parseAmount accepts currency symbols, thousands separators and accounting parentheses
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "").Replace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

func parseDate(raw string, layouts []string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, lastErr)
}

func cleanDescription(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
}

// lookupFold finds key in a table keyed by lower-case strings
func lookupFold(table map[string]string, key string) (string, bool) {
	v, ok := table[strings.ToLower(strings.TrimSpace(key))]
	return v, ok
}
