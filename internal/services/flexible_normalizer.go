package services

import "statement-classifier/internal/models"

// NewFlexibleNormalizer accepts any export that offers a date, a description
// and either a signed amount or split debit/credit columns.
func NewFlexibleNormalizer() SchemaNormalizerInterface {
	return newLayoutNormalizer(schemaLayout{
		schema: models.SchemaUnknown,
		bank:   models.BankUnknown,
		dateColumns: []string{
			"Transaction Date", "Trans. Date", "Trans Date", "Posting Date", "Date", "Post Date", "Posted Date",
		},
		postDateColumns:    []string{"Post Date", "Posted Date", "Posting Date"},
		descriptionColumns: []string{"Description", "Merchant", "Payee", "Name"},
		amountColumns:      []string{"Amount", "Transaction Amount", "Charge"},
		debitColumns:       []string{"Debit", "Withdrawal", "Withdrawals"},
		creditColumns:      []string{"Credit", "Deposit", "Deposits"},
		categoryColumns:    []string{"Category"},
		typeColumns:        []string{"Type", "Transaction Type"},
		memoColumns:        []string{"Memo", "Notes"},
		dateLayouts:        flexibleDateLayouts,
		nativeCategory: func(f rowFields) string {
			return f.RawCategory
		},
	})
}
