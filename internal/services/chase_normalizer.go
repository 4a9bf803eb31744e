package services

import (
	"strings"

	"statement-classifier/internal/models"
)

// chaseCreditCategories maps Chase card categories onto the canonical set.
// Categories not listed pass through unchanged.
var chaseCreditCategories = map[string]string{
	"food & drink":          models.CategoryFoodDining,
	"groceries":             models.CategoryGroceries,
	"gas":                   models.CategoryGasFuel,
	"health & wellness":     models.CategoryHealthcare,
	"automotive":            models.CategoryAutoTransport,
	"fees & adjustments":    models.CategoryFees,
	"professional services": models.CategoryServices,
	"bills & utilities":     models.CategoryBillsUtilities,
	"shopping":              models.CategoryShopping,
	"entertainment":         models.CategoryEntertainment,
	"travel":                models.CategoryTravel,
	"home":                  models.CategoryHome,
	"personal":              models.CategoryPersonal,
	"education":             models.CategoryEducation,
	"gifts & donations":     models.CategoryGifts,
}

// chaseCheckingTypes maps the checking export's Type codes onto categories
var chaseCheckingTypes = map[string]string{
	"ach_credit":         models.CategoryIncome,
	"ach_debit":          models.CategoryBillsUtilities,
	"loan_pmt":           models.CategoryDebtPayment,
	"partnerfi_to_chase": models.CategoryTransfer,
	"quickpay_credit":    models.CategoryTransfer,
	"quickpay_debit":     models.CategoryTransfer,
	"debit_card":         models.CategoryShopping,
	"atmsurcharge":       models.CategoryFees,
	"atm":                models.CategoryCashATM,
	"fee_transaction":    models.CategoryFees,
	"check_deposit":      models.CategoryIncome,
	"check_paid":         models.CategoryBillsUtilities,
	"misc_credit":        models.CategoryOtherIncome,
	"misc_debit":         models.CategoryOther,
}

// descriptionHint overrides a type-derived category when the description is more specific
type descriptionHint struct {
	category string
	keywords []string
}

var chaseCheckingHints = []descriptionHint{
	{models.CategoryTransfer, []string{"zelle", "venmo", "paypal", "transfer", "payment to", "payment from"}},
	{models.CategoryIncome, []string{"direct dep", "payroll", "salary", "deposit", "dirdep"}},
	{models.CategoryBillsUtilities, []string{"electric", "gas bill", "internet", "phone", "insurance", "utility"}},
}

// NewChaseCreditNormalizer handles the Chase credit card export
func NewChaseCreditNormalizer() SchemaNormalizerInterface {
	return newLayoutNormalizer(schemaLayout{
		schema:             models.SchemaChaseCredit,
		bank:               models.BankChase,
		dateColumns:        []string{"Transaction Date", "Trans. Date", "Date"},
		postDateColumns:    []string{"Post Date", "Posting Date", "Posted Date"},
		descriptionColumns: []string{"Description", "Merchant", "Payee", "Name"},
		amountColumns:      []string{"Amount", "Transaction Amount"},
		categoryColumns:    []string{"Category"},
		typeColumns:        []string{"Type"},
		memoColumns:        []string{"Memo"},
		nativeCategory:     chaseCreditCategory,
	})
}

// NewChaseCheckingNormalizer handles the Chase debit/checking export
func NewChaseCheckingNormalizer() SchemaNormalizerInterface {
	return newLayoutNormalizer(schemaLayout{
		schema:             models.SchemaChaseDebit,
		bank:               models.BankChase,
		dateColumns:        []string{"Posting Date", "Transaction Date", "Date", "Post Date"},
		descriptionColumns: []string{"Description", "Merchant", "Payee", "Name"},
		amountColumns:      []string{"Amount", "Transaction Amount"},
		debitColumns:       []string{"Debit"},
		creditColumns:      []string{"Credit"},
		categoryColumns:    []string{"Category"},
		typeColumns:        []string{"Type"},
		detailsColumns:     []string{"Details"},
		nativeCategory:     chaseCheckingCategory,
		inferType: func(f rowFields) string {
			if f.TypeCode != "" {
				return f.TypeCode
			}
			return f.Details
		},
	})
}

func chaseCreditCategory(f rowFields) string {
	if f.RawCategory == "" {
		return ""
	}
	if mapped, ok := lookupFold(chaseCreditCategories, f.RawCategory); ok {
		return mapped
	}
	return f.RawCategory
}

// chaseCheckingCategory prefers a native Category column; description hints
// only override the Type-derived category
func chaseCheckingCategory(f rowFields) string {
	if f.RawCategory != "" {
		return chaseCreditCategory(f)
	}
	if hint := matchHint(chaseCheckingHints, f.Description); hint != "" {
		return hint
	}
	if mapped, ok := lookupFold(chaseCheckingTypes, f.TypeCode); ok {
		return mapped
	}
	return ""
}

func matchHint(hints []descriptionHint, description string) string {
	desc := strings.ToLower(description)
	for _, h := range hints {
		for _, kw := range h.keywords {
			if strings.Contains(desc, kw) {
				return h.category
			}
		}
	}
	return ""
}
