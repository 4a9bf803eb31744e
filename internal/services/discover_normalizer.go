package services

import (
	"strings"

	"statement-classifier/internal/models"
)

var discoverCategories = map[string]string{
	"travel/ entertainment":     models.CategoryEntertainment,
	"travel/entertainment":      models.CategoryEntertainment,
	"merchandise":               models.CategoryShopping,
	"restaurants":               models.CategoryFoodDining,
	"supermarkets":              models.CategoryGroceries,
	"gasoline":                  models.CategoryGasFuel,
	"services":                  models.CategoryServices,
	"payments and credits":      models.CategoryPayment,
	"awards and rebate credits": models.CategoryRewards,
	"government services":       models.CategoryGovernment,
	"education":                 models.CategoryEducation,
	"medical services":          models.CategoryHealthcare,
	"department stores":         models.CategoryShopping,
	"automotive":                models.CategoryAutoTransport,
	"home improvement":          models.CategoryHome,
	"warehouse clubs":           models.CategoryShopping,
	"utilities":                 models.CategoryBillsUtilities,
	"internet":                  models.CategoryBillsUtilities,
	"cable/satellite":           models.CategoryBillsUtilities,
}

// Informational transaction types derived for Discover rows
const (
	TypePayment  = "Payment"
	TypeCredit   = "Credit"
	TypeRefund   = "Refund"
	TypePurchase = "Purchase"
)

// NewDiscoverNormalizer handles the Discover card export. Discover reports
// charges as positive numbers, so amounts are negated.
func NewDiscoverNormalizer() SchemaNormalizerInterface {
	return newLayoutNormalizer(schemaLayout{
		schema:             models.SchemaDiscover,
		bank:               models.BankDiscover,
		dateColumns:        []string{"Trans. Date", "Transaction Date", "Date", "Trans Date"},
		postDateColumns:    []string{"Post Date", "Posted Date", "Posting Date"},
		descriptionColumns: []string{"Description", "Merchant", "Name", "Payee"},
		amountColumns:      []string{"Amount", "Transaction Amount", "Charge"},
		categoryColumns:    []string{"Category", "Type", "Transaction Type"},
		negateAmount:       true,
		nativeCategory:     discoverCategory,
		inferType:          discoverType,
	})
}

func discoverCategory(f rowFields) string {
	if f.RawCategory == "" {
		return ""
	}
	if mapped, ok := lookupFold(discoverCategories, f.RawCategory); ok {
		return mapped
	}
	return f.RawCategory
}

func discoverType(f rowFields) string {
	raw := strings.ToLower(f.RawCategory)
	switch {
	case strings.Contains(raw, "payment"):
		return TypePayment
	case strings.Contains(raw, "credit"), strings.Contains(raw, "rebate"):
		return TypeCredit
	case f.Amount.IsPositive():
		return TypeRefund
	default:
		return TypePurchase
	}
}
