package models

// Canonical spending categories produced by the issuer tables
const (
	CategoryOther          = "Other"
	CategoryIncome         = "Income"
	CategoryOtherIncome    = "Other Income"
	CategoryTransfer       = "Transfer"
	CategoryPayment        = "Payment"
	CategoryRewards        = "Rewards"
	CategoryBillsUtilities = "Bills & Utilities"
	CategoryDebtPayment    = "Debt Payment"
	CategoryShopping       = "Shopping"
	CategoryFees           = "Fees"
	CategoryCashATM        = "Cash & ATM"
	CategoryEntertainment  = "Entertainment"
	CategoryFoodDining     = "Food & Dining"
	CategoryGroceries      = "Groceries"
	CategoryGasFuel        = "Gas & Fuel"
	CategoryServices       = "Services"
	CategoryGovernment     = "Government"
	CategoryEducation      = "Education"
	CategoryHealthcare     = "Healthcare"
	CategoryAutoTransport  = "Auto & Transport"
	CategoryHome           = "Home"
	CategoryTravel         = "Travel"
	CategoryPersonal       = "Personal"
	CategoryGifts          = "Gifts & Donations"
)

// DefaultCategory is assigned when no trusted source provides one
const DefaultCategory = CategoryOther

// AllCategories returns the canonical category names
func AllCategories() []string {
	return []string{
		CategoryOther,
		CategoryIncome,
		CategoryOtherIncome,
		CategoryTransfer,
		CategoryPayment,
		CategoryRewards,
		CategoryBillsUtilities,
		CategoryDebtPayment,
		CategoryShopping,
		CategoryFees,
		CategoryCashATM,
		CategoryEntertainment,
		CategoryFoodDining,
		CategoryGroceries,
		CategoryGasFuel,
		CategoryServices,
		CategoryGovernment,
		CategoryEducation,
		CategoryHealthcare,
		CategoryAutoTransport,
		CategoryHome,
		CategoryTravel,
		CategoryPersonal,
		CategoryGifts,
	}
}

// IsCanonicalCategory reports whether category is one of the built-in names.
// Categories are open strings; issuers and rules may introduce others.
func IsCanonicalCategory(category string) bool {
	for _, c := range AllCategories() {
		if category == c {
			return true
		}
	}
	return false
}
