package services

import (
	"encoding/csv"
	"io"
	"time"

	"statement-classifier/internal/models"
	"statement-classifier/internal/reader"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

// merchantProfile is one synthetic merchant and how each issuer labels it
type merchantProfile struct {
	name          string
	chaseCategory string
	discoverLabel string
	checkingType  string
	minAmount     float64
	maxAmount     float64
	income        bool
}

var merchantPool = []merchantProfile{
	{"WHOLE FOODS MARKET", "Groceries", "Supermarkets", "DEBIT_CARD", 15, 250, false},
	{"TRADER JOE'S", "Groceries", "Supermarkets", "DEBIT_CARD", 15, 180, false},
	{"STARBUCKS STORE", "Food & Drink", "Restaurants", "DEBIT_CARD", 4, 25, false},
	{"CHIPOTLE", "Food & Drink", "Restaurants", "DEBIT_CARD", 9, 40, false},
	{"SHELL OIL", "Gas", "Gasoline", "DEBIT_CARD", 20, 90, false},
	{"CHEVRON", "Gas", "Gasoline", "DEBIT_CARD", 20, 90, false},
	{"AMAZON.COM", "Shopping", "Merchandise", "DEBIT_CARD", 10, 400, false},
	{"TARGET", "Shopping", "Department Stores", "DEBIT_CARD", 10, 300, false},
	{"NETFLIX.COM", "Entertainment", "Services", "ACH_DEBIT", 15.49, 22.99, false},
	{"SPOTIFY USA", "Entertainment", "Services", "ACH_DEBIT", 10.99, 16.99, false},
	{"CVS PHARMACY", "Health & Wellness", "Medical Services", "DEBIT_CARD", 5, 120, false},
	{"PG&E WEB ONLINE", "Bills & Utilities", "Utilities", "ACH_DEBIT", 50, 250, false},
	{"DELTA AIR LINES", "Travel", "Travel/ Entertainment", "DEBIT_CARD", 120, 800, false},
	{"UBER TRIP", "Travel", "Travel/ Entertainment", "DEBIT_CARD", 8, 60, false},
	{"ACME CORP PAYROLL", "", "", "ACH_CREDIT", 2000, 6000, true},
}

// GeneratedStatement is a synthetic export and the amounts a correct
// normalizer must produce for it, row by row
type GeneratedStatement struct {
	Schema   models.SchemaID
	Table    *reader.Table
	Expected []decimal.Decimal
}

// StatementGenerator builds synthetic issuer exports for load and property tests
type StatementGenerator struct {
	faker *gofakeit.Faker
}

// NewStatementGenerator creates a generator; the same seed yields the same statements
func NewStatementGenerator(seed uint64) *StatementGenerator {
	return &StatementGenerator{faker: gofakeit.New(seed)}
}

// Generate builds rows transactions for schema dated within [start, end].
// Unknown schemas produce a generic Date/Description/Debit/Credit export.
func (g *StatementGenerator) Generate(schema models.SchemaID, rows int, start, end time.Time) *GeneratedStatement {
	columns := g.columns(schema)
	out := &GeneratedStatement{
		Schema:   schema,
		Table:    &reader.Table{Columns: columns},
		Expected: make([]decimal.Decimal, 0, rows),
	}

	balance := decimal.NewFromInt(5000)
	for i := 0; i < rows; i++ {
		m := merchantPool[g.faker.Number(0, len(merchantPool)-1)]
		date := g.faker.DateRange(start, end)
		post := date.AddDate(0, 0, g.faker.Number(0, 2))
		magnitude := decimal.NewFromFloat(g.faker.Float64Range(m.minAmount, m.maxAmount)).Round(2)
		desc := m.name + " " + g.faker.Numerify("#####")

		// canonical sign: money out is negative
		canonical := magnitude.Neg()
		if m.income {
			canonical = magnitude
		}
		balance = balance.Add(canonical)

		out.Table.Rows = append(out.Table.Rows, g.row(schema, m, date, post, desc, canonical, balance))
		out.Expected = append(out.Expected, canonical)
	}
	return out
}

func (g *StatementGenerator) columns(schema models.SchemaID) []string {
	for _, sig := range knownSignatures {
		if sig.Schema == schema {
			return append([]string(nil), sig.All...)
		}
	}
	return []string{"Date", "Description", "Debit", "Credit", "Category"}
}

func (g *StatementGenerator) row(schema models.SchemaID, m merchantProfile, date, post time.Time, desc string, amount, balance decimal.Decimal) models.RawRow {
	const layout = "01/02/2006"

	switch schema {
	case models.SchemaChaseCredit:
		txType := "Sale"
		if m.income {
			txType = "Payment"
		}
		return models.RawRow{
			"Transaction Date": date.Format(layout),
			"Post Date":        post.Format(layout),
			"Description":      desc,
			"Category":         m.chaseCategory,
			"Type":             txType,
			"Amount":           amount.StringFixed(2),
			"Memo":             "",
		}
	case models.SchemaChaseDebit:
		details := "DEBIT"
		if m.income {
			details = "CREDIT"
		}
		return models.RawRow{
			"Details":         details,
			"Posting Date":    date.Format(layout),
			"Description":     desc,
			"Amount":          amount.StringFixed(2),
			"Type":            m.checkingType,
			"Balance":         balance.StringFixed(2),
			"Check or Slip #": "",
		}
	case models.SchemaDiscover:
		label := m.discoverLabel
		if m.income {
			label = "Payments and Credits"
		}
		return models.RawRow{
			"Trans. Date": date.Format(layout),
			"Post Date":   post.Format(layout),
			"Description": desc,
			"Amount":      amount.Neg().StringFixed(2),
			"Category":    label,
		}
	default:
		row := models.RawRow{
			"Date":        date.Format("2006-01-02"),
			"Description": desc,
			"Debit":       "",
			"Credit":      "",
			"Category":    m.chaseCategory,
		}
		if amount.IsNegative() {
			row["Debit"] = amount.Abs().StringFixed(2)
		} else {
			row["Credit"] = amount.StringFixed(2)
		}
		return row
	}
}

// WriteCSV writes table as a CSV export with a header row
func WriteCSV(w io.Writer, table *reader.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
