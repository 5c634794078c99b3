package reconcile

import (
	"regexp"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Category identifies what a transaction represents for reporting.
type Category string

const (
	CategoryCost      Category = "cost"
	CategoryShipping  Category = "shipping"
	CategoryMaterials Category = "materials"
	CategorySales     Category = "sales"
	CategoryOther     Category = "other"
)

// tagPattern matches the wire convention for category encoding: a bracketed
// tag prefixing the free-text description, e.g. "[materials] glue".
var tagPattern = regexp.MustCompile(`^\[(cost|shipping|materials|sales|other)\]\s*(.*)$`)

// legacyCategory is the single mapping between the historical enumerated
// transaction type and the tag taxonomy. No other component may interpret
// either encoding.
var legacyCategory = map[ledger.LegacyType]Category{
	ledger.LegacyOrderCollection: CategorySales,
	ledger.LegacyShippingPayment: CategoryShipping,
	ledger.LegacyCostPayment:     CategoryCost,
	ledger.LegacyExpense:         CategoryOther,
	ledger.LegacyOtherIncome:     CategorySales,
}

// Categorize derives the category tag and the cleaned description for a
// transaction. The bracket tag wins over the legacy type; anything
// unrecognised falls back to CategoryOther with the description untouched.
// Categorize never fails.
func Categorize(tx ledger.Transaction) (Category, string) {
	if m := tagPattern.FindStringSubmatch(tx.Description); m != nil {
		return Category(m[1]), m[2]
	}
	if cat, ok := legacyCategory[tx.Type]; ok {
		return cat, tx.Description
	}
	return CategoryOther, tx.Description
}

// categorizeWithDiagnostics wraps Categorize, reporting legacy types that
// were present but unknown.
func categorizeWithDiagnostics(tx ledger.Transaction, diags *[]Diagnostic) (Category, string) {
	if tagPattern.MatchString(tx.Description) {
		return Categorize(tx)
	}
	if tx.Type != "" {
		if _, ok := legacyCategory[tx.Type]; !ok {
			*diags = append(*diags, Diagnostic{
				Kind:   DiagUnknownCategory,
				Record: "transaction",
				ID:     tx.ID,
				Field:  "type",
				Detail: string(tx.Type),
			})
		}
	}
	return Categorize(tx)
}
