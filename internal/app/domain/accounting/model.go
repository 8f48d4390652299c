package accounting

import "time"

// Kind separates money going out from money coming in.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Category classifies an entry for reporting.
type Category string

const (
	CategoryLabor         Category = "labor"
	CategoryInputs        Category = "inputs"
	CategoryProcessing    Category = "processing"
	CategoryLease         Category = "lease"
	CategoryInventoryLoss Category = "inventory_loss"
	CategorySales         Category = "sales"
	CategoryOther         Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryLabor, CategoryInputs, CategoryProcessing, CategoryLease, CategoryInventoryLoss, CategorySales, CategoryOther:
		return true
	}
	return false
}

// Entry is an append-only line of a member's books. RunningBalance is income
// minus expense after the entry.
type Entry struct {
	ID             string    `json:"id" db:"id"`
	MemberID       string    `json:"member_id" db:"member_id"`
	Kind           Kind      `json:"kind" db:"kind"`
	Category       Category  `json:"category" db:"category"`
	Amount         float64   `json:"amount" db:"amount"`
	Description    string    `json:"description,omitempty" db:"description"`
	Reference      string    `json:"reference,omitempty" db:"reference"`
	ReversalOf     string    `json:"reversal_of,omitempty" db:"reversal_of"`
	OccurredOn     time.Time `json:"occurred_on" db:"occurred_on"`
	RunningBalance float64   `json:"running_balance" db:"running_balance"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Signed returns the amount as it affects the running balance.
func (e Entry) Signed() float64 {
	if e.Kind == KindExpense {
		return -e.Amount
	}
	return e.Amount
}

// Filter narrows entry listings.
type Filter struct {
	Kind     Kind
	Category Category
	From     time.Time
	To       time.Time
}

// Match reports whether e satisfies the filter.
func (f Filter) Match(e Entry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && e.OccurredOn.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.OccurredOn.After(f.To) {
		return false
	}
	return true
}

// Summary aggregates a member's books over a period.
type Summary struct {
	MemberID     string               `json:"member_id"`
	From         time.Time            `json:"from,omitempty"`
	To           time.Time            `json:"to,omitempty"`
	TotalIncome  float64              `json:"total_income"`
	TotalExpense float64              `json:"total_expense"`
	Net          float64              `json:"net"`
	ByCategory   map[Category]float64 `json:"by_category"`
}
