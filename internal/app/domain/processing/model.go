package processing

import "time"

// Type enumerates post-harvest processing steps.
type Type string

const (
	TypeDrying    Type = "drying"
	TypeSorting   Type = "sorting"
	TypeMilling   Type = "milling"
	TypePackaging Type = "packaging"
	TypeOther     Type = "other"
)

// Valid reports whether t is a known processing type.
func (t Type) Valid() bool {
	switch t {
	case TypeDrying, TypeSorting, TypeMilling, TypePackaging, TypeOther:
		return true
	}
	return false
}

// Run converts a quantity of one stored product into another.
type Run struct {
	ID             string    `json:"id" db:"id"`
	MemberID       string    `json:"member_id" db:"member_id"`
	Type           Type      `json:"type" db:"type"`
	InputProduct   string    `json:"input_product" db:"input_product"`
	InputQuantity  float64   `json:"input_quantity" db:"input_quantity"`
	OutputProduct  string    `json:"output_product" db:"output_product"`
	OutputQuantity float64   `json:"output_quantity" db:"output_quantity"`
	ProcessingCost float64   `json:"processing_cost,omitempty" db:"processing_cost"`
	ProcessedOn    time.Time `json:"processed_on" db:"processed_on"`
	Notes          string    `json:"notes,omitempty" db:"notes"`
	ConsumeItemID  string    `json:"consume_item_id,omitempty" db:"consume_item_id"`
	ProduceItemID  string    `json:"produce_item_id,omitempty" db:"produce_item_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Yield is output quantity per unit of input.
func (r Run) Yield() float64 {
	if r.InputQuantity == 0 {
		return 0
	}
	return r.OutputQuantity / r.InputQuantity
}
