package inventory

import "time"

// Direction says whether a ledger line adds or removes stock.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Reference prefixes used on ledger lines.
const (
	RefAdmission  = "admission"
	RefProcessing = "processing"
	RefSale       = "sale"
	RefAdjustment = "adjustment"
	RefReversal   = "reversal"
)

// Item is one line of a member's stock ledger. BalanceQuantity and
// BalanceValue hold the running balance of the product after the line.
type Item struct {
	ID              string    `json:"id" db:"id"`
	MemberID        string    `json:"member_id" db:"member_id"`
	Product         string    `json:"product" db:"product"`
	Direction       Direction `json:"direction" db:"direction"`
	Quantity        float64   `json:"quantity" db:"quantity"`
	UnitCost        float64   `json:"unit_cost" db:"unit_cost"`
	Value           float64   `json:"value" db:"value"`
	Reference       string    `json:"reference" db:"reference"`
	OccurredOn      time.Time `json:"occurred_on" db:"occurred_on"`
	BalanceQuantity float64   `json:"balance_quantity" db:"balance_quantity"`
	BalanceValue    float64   `json:"balance_value" db:"balance_value"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Signed returns the quantity with the sign implied by the direction.
func (i Item) Signed() float64 {
	if i.Direction == DirectionOut {
		return -i.Quantity
	}
	return i.Quantity
}

// Balance is the denormalised stock position of one product.
type Balance struct {
	MemberID       string    `json:"member_id" db:"member_id"`
	Product        string    `json:"product" db:"product"`
	Quantity       float64   `json:"quantity" db:"quantity"`
	Value          float64   `json:"value" db:"value"`
	AverageCost    float64   `json:"average_cost" db:"average_cost"`
	LastMovementAt time.Time `json:"last_movement_at" db:"last_movement_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Sale removes stock in exchange for income.
type Sale struct {
	MemberID  string    `json:"member_id"`
	Product   string    `json:"product"`
	Quantity  float64   `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Buyer     string    `json:"buyer,omitempty"`
	SoldOn    time.Time `json:"sold_on"`
}
