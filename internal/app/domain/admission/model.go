package admission

import "time"

// Source identifies where admitted produce came from.
type Source string

const (
	SourceHarvest  Source = "harvest"
	SourcePurchase Source = "purchase"
	SourceTransfer Source = "transfer"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceHarvest, SourcePurchase, SourceTransfer:
		return true
	}
	return false
}

// Admission records produce entering the member's store.
type Admission struct {
	ID              string    `json:"id" db:"id"`
	MemberID        string    `json:"member_id" db:"member_id"`
	Source          Source    `json:"source" db:"source"`
	ActivityID      string    `json:"activity_id,omitempty" db:"activity_id"`
	ParcelID        string    `json:"parcel_id,omitempty" db:"parcel_id"`
	HarvesterID     string    `json:"harvester_id,omitempty" db:"harvester_id"`
	Supplier        string    `json:"supplier,omitempty" db:"supplier"`
	Product         string    `json:"product" db:"product"`
	Grade           string    `json:"grade,omitempty" db:"grade"`
	Quantity        float64   `json:"quantity" db:"quantity"`
	Unit            string    `json:"unit" db:"unit"`
	UnitCost        float64   `json:"unit_cost" db:"unit_cost"`
	AdmittedOn      time.Time `json:"admitted_on" db:"admitted_on"`
	InventoryItemID string    `json:"inventory_item_id,omitempty" db:"inventory_item_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Value is the cost basis of the admitted quantity.
func (a Admission) Value() float64 { return a.Quantity * a.UnitCost }

// Filter narrows admission listings.
type Filter struct {
	Product string
	Source  Source
}
