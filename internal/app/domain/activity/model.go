package activity

import "time"

// Type enumerates the field operations a member can record.
type Type string

const (
	TypePlanting    Type = "planting"
	TypeFertilizing Type = "fertilizing"
	TypeSpraying    Type = "spraying"
	TypeWeeding     Type = "weeding"
	TypePruning     Type = "pruning"
	TypeHarvesting  Type = "harvesting"
)

// Valid reports whether t is a known activity type.
func (t Type) Valid() bool {
	switch t {
	case TypePlanting, TypeFertilizing, TypeSpraying, TypeWeeding, TypePruning, TypeHarvesting:
		return true
	}
	return false
}

// Activity is a farm operation performed on a parcel. Harvest activities
// produce an admission into the store.
type Activity struct {
	ID          string    `json:"id" db:"id"`
	MemberID    string    `json:"member_id" db:"member_id"`
	ParcelID    string    `json:"parcel_id" db:"parcel_id"`
	Type        Type      `json:"type" db:"type"`
	PerformedOn time.Time `json:"performed_on" db:"performed_on"`
	HarvesterID string    `json:"harvester_id,omitempty" db:"harvester_id"`
	Product     string    `json:"product,omitempty" db:"product"`
	Quantity    float64   `json:"quantity,omitempty" db:"quantity"`
	Unit        string    `json:"unit,omitempty" db:"unit"`
	LaborCost   float64   `json:"labor_cost,omitempty" db:"labor_cost"`
	InputCost   float64   `json:"input_cost,omitempty" db:"input_cost"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	AdmissionID string    `json:"admission_id,omitempty" db:"admission_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Filter narrows activity listings. Zero values are ignored.
type Filter struct {
	ParcelID string
	Type     Type
	From     time.Time
	To       time.Time
}

// Match reports whether a satisfies the filter.
func (f Filter) Match(a Activity) bool {
	if f.ParcelID != "" && a.ParcelID != f.ParcelID {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && a.PerformedOn.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.PerformedOn.After(f.To) {
		return false
	}
	return true
}
