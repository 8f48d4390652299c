package harvester

import "time"

// Harvester is a picker or field worker paid per harvested unit.
type Harvester struct {
	ID          string    `json:"id" db:"id"`
	MemberID    string    `json:"member_id" db:"member_id"`
	Name        string    `json:"name" db:"name"`
	NationalID  string    `json:"national_id,omitempty" db:"national_id"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	ZoneID      string    `json:"zone_id,omitempty" db:"zone_id"`
	RatePerUnit float64   `json:"rate_per_unit" db:"rate_per_unit"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
