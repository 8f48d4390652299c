package zone

import "time"

// Zone groups parcels and harvesters geographically within a member's farm.
type Zone struct {
	ID           string    `json:"id" db:"id"`
	MemberID     string    `json:"member_id" db:"member_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description,omitempty" db:"description"`
	AreaHectares float64   `json:"area_hectares" db:"area_hectares"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
