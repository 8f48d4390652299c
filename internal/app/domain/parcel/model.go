package parcel

import "time"

// Tenure describes how the member holds a parcel.
type Tenure string

const (
	TenureOwned  Tenure = "owned"
	TenureLeased Tenure = "leased"
)

// Parcel is a piece of land farmed by a member.
type Parcel struct {
	ID              string    `json:"id" db:"id"`
	MemberID        string    `json:"member_id" db:"member_id"`
	ZoneID          string    `json:"zone_id,omitempty" db:"zone_id"`
	Code            string    `json:"code" db:"code"`
	Name            string    `json:"name" db:"name"`
	AreaHectares    float64   `json:"area_hectares" db:"area_hectares"`
	Crop            string    `json:"crop,omitempty" db:"crop"`
	Tenure          Tenure    `json:"tenure" db:"tenure"`
	AnnualLeaseCost float64   `json:"annual_lease_cost,omitempty" db:"annual_lease_cost"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Leased reports whether lease charges apply to the parcel.
func (p Parcel) Leased() bool { return p.Tenure == TenureLeased }
