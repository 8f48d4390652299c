package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/processing"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = errors.New("record conflicts with an existing record")
)

// MemberStore persists members (tenants).
type MemberStore interface {
	CreateMember(ctx context.Context, m member.Member) (member.Member, error)
	UpdateMember(ctx context.Context, m member.Member) (member.Member, error)
	GetMember(ctx context.Context, id string) (member.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (member.Member, error)
	ListMembers(ctx context.Context) ([]member.Member, error)
	DeleteMember(ctx context.Context, id string) error
}

// ZoneStore persists zones. An empty memberID lists every member's zones.
type ZoneStore interface {
	CreateZone(ctx context.Context, z zone.Zone) (zone.Zone, error)
	UpdateZone(ctx context.Context, z zone.Zone) (zone.Zone, error)
	GetZone(ctx context.Context, id string) (zone.Zone, error)
	ListZones(ctx context.Context, memberID string) ([]zone.Zone, error)
	DeleteZone(ctx context.Context, id string) error
}

// ParcelStore persists land parcels.
type ParcelStore interface {
	CreateParcel(ctx context.Context, p parcel.Parcel) (parcel.Parcel, error)
	UpdateParcel(ctx context.Context, p parcel.Parcel) (parcel.Parcel, error)
	GetParcel(ctx context.Context, id string) (parcel.Parcel, error)
	ListParcels(ctx context.Context, memberID string) ([]parcel.Parcel, error)
	DeleteParcel(ctx context.Context, id string) error
}

// HarvesterStore persists harvesters.
type HarvesterStore interface {
	CreateHarvester(ctx context.Context, h harvester.Harvester) (harvester.Harvester, error)
	UpdateHarvester(ctx context.Context, h harvester.Harvester) (harvester.Harvester, error)
	GetHarvester(ctx context.Context, id string) (harvester.Harvester, error)
	ListHarvesters(ctx context.Context, memberID string) ([]harvester.Harvester, error)
	DeleteHarvester(ctx context.Context, id string) error
}

// ActivityStore persists farm activities.
type ActivityStore interface {
	CreateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error)
	UpdateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error)
	GetActivity(ctx context.Context, id string) (activity.Activity, error)
	ListActivities(ctx context.Context, memberID string) ([]activity.Activity, error)
	DeleteActivity(ctx context.Context, id string) error
}

// AdmissionStore persists admissions.
type AdmissionStore interface {
	CreateAdmission(ctx context.Context, a admission.Admission) (admission.Admission, error)
	UpdateAdmission(ctx context.Context, a admission.Admission) (admission.Admission, error)
	GetAdmission(ctx context.Context, id string) (admission.Admission, error)
	ListAdmissions(ctx context.Context, memberID string) ([]admission.Admission, error)
	DeleteAdmission(ctx context.Context, id string) error
}

// ProcessingStore persists processing runs.
type ProcessingStore interface {
	CreateProcessingRun(ctx context.Context, r processing.Run) (processing.Run, error)
	UpdateProcessingRun(ctx context.Context, r processing.Run) (processing.Run, error)
	GetProcessingRun(ctx context.Context, id string) (processing.Run, error)
	ListProcessingRuns(ctx context.Context, memberID string) ([]processing.Run, error)
}

// InventoryStore persists the stock ledger and the denormalised balances.
// Ledger listings are returned in posting order.
type InventoryStore interface {
	CreateInventoryItem(ctx context.Context, item inventory.Item) (inventory.Item, error)
	GetInventoryItem(ctx context.Context, id string) (inventory.Item, error)
	ListInventoryItems(ctx context.Context, memberID, product string) ([]inventory.Item, error)

	GetInventoryBalance(ctx context.Context, memberID, product string) (inventory.Balance, error)
	PutInventoryBalance(ctx context.Context, bal inventory.Balance) (inventory.Balance, error)
	ListInventoryBalances(ctx context.Context, memberID string) ([]inventory.Balance, error)
}

// AccountingStore persists the append-only books. Listings are returned in
// posting order.
type AccountingStore interface {
	CreateEntry(ctx context.Context, e accounting.Entry) (accounting.Entry, error)
	GetEntry(ctx context.Context, id string) (accounting.Entry, error)
	ListEntries(ctx context.Context, memberID string) ([]accounting.Entry, error)
	LastEntry(ctx context.Context, memberID string) (accounting.Entry, error)
}
