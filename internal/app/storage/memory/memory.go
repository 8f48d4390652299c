package memory

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/processing"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu             sync.RWMutex
	nextID         int64
	members        map[string]member.Member
	membersByEmail map[string]string
	zones          map[string]zone.Zone
	parcels        map[string]parcel.Parcel
	harvesters     map[string]harvester.Harvester
	activities     map[string]activity.Activity
	admissions     map[string]admission.Admission
	processingRuns map[string]processing.Run
	itemsByID      map[string]inventory.Item
	items          map[string][]inventory.Item
	balances       map[balanceKey]inventory.Balance
	entriesByID    map[string]accounting.Entry
	entries        map[string][]accounting.Entry

	now func() time.Time
}

type balanceKey struct {
	memberID string
	product  string
}

var _ storage.MemberStore = (*Store)(nil)
var _ storage.ZoneStore = (*Store)(nil)
var _ storage.ParcelStore = (*Store)(nil)
var _ storage.HarvesterStore = (*Store)(nil)
var _ storage.ActivityStore = (*Store)(nil)
var _ storage.AdmissionStore = (*Store)(nil)
var _ storage.ProcessingStore = (*Store)(nil)
var _ storage.InventoryStore = (*Store)(nil)
var _ storage.AccountingStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:         1,
		members:        make(map[string]member.Member),
		membersByEmail: make(map[string]string),
		zones:          make(map[string]zone.Zone),
		parcels:        make(map[string]parcel.Parcel),
		harvesters:     make(map[string]harvester.Harvester),
		activities:     make(map[string]activity.Activity),
		admissions:     make(map[string]admission.Admission),
		processingRuns: make(map[string]processing.Run),
		itemsByID:      make(map[string]inventory.Item),
		items:          make(map[string][]inventory.Item),
		balances:       make(map[balanceKey]inventory.Balance),
		entriesByID:    make(map[string]accounting.Entry),
		entries:        make(map[string][]accounting.Entry),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

func exists(kind, id string) error {
	return fmt.Errorf("%s %s already exists: %w", kind, id, storage.ErrConflict)
}

// sortByCreated orders records by creation time, then by numeric id so that
// records created within the same instant keep insertion order.
func sortByCreated[T any](records []T, key func(T) (time.Time, string)) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, idi := key(records[i])
		tj, idj := key(records[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		ni, erri := strconv.ParseInt(idi, 10, 64)
		nj, errj := strconv.ParseInt(idj, 10, 64)
		if erri == nil && errj == nil {
			return ni < nj
		}
		return idi < idj
	})
}

func cloneMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
