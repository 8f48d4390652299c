package memory

import (
	"context"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
)

// ZoneStore implementation -----------------------------------------------------

func (s *Store) CreateZone(_ context.Context, z zone.Zone) (zone.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if z.ID == "" {
		z.ID = s.nextIDLocked()
	} else if _, ok := s.zones[z.ID]; ok {
		return zone.Zone{}, exists("zone", z.ID)
	}
	now := s.now()
	z.CreatedAt = now
	z.UpdatedAt = now
	s.zones[z.ID] = z
	return z, nil
}

func (s *Store) UpdateZone(_ context.Context, z zone.Zone) (zone.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.zones[z.ID]
	if !ok {
		return zone.Zone{}, notFound("zone", z.ID)
	}
	z.MemberID = original.MemberID
	z.CreatedAt = original.CreatedAt
	z.UpdatedAt = s.now()
	s.zones[z.ID] = z
	return z, nil
}

func (s *Store) GetZone(_ context.Context, id string) (zone.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.zones[id]
	if !ok {
		return zone.Zone{}, notFound("zone", id)
	}
	return z, nil
}

func (s *Store) ListZones(_ context.Context, memberID string) ([]zone.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []zone.Zone
	for _, z := range s.zones {
		if memberID == "" || z.MemberID == memberID {
			result = append(result, z)
		}
	}
	sortByCreated(result, func(z zone.Zone) (time.Time, string) { return z.CreatedAt, z.ID })
	return result, nil
}

func (s *Store) DeleteZone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.zones[id]; !ok {
		return notFound("zone", id)
	}
	delete(s.zones, id)
	return nil
}

// ParcelStore implementation ---------------------------------------------------

func (s *Store) CreateParcel(_ context.Context, p parcel.Parcel) (parcel.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, ok := s.parcels[p.ID]; ok {
		return parcel.Parcel{}, exists("parcel", p.ID)
	}
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.parcels[p.ID] = p
	return p, nil
}

func (s *Store) UpdateParcel(_ context.Context, p parcel.Parcel) (parcel.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.parcels[p.ID]
	if !ok {
		return parcel.Parcel{}, notFound("parcel", p.ID)
	}
	p.MemberID = original.MemberID
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = s.now()
	s.parcels[p.ID] = p
	return p, nil
}

func (s *Store) GetParcel(_ context.Context, id string) (parcel.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parcels[id]
	if !ok {
		return parcel.Parcel{}, notFound("parcel", id)
	}
	return p, nil
}

func (s *Store) ListParcels(_ context.Context, memberID string) ([]parcel.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []parcel.Parcel
	for _, p := range s.parcels {
		if memberID == "" || p.MemberID == memberID {
			result = append(result, p)
		}
	}
	sortByCreated(result, func(p parcel.Parcel) (time.Time, string) { return p.CreatedAt, p.ID })
	return result, nil
}

func (s *Store) DeleteParcel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parcels[id]; !ok {
		return notFound("parcel", id)
	}
	delete(s.parcels, id)
	return nil
}

// HarvesterStore implementation ------------------------------------------------

func (s *Store) CreateHarvester(_ context.Context, h harvester.Harvester) (harvester.Harvester, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = s.nextIDLocked()
	} else if _, ok := s.harvesters[h.ID]; ok {
		return harvester.Harvester{}, exists("harvester", h.ID)
	}
	now := s.now()
	h.CreatedAt = now
	h.UpdatedAt = now
	s.harvesters[h.ID] = h
	return h, nil
}

func (s *Store) UpdateHarvester(_ context.Context, h harvester.Harvester) (harvester.Harvester, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.harvesters[h.ID]
	if !ok {
		return harvester.Harvester{}, notFound("harvester", h.ID)
	}
	h.MemberID = original.MemberID
	h.CreatedAt = original.CreatedAt
	h.UpdatedAt = s.now()
	s.harvesters[h.ID] = h
	return h, nil
}

func (s *Store) GetHarvester(_ context.Context, id string) (harvester.Harvester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.harvesters[id]
	if !ok {
		return harvester.Harvester{}, notFound("harvester", id)
	}
	return h, nil
}

func (s *Store) ListHarvesters(_ context.Context, memberID string) ([]harvester.Harvester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []harvester.Harvester
	for _, h := range s.harvesters {
		if memberID == "" || h.MemberID == memberID {
			result = append(result, h)
		}
	}
	sortByCreated(result, func(h harvester.Harvester) (time.Time, string) { return h.CreatedAt, h.ID })
	return result, nil
}

func (s *Store) DeleteHarvester(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.harvesters[id]; !ok {
		return notFound("harvester", id)
	}
	delete(s.harvesters, id)
	return nil
}
