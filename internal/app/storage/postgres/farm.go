package postgres

import (
	"context"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/harvester"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/parcel"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/zone"
	"github.com/google/uuid"
)

// --- ZoneStore --------------------------------------------------------------

const zoneColumns = `id, member_id, name, description, area_hectares, created_at, updated_at`

func (s *Store) CreateZone(ctx context.Context, z zone.Zone) (zone.Zone, error) {
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	z.CreatedAt = now
	z.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO zones (`+zoneColumns+`)
		VALUES (:id, :member_id, :name, :description, :area_hectares, :created_at, :updated_at)
	`, z)
	if err != nil {
		return zone.Zone{}, mapErr("zone", z.Name, err)
	}
	return z, nil
}

func (s *Store) UpdateZone(ctx context.Context, z zone.Zone) (zone.Zone, error) {
	existing, err := s.GetZone(ctx, z.ID)
	if err != nil {
		return zone.Zone{}, err
	}
	z.MemberID = existing.MemberID
	z.CreatedAt = existing.CreatedAt
	z.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE zones
		SET name = :name, description = :description, area_hectares = :area_hectares, updated_at = :updated_at
		WHERE id = :id
	`, z)
	if err != nil {
		return zone.Zone{}, mapErr("zone", z.ID, err)
	}
	if err := requireRow("zone", z.ID, result); err != nil {
		return zone.Zone{}, err
	}
	return z, nil
}

func (s *Store) GetZone(ctx context.Context, id string) (zone.Zone, error) {
	var z zone.Zone
	if err := s.db.GetContext(ctx, &z, `SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id); err != nil {
		return zone.Zone{}, mapErr("zone", id, err)
	}
	return z, nil
}

func (s *Store) ListZones(ctx context.Context, memberID string) ([]zone.Zone, error) {
	var result []zone.Zone
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+zoneColumns+` FROM zones
		WHERE $1 = '' OR member_id = $1
		ORDER BY created_at, id
	`, memberID)
	return result, err
}

func (s *Store) DeleteZone(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow("zone", id, result)
}

// --- ParcelStore ------------------------------------------------------------

const parcelColumns = `id, member_id, zone_id, code, name, area_hectares, crop, tenure, annual_lease_cost, created_at, updated_at`

func (s *Store) CreateParcel(ctx context.Context, p parcel.Parcel) (parcel.Parcel, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO parcels (`+parcelColumns+`)
		VALUES (:id, :member_id, :zone_id, :code, :name, :area_hectares, :crop, :tenure, :annual_lease_cost, :created_at, :updated_at)
	`, p)
	if err != nil {
		return parcel.Parcel{}, mapErr("parcel", p.Code, err)
	}
	return p, nil
}

func (s *Store) UpdateParcel(ctx context.Context, p parcel.Parcel) (parcel.Parcel, error) {
	existing, err := s.GetParcel(ctx, p.ID)
	if err != nil {
		return parcel.Parcel{}, err
	}
	p.MemberID = existing.MemberID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE parcels
		SET zone_id = :zone_id, code = :code, name = :name, area_hectares = :area_hectares, crop = :crop,
			tenure = :tenure, annual_lease_cost = :annual_lease_cost, updated_at = :updated_at
		WHERE id = :id
	`, p)
	if err != nil {
		return parcel.Parcel{}, mapErr("parcel", p.ID, err)
	}
	if err := requireRow("parcel", p.ID, result); err != nil {
		return parcel.Parcel{}, err
	}
	return p, nil
}

func (s *Store) GetParcel(ctx context.Context, id string) (parcel.Parcel, error) {
	var p parcel.Parcel
	if err := s.db.GetContext(ctx, &p, `SELECT `+parcelColumns+` FROM parcels WHERE id = $1`, id); err != nil {
		return parcel.Parcel{}, mapErr("parcel", id, err)
	}
	return p, nil
}

func (s *Store) ListParcels(ctx context.Context, memberID string) ([]parcel.Parcel, error) {
	var result []parcel.Parcel
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+parcelColumns+` FROM parcels
		WHERE $1 = '' OR member_id = $1
		ORDER BY created_at, id
	`, memberID)
	return result, err
}

func (s *Store) DeleteParcel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM parcels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow("parcel", id, result)
}

// --- HarvesterStore ---------------------------------------------------------

const harvesterColumns = `id, member_id, name, national_id, phone, zone_id, rate_per_unit, active, created_at, updated_at`

func (s *Store) CreateHarvester(ctx context.Context, h harvester.Harvester) (harvester.Harvester, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO harvesters (`+harvesterColumns+`)
		VALUES (:id, :member_id, :name, :national_id, :phone, :zone_id, :rate_per_unit, :active, :created_at, :updated_at)
	`, h)
	if err != nil {
		return harvester.Harvester{}, mapErr("harvester", h.ID, err)
	}
	return h, nil
}

func (s *Store) UpdateHarvester(ctx context.Context, h harvester.Harvester) (harvester.Harvester, error) {
	existing, err := s.GetHarvester(ctx, h.ID)
	if err != nil {
		return harvester.Harvester{}, err
	}
	h.MemberID = existing.MemberID
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE harvesters
		SET name = :name, national_id = :national_id, phone = :phone, zone_id = :zone_id,
			rate_per_unit = :rate_per_unit, active = :active, updated_at = :updated_at
		WHERE id = :id
	`, h)
	if err != nil {
		return harvester.Harvester{}, mapErr("harvester", h.ID, err)
	}
	if err := requireRow("harvester", h.ID, result); err != nil {
		return harvester.Harvester{}, err
	}
	return h, nil
}

func (s *Store) GetHarvester(ctx context.Context, id string) (harvester.Harvester, error) {
	var h harvester.Harvester
	if err := s.db.GetContext(ctx, &h, `SELECT `+harvesterColumns+` FROM harvesters WHERE id = $1`, id); err != nil {
		return harvester.Harvester{}, mapErr("harvester", id, err)
	}
	return h, nil
}

func (s *Store) ListHarvesters(ctx context.Context, memberID string) ([]harvester.Harvester, error) {
	var result []harvester.Harvester
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+harvesterColumns+` FROM harvesters
		WHERE $1 = '' OR member_id = $1
		ORDER BY created_at, id
	`, memberID)
	return result, err
}

func (s *Store) DeleteHarvester(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM harvesters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow("harvester", id, result)
}
