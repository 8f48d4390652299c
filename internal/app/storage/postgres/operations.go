package postgres

import (
	"context"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/processing"
	"github.com/google/uuid"
)

// --- ActivityStore ----------------------------------------------------------

const activityColumns = `id, member_id, parcel_id, type, performed_on, harvester_id, product, quantity, unit,
	labor_cost, input_cost, notes, admission_id, created_at, updated_at`

func (s *Store) CreateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (:id, :member_id, :parcel_id, :type, :performed_on, :harvester_id, :product, :quantity, :unit,
			:labor_cost, :input_cost, :notes, :admission_id, :created_at, :updated_at)
	`, a)
	if err != nil {
		return activity.Activity{}, mapErr("activity", a.ID, err)
	}
	return a, nil
}

func (s *Store) UpdateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	existing, err := s.GetActivity(ctx, a.ID)
	if err != nil {
		return activity.Activity{}, err
	}
	a.MemberID = existing.MemberID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE activities
		SET parcel_id = :parcel_id, type = :type, performed_on = :performed_on, harvester_id = :harvester_id,
			product = :product, quantity = :quantity, unit = :unit, labor_cost = :labor_cost,
			input_cost = :input_cost, notes = :notes, admission_id = :admission_id, updated_at = :updated_at
		WHERE id = :id
	`, a)
	if err != nil {
		return activity.Activity{}, mapErr("activity", a.ID, err)
	}
	if err := requireRow("activity", a.ID, result); err != nil {
		return activity.Activity{}, err
	}
	return a, nil
}

func (s *Store) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	var a activity.Activity
	if err := s.db.GetContext(ctx, &a, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id); err != nil {
		return activity.Activity{}, mapErr("activity", id, err)
	}
	return a, nil
}

func (s *Store) ListActivities(ctx context.Context, memberID string) ([]activity.Activity, error) {
	var result []activity.Activity
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+activityColumns+` FROM activities
		WHERE $1 = '' OR member_id = $1
		ORDER BY created_at, id
	`, memberID)
	return result, err
}

func (s *Store) DeleteActivity(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow("activity", id, result)
}

// --- AdmissionStore ---------------------------------------------------------

const admissionColumns = `id, member_id, source, activity_id, parcel_id, harvester_id, supplier, product, grade,
	quantity, unit, unit_cost, admitted_on, inventory_item_id, created_at, updated_at`

func (s *Store) CreateAdmission(ctx context.Context, a admission.Admission) (admission.Admission, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO admissions (`+admissionColumns+`)
		VALUES (:id, :member_id, :source, :activity_id, :parcel_id, :harvester_id, :supplier, :product, :grade,
			:quantity, :unit, :unit_cost, :admitted_on, :inventory_item_id, :created_at, :updated_at)
	`, a)
	if err != nil {
		return admission.Admission{}, mapErr("admission", a.ID, err)
	}
	return a, nil
}

func (s *Store) UpdateAdmission(ctx context.Context, a admission.Admission) (admission.Admission, error) {
	existing, err := s.GetAdmission(ctx, a.ID)
	if err != nil {
		return admission.Admission{}, err
	}
	a.MemberID = existing.MemberID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE admissions
		SET source = :source, activity_id = :activity_id, parcel_id = :parcel_id, harvester_id = :harvester_id,
			supplier = :supplier, product = :product, grade = :grade, quantity = :quantity, unit = :unit,
			unit_cost = :unit_cost, admitted_on = :admitted_on, inventory_item_id = :inventory_item_id,
			updated_at = :updated_at
		WHERE id = :id
	`, a)
	if err != nil {
		return admission.Admission{}, mapErr("admission", a.ID, err)
	}
	if err := requireRow("admission", a.ID, result); err != nil {
		return admission.Admission{}, err
	}
	return a, nil
}

func (s *Store) GetAdmission(ctx context.Context, id string) (admission.Admission, error) {
	var a admission.Admission
	if err := s.db.GetContext(ctx, &a, `SELECT `+admissionColumns+` FROM admissions WHERE id = $1`, id); err != nil {
		return admission.Admission{}, mapErr("admission", id, err)
	}
	return a, nil
}

func (s *Store) ListAdmissions(ctx context.Context, memberID string) ([]admission.Admission, error) {
	var result []admission.Admission
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+admissionColumns+` FROM admissions
		WHERE $1 = '' OR member_id = $1
		ORDER BY created_at, id
	`, memberID)
	return result, err
}

func (s *Store) DeleteAdmission(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM admissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow("admission", id, result)
}

// --- ProcessingStore --------------------------------------------------------

const processingColumns = `id, member_id, type, input_product, input_quantity, output_product, output_quantity,
	processing_cost, processed_on, notes, consume_item_id, produce_item_id, created_at, updated_at`

func (s *Store) CreateProcessingRun(ctx context.Context, r processing.Run) (processing.Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO processing_runs (`+processingColumns+`)
		VALUES (:id, :member_id, :type, :input_product, :input_quantity, :output_product, :output_quantity,
			:processing_cost, :processed_on, :notes, :consume_item_id, :produce_item_id, :created_at, :updated_at)
	`, r)
	if err != nil {
		return processing.Run{}, mapErr("processing run", r.ID, err)
	}
	return r, nil
}

func (s *Store) UpdateProcessingRun(ctx context.Context, r processing.Run) (processing.Run, error) {
	existing, err := s.GetProcessingRun(ctx, r.ID)
	if err != nil {
		return processing.Run{}, err
	}
	r.MemberID = existing.MemberID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE processing_runs
		SET notes = :notes, consume_item_id = :consume_item_id, produce_item_id = :produce_item_id, updated_at = :updated_at
		WHERE id = :id
	`, r)
	if err != nil {
		return processing.Run{}, mapErr("processing run", r.ID, err)
	}
	if err := requireRow("processing run", r.ID, result); err != nil {
		return processing.Run{}, err
	}
	return r, nil
}

func (s *Store) GetProcessingRun(ctx context.Context, id string) (processing.Run, error) {
	var r processing.Run
	if err := s.db.GetContext(ctx, &r, `SELECT `+processingColumns+` FROM processing_runs WHERE id = $1`, id); err != nil {
		return processing.Run{}, mapErr("processing run", id, err)
	}
	return r, nil
}

func (s *Store) ListProcessingRuns(ctx context.Context, memberID string) ([]processing.Run, error) {
	var result []processing.Run
	err := s.db.SelectContext(ctx, &result, `
		SELECT `+processingColumns+` FROM processing_runs
		WHERE $1 = '' OR member_id = $1
		ORDER BY created_at, id
	`, memberID)
	return result, err
}
