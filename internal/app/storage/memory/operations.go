package memory

import (
	"context"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/activity"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/admission"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/processing"
)

// ActivityStore implementation -------------------------------------------------

func (s *Store) CreateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, ok := s.activities[a.ID]; ok {
		return activity.Activity{}, exists("activity", a.ID)
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.activities[a.ID] = a
	return a, nil
}

func (s *Store) UpdateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.activities[a.ID]
	if !ok {
		return activity.Activity{}, notFound("activity", a.ID)
	}
	a.MemberID = original.MemberID
	a.CreatedAt = original.CreatedAt
	a.UpdatedAt = s.now()
	s.activities[a.ID] = a
	return a, nil
}

func (s *Store) GetActivity(_ context.Context, id string) (activity.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[id]
	if !ok {
		return activity.Activity{}, notFound("activity", id)
	}
	return a, nil
}

func (s *Store) ListActivities(_ context.Context, memberID string) ([]activity.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []activity.Activity
	for _, a := range s.activities {
		if memberID == "" || a.MemberID == memberID {
			result = append(result, a)
		}
	}
	sortByCreated(result, func(a activity.Activity) (time.Time, string) { return a.CreatedAt, a.ID })
	return result, nil
}

func (s *Store) DeleteActivity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activities[id]; !ok {
		return notFound("activity", id)
	}
	delete(s.activities, id)
	return nil
}

// AdmissionStore implementation ------------------------------------------------

func (s *Store) CreateAdmission(_ context.Context, a admission.Admission) (admission.Admission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, ok := s.admissions[a.ID]; ok {
		return admission.Admission{}, exists("admission", a.ID)
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.admissions[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAdmission(_ context.Context, a admission.Admission) (admission.Admission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.admissions[a.ID]
	if !ok {
		return admission.Admission{}, notFound("admission", a.ID)
	}
	a.MemberID = original.MemberID
	a.CreatedAt = original.CreatedAt
	a.UpdatedAt = s.now()
	s.admissions[a.ID] = a
	return a, nil
}

func (s *Store) GetAdmission(_ context.Context, id string) (admission.Admission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.admissions[id]
	if !ok {
		return admission.Admission{}, notFound("admission", id)
	}
	return a, nil
}

func (s *Store) ListAdmissions(_ context.Context, memberID string) ([]admission.Admission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []admission.Admission
	for _, a := range s.admissions {
		if memberID == "" || a.MemberID == memberID {
			result = append(result, a)
		}
	}
	sortByCreated(result, func(a admission.Admission) (time.Time, string) { return a.CreatedAt, a.ID })
	return result, nil
}

func (s *Store) DeleteAdmission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admissions[id]; !ok {
		return notFound("admission", id)
	}
	delete(s.admissions, id)
	return nil
}

// ProcessingStore implementation -----------------------------------------------

func (s *Store) CreateProcessingRun(_ context.Context, r processing.Run) (processing.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	} else if _, ok := s.processingRuns[r.ID]; ok {
		return processing.Run{}, exists("processing run", r.ID)
	}
	now := s.now()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.processingRuns[r.ID] = r
	return r, nil
}

func (s *Store) UpdateProcessingRun(_ context.Context, r processing.Run) (processing.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.processingRuns[r.ID]
	if !ok {
		return processing.Run{}, notFound("processing run", r.ID)
	}
	r.MemberID = original.MemberID
	r.CreatedAt = original.CreatedAt
	r.UpdatedAt = s.now()
	s.processingRuns[r.ID] = r
	return r, nil
}

func (s *Store) GetProcessingRun(_ context.Context, id string) (processing.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.processingRuns[id]
	if !ok {
		return processing.Run{}, notFound("processing run", id)
	}
	return r, nil
}

func (s *Store) ListProcessingRuns(_ context.Context, memberID string) ([]processing.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []processing.Run
	for _, r := range s.processingRuns {
		if memberID == "" || r.MemberID == memberID {
			result = append(result, r)
		}
	}
	sortByCreated(result, func(r processing.Run) (time.Time, string) { return r.CreatedAt, r.ID })
	return result, nil
}
