package memory

import (
	"context"
	"strings"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
)

// MemberStore implementation ---------------------------------------------------

func (s *Store) CreateMember(_ context.Context, m member.Member) (member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(m.Email)
	if m.ID == "" {
		m.ID = s.nextIDLocked()
	} else if _, ok := s.members[m.ID]; ok {
		return member.Member{}, exists("member", m.ID)
	}
	if _, taken := s.membersByEmail[email]; taken {
		return member.Member{}, exists("member email", email)
	}

	now := s.now()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Metadata = cloneMap(m.Metadata)

	s.members[m.ID] = m
	s.membersByEmail[email] = m.ID
	return cloneMember(m), nil
}

func (s *Store) UpdateMember(_ context.Context, m member.Member) (member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.members[m.ID]
	if !ok {
		return member.Member{}, notFound("member", m.ID)
	}
	oldEmail := strings.ToLower(original.Email)
	newEmail := strings.ToLower(m.Email)
	if newEmail != oldEmail {
		if _, taken := s.membersByEmail[newEmail]; taken {
			return member.Member{}, exists("member email", newEmail)
		}
		delete(s.membersByEmail, oldEmail)
		s.membersByEmail[newEmail] = m.ID
	}

	m.CreatedAt = original.CreatedAt
	m.UpdatedAt = s.now()
	m.Metadata = cloneMap(m.Metadata)

	s.members[m.ID] = m
	return cloneMember(m), nil
}

func (s *Store) GetMember(_ context.Context, id string) (member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return member.Member{}, notFound("member", id)
	}
	return cloneMember(m), nil
}

func (s *Store) GetMemberByEmail(_ context.Context, email string) (member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.membersByEmail[strings.ToLower(email)]
	if !ok {
		return member.Member{}, notFound("member email", email)
	}
	return cloneMember(s.members[id]), nil
}

func (s *Store) ListMembers(_ context.Context) ([]member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]member.Member, 0, len(s.members))
	for _, m := range s.members {
		result = append(result, cloneMember(m))
	}
	sortByCreated(result, func(m member.Member) (t time.Time, id string) { return m.CreatedAt, m.ID })
	return result, nil
}

func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return notFound("member", id)
	}
	delete(s.membersByEmail, strings.ToLower(m.Email))
	delete(s.members, id)
	s.deleteTenantLocked(id)
	return nil
}

// deleteTenantLocked drops every record owned by memberID, matching the
// ON DELETE CASCADE foreign keys of the SQL schema.
func (s *Store) deleteTenantLocked(memberID string) {
	for id, z := range s.zones {
		if z.MemberID == memberID {
			delete(s.zones, id)
		}
	}
	for id, p := range s.parcels {
		if p.MemberID == memberID {
			delete(s.parcels, id)
		}
	}
	for id, h := range s.harvesters {
		if h.MemberID == memberID {
			delete(s.harvesters, id)
		}
	}
	for id, a := range s.activities {
		if a.MemberID == memberID {
			delete(s.activities, id)
		}
	}
	for id, a := range s.admissions {
		if a.MemberID == memberID {
			delete(s.admissions, id)
		}
	}
	for id, r := range s.processingRuns {
		if r.MemberID == memberID {
			delete(s.processingRuns, id)
		}
	}
	for id, item := range s.itemsByID {
		if item.MemberID == memberID {
			delete(s.itemsByID, id)
		}
	}
	for key := range s.balances {
		if key.memberID == memberID {
			delete(s.balances, key)
		}
	}
	for id, e := range s.entriesByID {
		if e.MemberID == memberID {
			delete(s.entriesByID, id)
		}
	}
	delete(s.items, memberID)
	delete(s.entries, memberID)
}

func cloneMember(m member.Member) member.Member {
	m.Metadata = cloneMap(m.Metadata)
	return m
}
