package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/google/uuid"
)

type memberRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	Role         string    `db:"role"`
	PasswordHash string    `db:"password_hash"`
	Active       bool      `db:"active"`
	Metadata     []byte    `db:"metadata"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r memberRow) toMember() member.Member {
	m := member.Member{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Role:         member.Role(r.Role),
		PasswordHash: r.PasswordHash,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.Metadata) > 0 {
		_ = json.Unmarshal(r.Metadata, &m.Metadata)
	}
	return m
}

const memberColumns = `id, name, email, phone, role, password_hash, active, metadata, created_at, updated_at`

// --- MemberStore ------------------------------------------------------------

func (s *Store) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Email = strings.ToLower(m.Email)
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	metadataJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return member.Member{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.Name, m.Email, m.Phone, string(m.Role), m.PasswordHash, m.Active, metadataJSON, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return member.Member{}, mapErr("member", m.Email, err)
	}
	return m, nil
}

func (s *Store) UpdateMember(ctx context.Context, m member.Member) (member.Member, error) {
	existing, err := s.GetMember(ctx, m.ID)
	if err != nil {
		return member.Member{}, err
	}
	m.Email = strings.ToLower(m.Email)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	metadataJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return member.Member{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE members
		SET name = $2, email = $3, phone = $4, role = $5, password_hash = $6, active = $7, metadata = $8, updated_at = $9
		WHERE id = $1
	`, m.ID, m.Name, m.Email, m.Phone, string(m.Role), m.PasswordHash, m.Active, metadataJSON, m.UpdatedAt)
	if err != nil {
		return member.Member{}, mapErr("member", m.ID, err)
	}
	if err := requireRow("member", m.ID, result); err != nil {
		return member.Member{}, err
	}
	return m, nil
}

func (s *Store) GetMember(ctx context.Context, id string) (member.Member, error) {
	var row memberRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id); err != nil {
		return member.Member{}, mapErr("member", id, err)
	}
	return row.toMember(), nil
}

func (s *Store) GetMemberByEmail(ctx context.Context, email string) (member.Member, error) {
	var row memberRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+memberColumns+` FROM members WHERE email = $1`, strings.ToLower(email)); err != nil {
		return member.Member{}, mapErr("member email", email, err)
	}
	return row.toMember(), nil
}

func (s *Store) ListMembers(ctx context.Context) ([]member.Member, error) {
	var rows []memberRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+memberColumns+` FROM members ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	result := make([]member.Member, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toMember())
	}
	return result, nil
}

func (s *Store) DeleteMember(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow("member", id, result)
}
