package members

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailInUse is returned when another member already uses the email.
	ErrEmailInUse = errors.New("email already in use")
	// ErrInvalidCredentials is returned when authentication fails for any reason.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// MinPasswordLength is the shortest password accepted on create.
const MinPasswordLength = 8

// Service manages members, the tenants of the back office.
type Service struct {
	store storage.MemberStore
	log   *logger.Logger
	cost  int
}

// New constructs a member service.
func New(store storage.MemberStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("members")
	}
	return &Service{store: store, log: log, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// Descriptor advertises the service for system status.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "members",
		Domain:       "members",
		Layer:        service.LayerRegistry,
		Capabilities: []string{"tenants", "authentication"},
	}
}

// Create registers a member with a hashed password.
func (s *Service) Create(ctx context.Context, name, email, phone, password string, role member.Role) (member.Member, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)

	if name == "" {
		return member.Member{}, service.Required("name")
	}
	if email == "" {
		return member.Member{}, service.Required("email")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return member.Member{}, service.Invalid("email", "is not a valid address")
	}
	if len(password) < MinPasswordLength {
		return member.Member{}, service.Invalid("password", "must be at least %d characters", MinPasswordLength)
	}
	if role == "" {
		role = member.RoleMember
	}
	if role != member.RoleMember && role != member.RoleAdmin {
		return member.Member{}, service.Invalid("role", "must be admin or member")
	}

	if _, err := s.store.GetMemberByEmail(ctx, email); err == nil {
		return member.Member{}, ErrEmailInUse
	} else if !errors.Is(err, storage.ErrNotFound) {
		return member.Member{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return member.Member{}, fmt.Errorf("hash password: %w", err)
	}

	m, err := s.store.CreateMember(ctx, member.Member{
		Name:         name,
		Email:        email,
		Phone:        phone,
		Role:         role,
		PasswordHash: string(hash),
		Active:       true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return member.Member{}, ErrEmailInUse
		}
		return member.Member{}, err
	}
	s.log.WithField("member_id", m.ID).
		WithField("role", m.Role).
		Info("member created")
	return m, nil
}

// Get returns a member by id.
func (s *Service) Get(ctx context.Context, id string) (member.Member, error) {
	return s.store.GetMember(ctx, id)
}

// List returns every member.
func (s *Service) List(ctx context.Context) ([]member.Member, error) {
	return s.store.ListMembers(ctx)
}

// Update carries the mutable member fields. Nil fields are left unchanged.
type Update struct {
	Name     *string           `json:"name,omitempty"`
	Phone    *string           `json:"phone,omitempty"`
	Role     *member.Role      `json:"role,omitempty"`
	Active   *bool             `json:"active,omitempty"`
	Password *string           `json:"password,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Update applies changes to a member.
func (s *Service) Update(ctx context.Context, id string, upd Update) (member.Member, error) {
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		return member.Member{}, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return member.Member{}, service.Invalid("name", "cannot be empty")
		}
		m.Name = name
	}
	if upd.Phone != nil {
		m.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Role != nil {
		if *upd.Role != member.RoleMember && *upd.Role != member.RoleAdmin {
			return member.Member{}, service.Invalid("role", "must be admin or member")
		}
		m.Role = *upd.Role
	}
	if upd.Active != nil {
		m.Active = *upd.Active
	}
	if upd.Password != nil {
		if len(*upd.Password) < MinPasswordLength {
			return member.Member{}, service.Invalid("password", "must be at least %d characters", MinPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), s.cost)
		if err != nil {
			return member.Member{}, fmt.Errorf("hash password: %w", err)
		}
		m.PasswordHash = string(hash)
	}
	if upd.Metadata != nil {
		m.Metadata = upd.Metadata
	}

	m, err = s.store.UpdateMember(ctx, m)
	if err != nil {
		return member.Member{}, err
	}
	s.log.WithField("member_id", m.ID).Info("member updated")
	return m, nil
}

// Delete removes a member. Records owned by the member are removed by the
// database cascade.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteMember(ctx, id); err != nil {
		return err
	}
	s.log.WithField("member_id", id).Info("member deleted")
	return nil
}

// Authenticate checks an email/password pair. Unknown emails, wrong passwords
// and inactive members all yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (member.Member, error) {
	m, err := s.store.GetMemberByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return member.Member{}, ErrInvalidCredentials
		}
		return member.Member{}, err
	}
	if !m.Active {
		return member.Member{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return member.Member{}, ErrInvalidCredentials
	}
	return m, nil
}

// EnsureAdmin creates the bootstrap administrator when no member uses email.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (member.Member, bool, error) {
	existing, err := s.store.GetMemberByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return member.Member{}, false, err
	}
	m, err := s.Create(ctx, name, email, "", password, member.RoleAdmin)
	if err != nil {
		return member.Member{}, false, err
	}
	return m, true, nil
}
