package members

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/farm_backoffice/internal/app/core/service"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage/memory"
	"golang.org/x/crypto/bcrypt"
)

func newService() *Service {
	return New(memory.New(), nil).WithHashCost(bcrypt.MinCost)
}

func TestService_CreateAndAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	m, err := svc.Create(ctx, " Ana ", "Ana@Example.com", "0700", "s3cretpass", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Email != "ana@example.com" || m.Role != member.RoleMember || !m.Active {
		t.Fatalf("unexpected member: %#v", m)
	}
	if m.PasswordHash == "s3cretpass" || m.PasswordHash == "" {
		t.Fatalf("password must be hashed")
	}

	if _, err := svc.Create(ctx, "Other", "ana@example.com", "", "s3cretpass", ""); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}

	got, err := svc.Authenticate(ctx, "ANA@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != m.ID {
		t.Fatalf("authenticated wrong member")
	}
	if _, err := svc.Authenticate(ctx, "ana@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}

	inactive := false
	if _, err := svc.Update(ctx, m.ID, Update{Active: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ana@example.com", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive members must not authenticate, got %v", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := []struct {
		name, email, password string
		role                  member.Role
	}{
		{"", "a@example.com", "longenough", ""},
		{"Ana", "", "longenough", ""},
		{"Ana", "not-an-email", "longenough", ""},
		{"Ana", "a@example.com", "short", ""},
		{"Ana", "a@example.com", "longenough", "owner"},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.name, tc.email, "", tc.password, tc.role); !service.IsValidation(err) {
			t.Fatalf("expected validation error for %+v, got %v", tc, err)
		}
	}
}

func TestService_UpdateAndDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	m, err := svc.Create(ctx, "Ana", "ana@example.com", "", "s3cretpass", member.RoleAdmin)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	name := "Ana Maria"
	pass := "another-pass"
	updated, err := svc.Update(ctx, m.ID, Update{Name: &name, Password: &pass, Metadata: map[string]string{"coop": "north"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.Metadata["coop"] != "north" {
		t.Fatalf("update not applied: %#v", updated)
	}
	if _, err := svc.Authenticate(ctx, "ana@example.com", pass); err != nil {
		t.Fatalf("new password should work: %v", err)
	}

	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected no members, got %d", len(list))
	}
}

func TestService_EnsureAdminIsIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, created, err := svc.EnsureAdmin(ctx, "Admin", "admin@example.com", "adminpass")
	if err != nil || !created {
		t.Fatalf("expected admin to be created: %v", err)
	}
	if !first.IsAdmin() {
		t.Fatalf("bootstrap member must be admin")
	}
	second, created, err := svc.EnsureAdmin(ctx, "Admin", "admin@example.com", "adminpass")
	if err != nil || created || second.ID != first.ID {
		t.Fatalf("second call should return existing admin (created=%v err=%v)", created, err)
	}
}
