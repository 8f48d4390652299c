package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/member"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
	"github.com/R3E-Network/farm_backoffice/internal/app/storage/memory"
)

func TestValidationErrorsAreDetectable(t *testing.T) {
	err := fmt.Errorf("create zone: %w", Required("name"))
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "create zone: name is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if IsValidation(storage.ErrNotFound) {
		t.Fatalf("not found must not be a validation error")
	}
	if err := Positive("quantity", 0); !IsValidation(err) {
		t.Fatalf("zero quantity should fail")
	}
	if err := NonNegative("cost", 0); err != nil {
		t.Fatalf("zero cost should pass: %v", err)
	}
}

func TestRequireMemberAndOwned(t *testing.T) {
	store := memory.New()
	m, err := store.CreateMember(context.Background(), member.Member{Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if err := RequireMember(context.Background(), store, m.ID); err != nil {
		t.Fatalf("existing member rejected: %v", err)
	}
	if err := RequireMember(context.Background(), store, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := Owned("zone", "z1", "other", m.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign record should look missing, got %v", err)
	}
	if err := Owned("zone", "z1", m.ID, ""); err != nil {
		t.Fatalf("unscoped lookup should pass: %v", err)
	}
}
