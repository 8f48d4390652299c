package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/R3E-Network/farm_backoffice/internal/app/storage"
)

var (
	// ErrInUse is returned when a record cannot be removed while others
	// reference it.
	ErrInUse = errors.New("record is in use")
	// ErrLocked is returned when a record took part in a side-effect chain and
	// can no longer be changed.
	ErrLocked = errors.New("record is locked")
)

// Epsilon is the tolerance used when comparing quantities and amounts.
const Epsilon = 1e-9

// ValidationError reports invalid caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Required builds the common "x is required" validation error.
func Required(field string) error {
	return Invalid(field, "is required")
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// RequireMember confirms memberID names an existing member.
func RequireMember(ctx context.Context, members storage.MemberStore, memberID string) error {
	if memberID == "" {
		return Required("member_id")
	}
	if members == nil {
		return nil
	}
	if _, err := members.GetMember(ctx, memberID); err != nil {
		return fmt.Errorf("member validation failed: %w", err)
	}
	return nil
}

// Owned hides records that belong to another member behind ErrNotFound.
func Owned(kind, id, owner, memberID string) error {
	if memberID != "" && owner != memberID {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

// NonNegative validates a numeric field that may be zero.
func NonNegative(field string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid(field, "must not be negative")
	}
	return nil
}

// Positive validates a numeric field that must be greater than zero.
func Positive(field string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid(field, "must be positive")
	}
	return nil
}

// Round2 rounds money to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
