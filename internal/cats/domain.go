package cats

import (
	"errors"
	"time"
)

// Cat is a customer-owned pet profile. Profiles are soft deleted: IsActive
// false hides them from listings but keeps booking history intact.
type Cat struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Breed     string    `json:"breed,omitempty"`
	BirthDate time.Time `json:"birth_date,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCatInput registers a new pet profile under an owner.
type CreateCatInput struct {
	OwnerID   int64
	Name      string `validate:"required,min=1,max=100"`
	Breed     string `validate:"max=100"`
	BirthDate time.Time
	Notes     string `validate:"max=1000"`
}

// UpdateCatInput edits a pet profile.
type UpdateCatInput struct {
	Name      string `validate:"required,min=1,max=100"`
	Breed     string `validate:"max=100"`
	BirthDate time.Time
	Notes     string `validate:"max=1000"`
}

// ErrNotFound indicates the cat does not exist or is not visible to the
// caller.
var ErrNotFound = errors.New("cats: cat not found")
