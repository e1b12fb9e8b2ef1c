package auth

import "time"

// User represents an account that can sign in. Role is one of the three
// fixed application roles (admin, employee, customer).
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// RegisterInput creates a new customer account. Staff accounts are
// provisioned out of band.
type RegisterInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	FullName string `validate:"required,min=1,max=200"`
}
