package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDentist Role = "dentist"
	RolePatient Role = "patient"
	RoleSystem  Role = "system"
)

func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleDentist || r == RoleSystem
}

type User struct {
	Base
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         Role       `db:"role" json:"role"`
	PatientID    *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	DentistID    *uuid.UUID `db:"dentist_id" json:"dentist_id,omitempty"`
	Active       bool       `db:"is_active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// Actor is the authenticated identity a request acts as.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	PatientID *uuid.UUID
	DentistID *uuid.UUID
}

// SystemActor is used by background reconciliation.
func SystemActor() Actor {
	return Actor{UserID: uuid.Nil, Role: RoleSystem}
}

// OwnsPatient reports whether a patient actor is acting on their own record.
func (a Actor) OwnsPatient(patientID uuid.UUID) bool {
	return a.Role == RolePatient && a.PatientID != nil && *a.PatientID == patientID
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterPatientRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,max=30"`
	Password  string `json:"password" binding:"required,min=8"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        Role      `json:"role"`
}
