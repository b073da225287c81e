package model

import (
	"github.com/google/uuid"
)

// Branch is a physical clinic location.
type Branch struct {
	Base
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address"`
	Phone   string `db:"phone" json:"phone,omitempty"`
	Active  bool   `db:"is_active" json:"active"`
}

// Service is a bookable dental treatment.
type Service struct {
	Base
	Name            string  `db:"name" json:"name"`
	Description     string  `db:"description" json:"description,omitempty"`
	DurationMinutes int     `db:"duration_minutes" json:"duration_minutes"`
	Price           float64 `db:"price" json:"price"`
	Active          bool    `db:"is_active" json:"active"`
}

type Dentist struct {
	Base
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	Specialization string     `db:"specialization" json:"specialization,omitempty"`
	Active         bool       `db:"is_active" json:"active"`
}

type CreateDentistRequest struct {
	Name           string     `json:"name" binding:"required,max=150"`
	Email          string     `json:"email" binding:"required,email"`
	Specialization string     `json:"specialization" binding:"max=100"`
	UserID         *uuid.UUID `json:"user_id"`
}

type CreateBranchRequest struct {
	Name    string `json:"name" binding:"required,max=150"`
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone" binding:"max=30"`
}

type CreateServiceRequest struct {
	Name            string  `json:"name" binding:"required,max=150"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration_minutes" binding:"required,min=5,max=480"`
	Price           float64 `json:"price" binding:"min=0"`
}
