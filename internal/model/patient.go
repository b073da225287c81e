package model

import (
	"strings"

	"github.com/google/uuid"
)

type Patient struct {
	Base
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Email          string     `db:"email" json:"email"`
	Phone          string     `db:"phone" json:"phone,omitempty"`
	NoShowCount    int        `db:"no_show_count" json:"no_show_count"`
	LastNoShowDate *Date      `db:"last_no_show_date" json:"last_no_show_date,omitempty"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// BookingEligibility reports the outcome of the no-show policy for a patient.
type BookingEligibility struct {
	PatientID      uuid.UUID `json:"patient_id"`
	CanBookOnline  bool      `json:"can_book_online"`
	NoShowCount    int       `json:"no_show_count"`
	LastNoShowDate *Date     `json:"last_no_show_date,omitempty"`
}
