package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// AllAppointmentStatuses lists every status in display order.
var AllAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
	AppointmentStatusNoShow,
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition other than to itself is allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled || s == AppointmentStatusNoShow
}

// IsActive reports whether the appointment still occupies its slot.
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// AnyDentistLane is the conflict lane shared by appointments without a dentist.
var AnyDentistLane = uuid.Nil

type Appointment struct {
	Base
	Reference string            `db:"reference" json:"reference"`
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	DentistID *uuid.UUID        `db:"dentist_id" json:"dentist_id,omitempty"`
	ServiceID uuid.UUID         `db:"service_id" json:"service_id"`
	BranchID  uuid.UUID         `db:"branch_id" json:"branch_id"`
	Date      Date              `db:"appointment_date" json:"date"`
	Time      TimeOfDay         `db:"appointment_time" json:"time"`
	Reason    string            `db:"reason" json:"reason,omitempty"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Notes     string            `db:"notes" json:"notes,omitempty"`
	CreatedBy *uuid.UUID        `db:"created_by" json:"created_by,omitempty"`
}

// Lane returns the conflict lane of the appointment.
func (a *Appointment) Lane() uuid.UUID {
	return LaneOf(a.DentistID)
}

func LaneOf(dentistID *uuid.UUID) uuid.UUID {
	if dentistID == nil {
		return AnyDentistLane
	}
	return *dentistID
}

// BookingRequest is the input of a new appointment, from a patient or staff.
type BookingRequest struct {
	PatientID uuid.UUID
	ServiceID uuid.UUID
	DentistID *uuid.UUID
	BranchID  uuid.UUID
	Date      Date
	Time      TimeOfDay
	Reason    string
}

type AppointmentFilters struct {
	BranchID  *uuid.UUID
	DentistID *uuid.UUID
	PatientID *uuid.UUID
	Status    *AppointmentStatus
	From      *Date
	To        *Date
	Limit     int
	Offset    int
}

// AppointmentSummary is what notifications need to describe an appointment.
type AppointmentSummary struct {
	AppointmentID uuid.UUID
	Reference     string
	PatientName   string
	PatientEmail  string
	DentistName   string
	ServiceName   string
	BranchName    string
	Date          Date
	Time          TimeOfDay
	Notes         string
}

// StatusChange is the outbox payload of a committed transition.
type StatusChange struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	Reference     string            `json:"reference"`
	PatientID     uuid.UUID         `json:"patient_id"`
	From          AppointmentStatus `json:"from"`
	To            AppointmentStatus `json:"to"`
	ActorID       uuid.UUID         `json:"actor_id"`
	ChangedAt     time.Time         `json:"changed_at"`
}

// Rescheduled is the outbox payload of a committed reschedule.
type Rescheduled struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Reference     string    `json:"reference"`
	FromDate      Date      `json:"from_date"`
	FromTime      TimeOfDay `json:"from_time"`
	ToDate        Date      `json:"to_date"`
	ToTime        TimeOfDay `json:"to_time"`
	ActorID       uuid.UUID `json:"actor_id"`
}

// SlotAvailability is the answer to an available-slots query.
type SlotAvailability struct {
	Date        Date        `json:"date"`
	BranchID    uuid.UUID   `json:"branch_id"`
	DentistID   *uuid.UUID  `json:"dentist_id,omitempty"`
	Blocked     bool        `json:"blocked"`
	BlockReason string      `json:"block_reason,omitempty"`
	Slots       []TimeOfDay `json:"slots"`
}
