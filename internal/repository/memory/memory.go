// Package memory is an in-process implementation of the repository
// interfaces. It backs the "memory" storage driver and the service tests,
// and enforces the same lane uniqueness as the Postgres schema.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

// DB holds every table behind one lock.
type DB struct {
	mu sync.RWMutex

	appointments map[uuid.UUID]*model.Appointment
	patients     map[uuid.UUID]*model.Patient
	dentists     map[uuid.UUID]*model.Dentist
	schedules    map[uuid.UUID][]*model.DentistSchedule
	slots        map[uuid.UUID]*model.TimeSlot
	blocked      map[uuid.UUID]*model.BlockedDate
	branches     map[uuid.UUID]*model.Branch
	services     map[uuid.UUID]*model.Service
	users        map[uuid.UUID]*model.User
	outbox       map[uuid.UUID]*model.OutboxEvent

	refSeq int
	now    func() time.Time
}

func NewDB() *DB {
	return &DB{
		appointments: make(map[uuid.UUID]*model.Appointment),
		patients:     make(map[uuid.UUID]*model.Patient),
		dentists:     make(map[uuid.UUID]*model.Dentist),
		schedules:    make(map[uuid.UUID][]*model.DentistSchedule),
		slots:        make(map[uuid.UUID]*model.TimeSlot),
		blocked:      make(map[uuid.UUID]*model.BlockedDate),
		branches:     make(map[uuid.UUID]*model.Branch),
		services:     make(map[uuid.UUID]*model.Service),
		users:        make(map[uuid.UUID]*model.User),
		outbox:       make(map[uuid.UUID]*model.OutboxEvent),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// NewStore returns a repository.Store backed by a fresh DB.
func NewStore() *repository.Store {
	return NewDB().Store()
}

func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Appointments: &appointmentRepository{db},
		Patients:     &patientRepository{db},
		Dentists:     &dentistRepository{db},
		Schedules:    &scheduleRepository{db},
		TimeSlots:    &timeSlotRepository{db},
		BlockedDates: &blockedDateRepository{db},
		Catalog:      &catalogRepository{db},
		Users:        &userRepository{db},
		Outbox:       &outboxRepository{db},
		Ping:         func(context.Context) error { return nil },
		Close:        func() error { return nil },
	}
}

func (db *DB) stamp(b *model.Base) {
	now := db.now()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// laneTakenLocked must be called with db.mu held.
func (db *DB) laneTakenLocked(date model.Date, t model.TimeOfDay, lane uuid.UUID, excludeID *uuid.UUID) bool {
	for _, a := range db.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Status.IsActive() && a.Date.Equal(date) && a.Time == t && a.Lane() == lane {
			return true
		}
	}
	return false
}

func (db *DB) addEventLocked(event *model.OutboxEvent) {
	if event == nil {
		return
	}
	cp := *event
	db.outbox[cp.ID] = &cp
}

func (db *DB) nextReferenceLocked() string {
	db.refSeq++
	return fmt.Sprintf("APT%06d", db.refSeq)
}
