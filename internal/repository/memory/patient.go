package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
)

type patientRepository struct {
	db *DB
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.insertPatientLocked(patient)
}

func (db *DB) insertPatientLocked(patient *model.Patient) error {
	for _, p := range db.patients {
		if strings.EqualFold(p.Email, patient.Email) {
			return repository.ErrDuplicate
		}
	}
	db.stamp(&patient.Base)
	cp := *patient
	db.patients[cp.ID] = &cp
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *patientRepository) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, p := range r.db.patients {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *patientRepository) RecordNoShow(ctx context.Context, id uuid.UUID, date model.Date) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.patients[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.NoShowCount++
	if p.LastNoShowDate == nil || date.After(*p.LastNoShowDate) {
		d := date
		p.LastNoShowDate = &d
	}
	p.UpdatedAt = r.db.now()
	return nil
}
