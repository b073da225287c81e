package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
)

const activeSlotsKey = "slots:active"

type Options struct {
	Clock            Clock
	NoShowThreshold  int
	NoShowWindowDays int
	CacheTTL         time.Duration
}

// Service answers every "can this slot be booked" question: the slot
// catalog, the conflict checker, the dentist schedule resolver, the
// blocked-date guard and the no-show gate.
type Service struct {
	appointments repository.AppointmentRepository
	schedules    repository.ScheduleRepository
	slots        repository.TimeSlotRepository
	blocked      repository.BlockedDateRepository
	patients     repository.PatientRepository

	cache            *cache.Cache
	clock            Clock
	noShowThreshold  int
	noShowWindowDays int
}

func NewService(store *repository.Store, opts Options) *Service {
	if opts.NoShowThreshold <= 0 {
		opts.NoShowThreshold = 2
	}
	if opts.NoShowWindowDays <= 0 {
		opts.NoShowWindowDays = 30
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.Clock.now == nil {
		opts.Clock = NewClock(time.UTC, nil)
	}

	return &Service{
		appointments:     store.Appointments,
		schedules:        store.Schedules,
		slots:            store.TimeSlots,
		blocked:          store.BlockedDates,
		patients:         store.Patients,
		cache:            cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		clock:            opts.Clock,
		noShowThreshold:  opts.NoShowThreshold,
		noShowWindowDays: opts.NoShowWindowDays,
	}
}

func (s *Service) Clock() Clock {
	return s.clock
}

// IsSlotTaken reports whether an active appointment holds (date, t) in the
// lane of dentistID. A nil dentist is the shared "any dentist" lane.
func (s *Service) IsSlotTaken(ctx context.Context, date model.Date, t model.TimeOfDay, dentistID, excludeID *uuid.UUID) (bool, error) {
	taken, err := s.appointments.IsSlotTaken(ctx, date, t, dentistID, excludeID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return taken, nil
}

// IsDentistWorking reports whether the dentist's weekly schedule covers t on
// the weekday of date. A day without a schedule row is a day off.
func (s *Service) IsDentistWorking(ctx context.Context, dentistID uuid.UUID, date model.Date, t model.TimeOfDay) (bool, error) {
	entry, err := s.scheduleFor(ctx, dentistID, date)
	if err != nil {
		return false, err
	}
	return entry != nil && entry.Covers(t), nil
}

func (s *Service) scheduleFor(ctx context.Context, dentistID uuid.UUID, date model.Date) (*model.DentistSchedule, error) {
	entry, err := s.schedules.GetForDay(ctx, dentistID, int(date.Weekday()))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return entry, nil
}

func (s *Service) IsDateBlocked(ctx context.Context, date model.Date, branchID uuid.UUID) (bool, error) {
	block, err := s.ActiveBlock(ctx, date, branchID)
	if err != nil {
		return false, err
	}
	return block != nil, nil
}

// ActiveBlock returns the active block of the branch on date, or nil.
func (s *Service) ActiveBlock(ctx context.Context, date model.Date, branchID uuid.UUID) (*model.BlockedDate, error) {
	block, err := s.blocked.FindActive(ctx, date, branchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return block, nil
}

// CanBookOnline is false when the patient reached the no-show threshold and
// the latest no-show is inside the rolling window, today included.
func (s *Service) CanBookOnline(ctx context.Context, patientID uuid.UUID) (bool, error) {
	e, err := s.Eligibility(ctx, patientID)
	if err != nil {
		return false, err
	}
	return e.CanBookOnline, nil
}

func (s *Service) Eligibility(ctx context.Context, patientID uuid.UUID) (*model.BookingEligibility, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("patient", err)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &model.BookingEligibility{
		PatientID:      patient.ID,
		CanBookOnline:  s.eligible(patient),
		NoShowCount:    patient.NoShowCount,
		LastNoShowDate: patient.LastNoShowDate,
	}, nil
}

func (s *Service) eligible(p *model.Patient) bool {
	if p.NoShowCount < s.noShowThreshold || p.LastNoShowDate == nil {
		return true
	}
	return s.clock.Today().DaysSince(*p.LastNoShowDate) > s.noShowWindowDays
}

// ActiveSlots returns the active catalog in ascending time order. An empty
// catalog is never cached so a freshly seeded store is seen at once.
func (s *Service) ActiveSlots(ctx context.Context) ([]*model.TimeSlot, error) {
	if cached, ok := s.cache.Get(activeSlotsKey); ok {
		return cached.([]*model.TimeSlot), nil
	}
	return s.refreshSlots(ctx)
}

func (s *Service) refreshSlots(ctx context.Context) ([]*model.TimeSlot, error) {
	slots, err := s.slots.List(ctx, true)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(slots) > 0 {
		s.cache.SetDefault(activeSlotsKey, slots)
	} else {
		s.cache.Delete(activeSlotsKey)
	}
	return slots, nil
}

// IsCatalogSlot reports whether t is an active catalog time. A miss on the
// cached catalog is checked again against storage, since another instance
// may have added the slot.
func (s *Service) IsCatalogSlot(ctx context.Context, t model.TimeOfDay) (bool, error) {
	_, cached := s.cache.Get(activeSlotsKey)
	slots, err := s.ActiveSlots(ctx)
	if err != nil {
		return false, err
	}
	if containsSlot(slots, t) {
		return true, nil
	}
	if !cached {
		return false, nil
	}
	slots, err = s.refreshSlots(ctx)
	if err != nil {
		return false, err
	}
	return containsSlot(slots, t), nil
}

func containsSlot(slots []*model.TimeSlot, t model.TimeOfDay) bool {
	for _, slot := range slots {
		if slot.Time == t {
			return true
		}
	}
	return false
}

// ListAvailableSlots intersects the active catalog with the dentist's
// schedule (when given) and the free times of the lane. A blocked date
// yields no slots and Blocked set; past dates are rejected.
func (s *Service) ListAvailableSlots(ctx context.Context, date model.Date, dentistID *uuid.UUID, branchID uuid.UUID, excludeID *uuid.UUID) (*model.SlotAvailability, error) {
	if date.IsZero() {
		return nil, apperr.BadRequest("date is required", nil)
	}
	if s.clock.Bucket(date) == BucketPast {
		return nil, apperr.PastDate()
	}

	result := &model.SlotAvailability{
		Date:      date,
		BranchID:  branchID,
		DentistID: dentistID,
		Slots:     []model.TimeOfDay{},
	}

	block, err := s.ActiveBlock(ctx, date, branchID)
	if err != nil {
		return nil, err
	}
	if block != nil {
		result.Blocked = true
		result.BlockReason = block.Reason
		return result, nil
	}

	var schedule *model.DentistSchedule
	if dentistID != nil {
		schedule, err = s.scheduleFor(ctx, *dentistID, date)
		if err != nil {
			return nil, err
		}
		if schedule == nil {
			return result, nil
		}
	}

	catalog, err := s.ActiveSlots(ctx)
	if err != nil {
		return nil, err
	}
	takenTimes, err := s.appointments.TakenTimes(ctx, date, dentistID, excludeID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to load taken times: %w", err))
	}
	taken := make(map[model.TimeOfDay]bool, len(takenTimes))
	for _, t := range takenTimes {
		taken[t] = true
	}

	for _, slot := range catalog {
		if schedule != nil && !schedule.Covers(slot.Time) {
			continue
		}
		if taken[slot.Time] {
			continue
		}
		if s.clock.HasPassed(date, slot.Time) {
			continue
		}
		result.Slots = append(result.Slots, slot.Time)
	}
	return result, nil
}

func (s *Service) ListSlots(ctx context.Context) ([]*model.TimeSlot, error) {
	slots, err := s.slots.List(ctx, false)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return slots, nil
}

func (s *Service) CreateSlot(ctx context.Context, t model.TimeOfDay) (*model.TimeSlot, error) {
	if !t.Valid() {
		return nil, apperr.BadRequest("invalid slot time", nil)
	}
	slot := &model.TimeSlot{Time: t, Active: true}
	if err := s.slots.Create(ctx, slot); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(fmt.Sprintf("slot %s already exists", t), err)
		}
		return nil, apperr.Internal(err)
	}
	s.cache.Delete(activeSlotsKey)
	return slot, nil
}

func (s *Service) SetSlotActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.slots.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("time slot", err)
		}
		return apperr.Internal(err)
	}
	s.cache.Delete(activeSlotsKey)
	return nil
}

// SeedSlots creates every time in times that the catalog does not have yet
// and returns how many were added.
func (s *Service) SeedSlots(ctx context.Context, times []model.TimeOfDay) (int, error) {
	created := 0
	for _, t := range times {
		_, err := s.CreateSlot(ctx, t)
		if apperr.HasCode(err, apperr.ErrConflict) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
