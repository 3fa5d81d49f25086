package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"apptflow/internal/clock"
	"apptflow/internal/domain"
	"apptflow/internal/store"
)

// Default exclusion window on either side of a proposed slot.
const DefaultWindow = time.Hour

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	WindowBefore time.Duration
	WindowAfter  time.Duration
}

// Service is the booking engine: it validates and creates, updates and
// cancels appointments and owns the status lifecycle.
type Service struct {
	appts        store.AppointmentRepository
	participants store.ParticipantRepository
	clock        clock.Clock
	windowBefore time.Duration
	windowAfter  time.Duration
}

func NewService(appts store.AppointmentRepository, participants store.ParticipantRepository, clk clock.Clock, cfg Config) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if cfg.WindowBefore <= 0 {
		cfg.WindowBefore = DefaultWindow
	}
	if cfg.WindowAfter <= 0 {
		cfg.WindowAfter = DefaultWindow
	}
	return &Service{
		appts:        appts,
		participants: participants,
		clock:        clk,
		windowBefore: cfg.WindowBefore,
		windowAfter:  cfg.WindowAfter,
	}
}

type CreateInput struct {
	CustomerID  uuid.UUID
	ProviderID  uuid.UUID
	ServiceType domain.ServiceType
	ScheduledAt time.Time
	Notes       string
}

// Create books a new PENDING appointment. The conflict check and the
// insert run inside the provider's exclusion scope so two concurrent
// creates for the same slot cannot both pass the check.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	if in.CustomerID == uuid.Nil {
		return domain.Appointment{}, validationError("customer_id is required")
	}
	if in.ProviderID == uuid.Nil {
		return domain.Appointment{}, validationError("provider_id is required")
	}
	if !in.ServiceType.Valid() {
		return domain.Appointment{}, validationError("unknown service type")
	}

	if _, err := s.participants.Get(ctx, in.CustomerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, fmt.Errorf("customer %s: %w", in.CustomerID, store.ErrNotFound)
		}
		return domain.Appointment{}, err
	}
	provider, err := s.participants.Get(ctx, in.ProviderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, fmt.Errorf("provider %s: %w", in.ProviderID, store.ErrNotFound)
		}
		return domain.Appointment{}, err
	}
	if !provider.ServiceProvider {
		return domain.Appointment{}, validationError("selected participant is not a service provider")
	}

	scheduled := in.ScheduledAt.UTC()
	if !scheduled.After(s.clock.Now()) {
		return domain.Appointment{}, validationError("scheduled_at must be in the future")
	}

	appt := domain.Appointment{
		CustomerID:  in.CustomerID,
		ProviderID:  in.ProviderID,
		ServiceType: in.ServiceType,
		ScheduledAt: scheduled,
		Status:      domain.StatusPending,
		Notes:       in.Notes,
	}

	var out domain.Appointment
	err = s.appts.InProviderTransaction(ctx, in.ProviderID, func(ctx context.Context, tx store.BookingTx) error {
		conflict, err := hasConflict(ctx, tx, in.ProviderID, scheduled, s.windowBefore, s.windowAfter)
		if err != nil {
			return err
		}
		if conflict {
			return store.ErrConflict
		}
		created, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// UpdateInput carries a partial update; nil fields stay untouched.
type UpdateInput struct {
	ServiceType *domain.ServiceType
	ScheduledAt *time.Time
	Notes       *string
}

// Update reschedules or annotates an appointment. Rescheduling does not
// re-run the conflict check; creation is the only double-booking gate.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	if in.ServiceType != nil {
		if !in.ServiceType.Valid() {
			return domain.Appointment{}, validationError("unknown service type")
		}
		appt.ServiceType = *in.ServiceType
	}
	if in.ScheduledAt != nil {
		scheduled := in.ScheduledAt.UTC()
		if !scheduled.After(s.clock.Now()) {
			return domain.Appointment{}, validationError("scheduled_at must be in the future")
		}
		appt.ScheduledAt = scheduled
	}
	if in.Notes != nil {
		appt.Notes = *in.Notes
	}

	return s.appts.Update(ctx, appt)
}

// SetStatus sets the lifecycle status without a transition guard; any
// known status is accepted from any current state.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if !status.Valid() {
		return domain.Appointment{}, validationError("unknown status")
	}

	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	appt.Status = status
	return s.appts.Update(ctx, appt)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("appointment_id is required")
	}
	return s.appts.Delete(ctx, id)
}
