package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"apptflow/internal/domain"
)

// AppointmentRepository is the durable store contract for appointments.
// Any persistence engine satisfies it; this repo ships a postgres and an
// embedded sqlite adapter.
type AppointmentRepository interface {
	// InProviderTransaction runs fn inside a transaction that holds the
	// per-provider exclusion scope. The conflict check and the insert for
	// one provider must not interleave with another create for the same
	// provider.
	InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx BookingTx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ListAll(ctx context.Context) ([]domain.Appointment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Appointment, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error)

	// ListExpiredPending returns appointments still PENDING whose scheduled
	// time is before the cutoff. Feed for the cleanup sweeper.
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error)
}

// BookingTx is the mutation surface available inside a provider-scoped
// transaction.
type BookingTx interface {
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	// ListActiveInWindow returns the provider's non-cancelled appointments
	// with scheduled_at inside [windowStart, windowEnd].
	ListActiveInWindow(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}
