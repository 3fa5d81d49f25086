package testfixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"apptflow/internal/domain"
	"apptflow/internal/store"
)

// MemoryStore is an in-memory implementation of the store contracts for
// service-level tests. Mutations inside InProviderTransaction hold the
// store lock, which gives the same serialization the SQL adapters provide
// per provider.
type MemoryStore struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]domain.Appointment
	participants map[uuid.UUID]domain.Participant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments: make(map[uuid.UUID]domain.Appointment),
		participants: make(map[uuid.UUID]domain.Participant),
	}
}

func (m *MemoryStore) Appointments() store.AppointmentRepository {
	return &memoryAppointments{s: m}
}

func (m *MemoryStore) Participants() store.ParticipantRepository {
	return &memoryParticipants{s: m}
}

// SeedParticipant inserts a participant and returns the stored record.
func (m *MemoryStore) SeedParticipant(name, email string, serviceProvider bool) domain.Participant {
	p, _ := m.Participants().Create(context.Background(), domain.Participant{
		Name:            name,
		Email:           email,
		ServiceProvider: serviceProvider,
		Active:          true,
	})
	return p
}

type memoryAppointments struct {
	s *MemoryStore
}

type memoryTx struct {
	s *MemoryStore
}

func (r *memoryAppointments) InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return fn(ctx, memoryTx{s: r.s})
}

func (t memoryTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	return t.s.insertLocked(appt)
}

func (t memoryTx) ListActiveInWindow(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for _, a := range t.s.appointments {
		if a.ProviderID != providerID || a.Status == domain.StatusCancelled {
			continue
		}
		if a.ScheduledAt.Before(windowStart) || a.ScheduledAt.After(windowEnd) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MemoryStore) insertLocked(appt domain.Appointment) (domain.Appointment, error) {
	now := time.Now().UTC()
	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	if appt.UpdatedAt.IsZero() {
		appt.UpdatedAt = now
	}
	m.appointments[appt.ID] = appt
	return appt, nil
}

func (r *memoryAppointments) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return appt, nil
}

func (r *memoryAppointments) Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[appt.ID]; !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	appt.UpdatedAt = time.Now().UTC()
	r.s.appointments[appt.ID] = appt
	return appt, nil
}

func (r *memoryAppointments) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.appointments, id)
	return nil
}

func (r *memoryAppointments) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	return r.filter(func(domain.Appointment) bool { return true }, false), nil
}

func (r *memoryAppointments) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool { return a.CustomerID == customerID }, true), nil
}

func (r *memoryAppointments) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool { return a.ProviderID == providerID }, true), nil
}

func (r *memoryAppointments) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool { return a.Status == status }, true), nil
}

func (r *memoryAppointments) ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error) {
	rows := r.filter(func(a domain.Appointment) bool {
		return !a.ScheduledAt.Before(start) && !a.ScheduledAt.After(end)
	}, false)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ScheduledAt.Before(rows[j].ScheduledAt)
	})
	return rows, nil
}

func (r *memoryAppointments) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error) {
	return r.filter(func(a domain.Appointment) bool {
		return a.Status == domain.StatusPending && a.ScheduledAt.Before(cutoff)
	}, false), nil
}

func (r *memoryAppointments) filter(keep func(domain.Appointment) bool, descending bool) []domain.Appointment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Appointment, 0, len(r.s.appointments))
	for _, a := range r.s.appointments {
		if keep(a) {
			out = append(out, a)
		}
	}
	if descending {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		})
	}
	return out
}

type memoryParticipants struct {
	s *MemoryStore
}

func (r *memoryParticipants) Get(ctx context.Context, id uuid.UUID) (domain.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return domain.Participant{}, store.ErrNotFound
	}
	return p, nil
}

func (r *memoryParticipants) Create(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Participant{}, err
		}
		p.ID = id
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	r.s.participants[p.ID] = p
	return p, nil
}
