package booking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"apptflow/internal/domain"
	"apptflow/internal/store"
)

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	return s.appts.GetByID(ctx, id)
}

// ListAll returns every appointment ordered by scheduled time descending,
// ties broken by customer id descending. The secondary sort keeps output
// deterministic without pagination.
func (s *Service) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	rows, err := s.appts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].ScheduledAt.Equal(rows[j].ScheduledAt) {
			return rows[i].ScheduledAt.After(rows[j].ScheduledAt)
		}
		return bytes.Compare(rows[i].CustomerID[:], rows[j].CustomerID[:]) > 0
	})
	return rows, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error) {
	if err := s.requireParticipant(ctx, "customer", customerID); err != nil {
		return nil, err
	}
	return s.appts.ListByCustomer(ctx, customerID)
}

func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error) {
	if err := s.requireParticipant(ctx, "provider", providerID); err != nil {
		return nil, err
	}
	return s.appts.ListByProvider(ctx, providerID)
}

func (s *Service) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Appointment, error) {
	if !status.Valid() {
		return nil, validationError("unknown status")
	}
	return s.appts.ListByStatus(ctx, status)
}

// ListUpcomingByCustomer returns the customer's future PENDING or
// CONFIRMED appointments, soonest first.
func (s *Service) ListUpcomingByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error) {
	if err := s.requireParticipant(ctx, "customer", customerID); err != nil {
		return nil, err
	}
	rows, err := s.appts.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return upcoming(rows, s.clock.Now()), nil
}

func (s *Service) ListUpcomingByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error) {
	if err := s.requireParticipant(ctx, "provider", providerID); err != nil {
		return nil, err
	}
	rows, err := s.appts.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return upcoming(rows, s.clock.Now()), nil
}

// ListPastByCustomer returns the customer's past appointments, most
// recent first.
func (s *Service) ListPastByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error) {
	if err := s.requireParticipant(ctx, "customer", customerID); err != nil {
		return nil, err
	}
	rows, err := s.appts.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return past(rows, s.clock.Now()), nil
}

func (s *Service) ListPastByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error) {
	if err := s.requireParticipant(ctx, "provider", providerID); err != nil {
		return nil, err
	}
	rows, err := s.appts.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return past(rows, s.clock.Now()), nil
}

// ListTodayByProvider returns the provider's appointments for the current
// day, earliest first.
func (s *Service) ListTodayByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error) {
	if err := s.requireParticipant(ctx, "provider", providerID); err != nil {
		return nil, err
	}
	rows, err := s.appts.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	out := make([]domain.Appointment, 0, len(rows))
	for _, a := range rows {
		if !a.ScheduledAt.Before(dayStart) && a.ScheduledAt.Before(dayEnd) {
			out = append(out, a)
		}
	}
	sortAscending(out)
	return out, nil
}

func (s *Service) ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error) {
	start = start.UTC()
	end = end.UTC()
	if !end.After(start) {
		return nil, validationError("end must be after start")
	}
	return s.appts.ListByDateRange(ctx, start, end)
}

// Search matches the keyword case-insensitively against customer name,
// provider name, service type and notes. An empty keyword matches
// everything.
func (s *Service) Search(ctx context.Context, keyword string) ([]domain.Appointment, error) {
	rows, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return rows, nil
	}

	names := make(map[uuid.UUID]string)
	name := func(id uuid.UUID) (string, error) {
		if n, ok := names[id]; ok {
			return n, nil
		}
		p, err := s.participants.Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				names[id] = ""
				return "", nil
			}
			return "", err
		}
		names[id] = p.Name
		return p.Name, nil
	}

	out := make([]domain.Appointment, 0, len(rows))
	for _, a := range rows {
		customerName, err := name(a.CustomerID)
		if err != nil {
			return nil, err
		}
		providerName, err := name(a.ProviderID)
		if err != nil {
			return nil, err
		}
		if strings.Contains(strings.ToLower(customerName), needle) ||
			strings.Contains(strings.ToLower(providerName), needle) ||
			strings.Contains(strings.ToLower(string(a.ServiceType)), needle) ||
			strings.Contains(strings.ToLower(a.Notes), needle) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Statistics is the aggregate status breakdown of the whole collection.
type Statistics struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// Statistics counts appointments by status. Computed from the live
// collection on every call; nothing is cached.
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	rows, err := s.appts.ListAll(ctx)
	if err != nil {
		return Statistics{}, err
	}
	return countByStatus(rows), nil
}

// StatsByProvider is the same breakdown scoped to one provider.
func (s *Service) StatsByProvider(ctx context.Context, providerID uuid.UUID) (Statistics, error) {
	if err := s.requireParticipant(ctx, "provider", providerID); err != nil {
		return Statistics{}, err
	}
	rows, err := s.appts.ListByProvider(ctx, providerID)
	if err != nil {
		return Statistics{}, err
	}
	return countByStatus(rows), nil
}

func (s *Service) CountByCustomer(ctx context.Context, customerID uuid.UUID) (int, error) {
	rows, err := s.ListByCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *Service) CountByProvider(ctx context.Context, providerID uuid.UUID) (int, error) {
	rows, err := s.ListByProvider(ctx, providerID)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *Service) requireParticipant(ctx context.Context, role string, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError(role + "_id is required")
	}
	if _, err := s.participants.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%s %s: %w", role, id, store.ErrNotFound)
		}
		return err
	}
	return nil
}

func countByStatus(rows []domain.Appointment) Statistics {
	stats := Statistics{Total: len(rows)}
	for _, a := range rows {
		switch a.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusConfirmed:
			stats.Confirmed++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

func upcoming(rows []domain.Appointment, now time.Time) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(rows))
	for _, a := range rows {
		if a.ScheduledAt.After(now) && (a.Status == domain.StatusPending || a.Status == domain.StatusConfirmed) {
			out = append(out, a)
		}
	}
	sortAscending(out)
	return out
}

func past(rows []domain.Appointment, now time.Time) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(rows))
	for _, a := range rows {
		if a.ScheduledAt.Before(now) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out
}

func sortAscending(rows []domain.Appointment) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ScheduledAt.Before(rows[j].ScheduledAt)
	})
}
