package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"apptflow/internal/clock"
	"apptflow/internal/store"
)

const defaultInterval = time.Hour

// Sweeper reclaims appointments left PENDING past their scheduled time.
// It runs on a ticker owned by the process and can also be invoked on
// demand from a trust boundary event such as a login.
type Sweeper struct {
	appts    store.AppointmentRepository
	clock    clock.Clock
	log      *slog.Logger
	interval time.Duration
}

func NewSweeper(appts store.AppointmentRepository, clk clock.Clock, log *slog.Logger, interval time.Duration) *Sweeper {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{
		appts:    appts,
		clock:    clk,
		log:      log.With(slog.String("component", "cleanup.sweeper")),
		interval: interval,
	}
}

// Sweep deletes expired PENDING appointments and returns how many were
// removed. Best effort: a record that is already gone is skipped, and a
// failure on one record does not abort the rest.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	expired, err := s.appts.ListExpiredPending(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, appt := range expired {
		if err := s.appts.Delete(ctx, appt.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Raced with a concurrent delete; already gone.
				continue
			}
			s.log.Error(
				"expired appointment delete failed",
				slog.Any("err", err),
				slog.String("appointment_id", appt.ID.String()),
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info("removed expired unconfirmed appointments", slog.Int("count", removed))
	}
	return removed, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("cleanup sweeper started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("cleanup sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("sweep failed", slog.Any("err", err))
			}
		}
	}
}
