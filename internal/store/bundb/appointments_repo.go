package bundb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"apptflow/internal/domain"
	"apptflow/internal/store"
)

// TxLock acquires the per-provider exclusion scope for the duration of a
// booking transaction. The postgres adapter maps it onto an advisory
// transaction lock; the sqlite adapter onto an in-process mutex.
type TxLock interface {
	Acquire(ctx context.Context, tx bun.Tx, providerID uuid.UUID) (release func(), err error)
}

// AppointmentRepo implements store.AppointmentRepository on a bun.DB.
// Both SQL adapters share it and differ only in dialect, TxLock, and the
// driver error translation.
type AppointmentRepo struct {
	db     *bun.DB
	lock   TxLock
	mapErr func(error) error
}

// NewAppointmentRepo builds the repo. mapErr translates driver-specific
// constraint violations into store sentinels; nil leaves errors as-is.
func NewAppointmentRepo(db *bun.DB, lock TxLock, mapErr func(error) error) *AppointmentRepo {
	if mapErr == nil {
		mapErr = func(err error) error { return err }
	}
	return &AppointmentRepo{db: db, lock: lock, mapErr: mapErr}
}

type bookingTx struct {
	tx     bun.Tx
	mapErr func(error) error
}

func (r *AppointmentRepo) InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		release, err := r.lock.Acquire(ctx, tx, providerID)
		if err != nil {
			return err
		}
		defer release()
		return fn(ctx, bookingTx{tx: tx, mapErr: r.mapErr})
	})
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.db.NewUpdate().
		Model(&m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (r *AppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AppointmentRepo) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("customer_id = ?", customerID).
		OrderExpr("scheduled_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		OrderExpr("scheduled_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", status).
		OrderExpr("scheduled_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("scheduled_at >= ?", start).
		Where("scheduled_at <= ?", end).
		OrderExpr("scheduled_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", domain.StatusPending).
		Where("scheduled_at < ?", cutoff).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t bookingTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, t.mapErr(err)
	}
	return m, nil
}

func (t bookingTx) ListActiveInWindow(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := t.tx.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status != ?", domain.StatusCancelled).
		Where("scheduled_at >= ?", windowStart).
		Where("scheduled_at <= ?", windowEnd).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
