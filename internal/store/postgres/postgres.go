package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"apptflow/internal/store"
	"apptflow/internal/store/bundb"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func Open(databaseURL string, pool PoolConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// NewAppointmentRepo builds the shared bun repository with postgres
// advisory locking for the per-provider booking scope.
func NewAppointmentRepo(db *bun.DB) *bundb.AppointmentRepo {
	return bundb.NewAppointmentRepo(db, advisoryTxLock{}, mapPgError)
}

// mapPgError turns constraint violations raised by the database into the
// store's conflict sentinel. Unique and exclusion violations both mean a
// competing booking won.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23P01":
			return store.ErrConflict
		}
	}
	return err
}

func NewParticipantRepo(db *bun.DB) *bundb.ParticipantRepo {
	return bundb.NewParticipantRepo(db)
}

// advisoryTxLock serializes booking transactions per provider. The lock
// is released by postgres when the transaction ends.
type advisoryTxLock struct{}

func (advisoryTxLock) Acquire(ctx context.Context, tx bun.Tx, providerID uuid.UUID) (func(), error) {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID.String()).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return func() {}, nil
}
