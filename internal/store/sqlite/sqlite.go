package sqlite

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"apptflow/internal/domain"
	"apptflow/internal/store/bundb"
)

// InMemoryDSN opens a private in-memory database shared across the
// process's connections. Used by the test harness and local runs.
const InMemoryDSN = "file::memory:?cache=shared"

func Open(dsn string) (*bun.DB, error) {
	if dsn == "" {
		dsn = InMemoryDSN
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers itself; a single connection avoids
	// table-lock errors under concurrent transactions.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// Migrate creates the appointment and participant tables when absent.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*domain.Participant)(nil),
		(*domain.Appointment)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// NewAppointmentRepo builds the shared bun repository with in-process
// per-provider locking; sqlite has no advisory locks and the store runs
// single-process.
func NewAppointmentRepo(db *bun.DB) *bundb.AppointmentRepo {
	return bundb.NewAppointmentRepo(db, newProviderTxLock(), nil)
}

func NewParticipantRepo(db *bun.DB) *bundb.ParticipantRepo {
	return bundb.NewParticipantRepo(db)
}

type providerTxLock struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newProviderTxLock() *providerTxLock {
	return &providerTxLock{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *providerTxLock) Acquire(ctx context.Context, tx bun.Tx, providerID uuid.UUID) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[providerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[providerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
