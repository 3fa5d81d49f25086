package bundb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"apptflow/internal/domain"
	"apptflow/internal/store"
)

// ParticipantRepo implements store.ParticipantRepository on a bun.DB.
type ParticipantRepo struct {
	db *bun.DB
}

func NewParticipantRepo(db *bun.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

func (r *ParticipantRepo) Get(ctx context.Context, id uuid.UUID) (domain.Participant, error) {
	var p domain.Participant
	err := r.db.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Participant{}, store.ErrNotFound
		}
		return domain.Participant{}, err
	}
	return p, nil
}

func (r *ParticipantRepo) Create(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	m := p
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Participant{}, err
	}
	return m, nil
}
