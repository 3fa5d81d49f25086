package store

import (
	"context"

	"github.com/google/uuid"

	"apptflow/internal/domain"
)

// ParticipantRepository reads participant records. The booking core only
// needs existence, the provider capability, and display info; Create is
// provided for seeding and tests.
type ParticipantRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Participant, error)
	Create(ctx context.Context, p domain.Participant) (domain.Participant, error)
}
