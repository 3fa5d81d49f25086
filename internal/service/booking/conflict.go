package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"apptflow/internal/store"
)

// hasConflict reports whether the provider already holds a non-cancelled
// appointment within [proposed-before, proposed+after]. Pure read; the
// caller supplies the transaction that makes check-then-insert atomic.
func hasConflict(ctx context.Context, tx store.BookingTx, providerID uuid.UUID, proposed time.Time, before, after time.Duration) (bool, error) {
	rows, err := tx.ListActiveInWindow(ctx, providerID, proposed.Add(-before), proposed.Add(after))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
