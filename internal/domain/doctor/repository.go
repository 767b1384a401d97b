package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new doctor. Returns ErrDoctorAlreadyExists on duplicate email.
	Create(ctx context.Context, d *Doctor) error

	// GetByID returns ErrDoctorNotFound if the doctor does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	List(ctx context.Context) ([]*Doctor, error)

	// SetAvailability flips the available flag and bumps the version.
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*Doctor, error)

	// SaveLedger writes the ledger only if the stored version still equals
	// expectedVersion. Returns ErrStaleLedger otherwise.
	SaveLedger(ctx context.Context, id uuid.UUID, expectedVersion int64, ledger SlotLedger) error
}
