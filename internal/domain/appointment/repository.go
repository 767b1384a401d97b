package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error

	// GetByID returns ErrAppointmentNotFound if the appointment does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListByUser returns the user's appointments, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Appointment, error)

	// MarkCancelled flips the cancelled flag only if it is still false.
	// Returns ErrAlreadyCancelled when another request got there first.
	MarkCancelled(ctx context.Context, a *Appointment) error

	// SetPaymentOrder records the payment provider's order id.
	SetPaymentOrder(ctx context.Context, id uuid.UUID, orderID string) error

	MarkPaid(ctx context.Context, id uuid.UUID) error
}
