package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAlreadyCancelled    = errors.New("appointment is already cancelled")
	ErrPaymentNotStarted   = errors.New("no payment order exists for this appointment")
	ErrPaymentPending      = errors.New("payment has not been captured yet")
	ErrAlreadyPaid         = errors.New("appointment is already paid")
)
