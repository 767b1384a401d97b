package doctor

import "errors"

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrDoctorAlreadyExists = errors.New("doctor with this email already exists")
	ErrDoctorUnavailable   = errors.New("doctor is not available for booking")
	ErrSlotConflict        = errors.New("slot is already booked")

	// ErrStaleLedger means the doctor row changed between read and write.
	ErrStaleLedger = errors.New("doctor ledger was modified concurrently")

	// ErrLedgerBusy is returned once optimistic retries are exhausted.
	ErrLedgerBusy = errors.New("doctor schedule is busy, please retry")
)
