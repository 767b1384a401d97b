package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
	"github.com/Parvesbd02/doctor-backend/internal/repository"
	"github.com/Parvesbd02/doctor-backend/pkg/lock"
	"github.com/Parvesbd02/doctor-backend/pkg/metrics"
)

// LedgerMutation edits ledger in place and reports whether it changed. It runs
// inside the transaction that will persist the ledger, so any other writes it
// makes through tx commit or roll back together with the ledger.
type LedgerMutation func(ctx context.Context, tx repository.Store, d *doctor.Doctor, ledger doctor.SlotLedger) (changed bool, err error)

// SlotLedgerService owns every read-modify-write of a doctor's booked slots.
// Writers take the per-doctor lock, then commit with a version check; a stale
// version restarts the attempt from a fresh read.
type SlotLedgerService struct {
	store       repository.Store
	locker      lock.Locker
	metrics     *metrics.Collector
	log         *zap.Logger
	maxAttempts int
}

func NewSlotLedgerService(
	store repository.Store,
	locker lock.Locker,
	m *metrics.Collector,
	maxAttempts int,
	log *zap.Logger,
) *SlotLedgerService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &SlotLedgerService{store: store, locker: locker, metrics: m, log: log, maxAttempts: maxAttempts}
}

func (s *SlotLedgerService) IsBooked(ctx context.Context, doctorID uuid.UUID, slotDate, slotTime string) (bool, error) {
	d, err := s.store.Doctors().GetByID(ctx, doctorID)
	if err != nil {
		return false, err
	}
	return d.Ledger().IsBooked(slotDate, slotTime), nil
}

// Reserve books the slot or fails with doctor.ErrSlotConflict.
func (s *SlotLedgerService) Reserve(ctx context.Context, doctorID uuid.UUID, slotDate, slotTime string) error {
	return s.Mutate(ctx, doctorID, func(_ context.Context, _ repository.Store, _ *doctor.Doctor, ledger doctor.SlotLedger) (bool, error) {
		if !ledger.Reserve(slotDate, slotTime) {
			return false, doctor.ErrSlotConflict
		}
		return true, nil
	})
}

// Release frees the slot. Releasing a free slot is a no-op and reports false.
func (s *SlotLedgerService) Release(ctx context.Context, doctorID uuid.UUID, slotDate, slotTime string) (bool, error) {
	var released bool
	err := s.Mutate(ctx, doctorID, func(_ context.Context, _ repository.Store, _ *doctor.Doctor, ledger doctor.SlotLedger) (bool, error) {
		released = ledger.Release(slotDate, slotTime)
		return released, nil
	})
	return released, err
}

// Mutate runs fn against the doctor's current ledger under the doctor lock and
// inside one transaction.
func (s *SlotLedgerService) Mutate(ctx context.Context, doctorID uuid.UUID, fn LedgerMutation) error {
	waitStart := time.Now()
	release, err := s.locker.Acquire(ctx, lockKey(doctorID))
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return fmt.Errorf("%w: %w", doctor.ErrLedgerBusy, err)
		}
		return fmt.Errorf("locking doctor %s: %w", doctorID, err)
	}
	defer release()
	s.metrics.LockWaitDuration.Observe(time.Since(waitStart).Seconds())

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.store.WithinTx(ctx, func(tx repository.Store) error {
			d, err := tx.Doctors().GetByID(ctx, doctorID)
			if err != nil {
				return err
			}

			ledger := d.Ledger()
			changed, err := fn(ctx, tx, d, ledger)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			return tx.Doctors().SaveLedger(ctx, d.ID, d.Version, ledger)
		})
		if !errors.Is(err, doctor.ErrStaleLedger) {
			return err
		}

		s.metrics.LedgerRetries.Inc()
		s.log.Debug("doctor ledger changed underneath, retrying",
			zap.String("doctor_id", doctorID.String()),
			zap.Int("attempt", attempt),
		)
	}

	return doctor.ErrLedgerBusy
}

func lockKey(doctorID uuid.UUID) string {
	return "doctor:" + doctorID.String()
}
