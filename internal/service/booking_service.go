package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/domain/appointment"
	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
	"github.com/Parvesbd02/doctor-backend/internal/repository"
	"github.com/Parvesbd02/doctor-backend/pkg/metrics"
)

const maxSlotTimeLen = 32

type BookingService struct {
	store    repository.Store
	ledger   *SlotLedgerService
	auditSvc *AuditService
	metrics  *metrics.Collector
	tracer   trace.Tracer
	log      *zap.Logger
	now      func() time.Time
}

func NewBookingService(
	store repository.Store,
	ledger *SlotLedgerService,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		store:    store,
		ledger:   ledger,
		auditSvc: auditSvc,
		metrics:  m,
		tracer:   otel.Tracer("github.com/Parvesbd02/doctor-backend/internal/service"),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BookAppointment reserves the slot and creates the appointment in one
// transaction. Nothing is written unless every precondition holds.
func (s *BookingService) BookAppointment(ctx context.Context, cmd *appointment.BookAppointmentCommand, caller Caller) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.BookAppointment", trace.WithAttributes(
		attribute.String("doctor.id", cmd.DoctorID.String()),
		attribute.String("slot.date", cmd.SlotDate),
		attribute.String("slot.time", cmd.SlotTime),
	))
	defer span.End()

	if cmd.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	cmd.SlotDate = strings.TrimSpace(cmd.SlotDate)
	cmd.SlotTime = strings.TrimSpace(cmd.SlotTime)
	if err := validateBookCommand(cmd); err != nil {
		return nil, err
	}

	var booked *appointment.Appointment
	err := s.ledger.Mutate(ctx, cmd.DoctorID, func(ctx context.Context, tx repository.Store, d *doctor.Doctor, ledger doctor.SlotLedger) (bool, error) {
		if !d.Available {
			return false, doctor.ErrDoctorUnavailable
		}
		if !ledger.Reserve(cmd.SlotDate, cmd.SlotTime) {
			return false, doctor.ErrSlotConflict
		}

		u, err := tx.Users().GetByID(ctx, cmd.UserID)
		if err != nil {
			return false, err
		}

		a := appointment.New(u, d, cmd.SlotDate, cmd.SlotTime)
		a.CreatedAt = s.now()
		if err := tx.Appointments().Create(ctx, a); err != nil {
			return false, fmt.Errorf("creating appointment: %w", err)
		}
		booked = a
		return true, nil
	})

	s.metrics.BookingsTotal.WithLabelValues(bookingOutcome(err)).Inc()
	if err != nil {
		if bookingOutcome(err) == metrics.OutcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, "booking failed")
			s.log.Error("failed to book appointment",
				zap.String("doctor_id", cmd.DoctorID.String()),
				zap.String("user_id", cmd.UserID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.auditSvc.LogAsync(AuditEntry{
		Caller:       caller,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   booked.ID.String(),
		Changes:      fmt.Sprintf(`{"doctor_id":%q,"slot_date":%q,"slot_time":%q}`, booked.DoctorID, booked.SlotDate, booked.SlotTime),
	})

	s.log.Info("appointment booked",
		zap.String("appointment_id", booked.ID.String()),
		zap.String("doctor_id", booked.DoctorID.String()),
		zap.String("user_id", booked.UserID.String()),
	)

	return booked, nil
}

func (s *BookingService) ListUserAppointments(ctx context.Context, userID uuid.UUID) ([]*appointment.Appointment, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.store.Appointments().ListByUser(ctx, userID)
}

// CancelAppointment flags the appointment cancelled and frees its slot in the
// same transaction. Only the user who booked it may cancel.
func (s *BookingService) CancelAppointment(ctx context.Context, cmd *appointment.CancelAppointmentCommand, caller Caller) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "BookingService.CancelAppointment", trace.WithAttributes(
		attribute.String("appointment.id", cmd.AppointmentID.String()),
	))
	defer span.End()

	if cmd.CancelledBy == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	a, err := s.store.Appointments().GetByID(ctx, cmd.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsOwnedBy(cmd.CancelledBy) {
		return nil, ErrForbidden
	}
	if a.Cancelled {
		return nil, appointment.ErrAlreadyCancelled
	}

	var released bool
	err = s.ledger.Mutate(ctx, a.DoctorID, func(ctx context.Context, tx repository.Store, _ *doctor.Doctor, ledger doctor.SlotLedger) (bool, error) {
		current, err := tx.Appointments().GetByID(ctx, a.ID)
		if err != nil {
			return false, err
		}
		if err := current.Cancel(s.now()); err != nil {
			return false, err
		}
		if err := tx.Appointments().MarkCancelled(ctx, current); err != nil {
			return false, err
		}
		released = ledger.Release(current.SlotDate, current.SlotTime)
		a = current
		return released, nil
	})
	if err != nil {
		if !errors.Is(err, appointment.ErrAlreadyCancelled) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancellation failed")
			s.log.Error("failed to cancel appointment",
				zap.String("appointment_id", cmd.AppointmentID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if !released {
		s.log.Warn("cancelled appointment had no ledger entry",
			zap.String("appointment_id", a.ID.String()),
			zap.String("doctor_id", a.DoctorID.String()),
		)
	}
	s.metrics.CancellationsTotal.Inc()

	s.auditSvc.LogAsync(AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		Changes:      `{"cancelled":true}`,
	})

	return a, nil
}

func validateBookCommand(cmd *appointment.BookAppointmentCommand) error {
	var errs []string

	if cmd.DoctorID == uuid.Nil {
		errs = append(errs, "doctorId is required")
	}
	if cmd.SlotDate == "" {
		errs = append(errs, "slotDate is required")
	} else if _, err := time.Parse(appointment.SlotDateLayout, cmd.SlotDate); err != nil {
		errs = append(errs, "slotDate must use the YYYY-MM-DD format")
	}
	if cmd.SlotTime == "" {
		errs = append(errs, "slotTime is required")
	} else if len(cmd.SlotTime) > maxSlotTimeLen {
		errs = append(errs, fmt.Sprintf("slotTime must be at most %d characters", maxSlotTimeLen))
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, doctor.ErrSlotConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, doctor.ErrDoctorUnavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, doctor.ErrDoctorNotFound), errors.Is(err, domain.ErrUserNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, doctor.ErrLedgerBusy):
		return metrics.OutcomeBusy
	default:
		return metrics.OutcomeError
	}
}
