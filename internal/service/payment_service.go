package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/domain/appointment"
	"github.com/Parvesbd02/doctor-backend/internal/repository"
	"github.com/Parvesbd02/doctor-backend/pkg/payment"
)

type PaymentService struct {
	store    repository.Store
	gateway  payment.Gateway
	currency string
	auditSvc *AuditService
	log      *zap.Logger
}

func NewPaymentService(store repository.Store, gateway payment.Gateway, currency string, auditSvc *AuditService, log *zap.Logger) *PaymentService {
	return &PaymentService{store: store, gateway: gateway, currency: currency, auditSvc: auditSvc, log: log}
}

// CreateOrder opens a provider order for the appointment fee.
func (s *PaymentService) CreateOrder(ctx context.Context, userID, appointmentID uuid.UUID) (*payment.Order, error) {
	a, err := s.payableAppointment(ctx, userID, appointmentID)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, a.ID.String(), a.Amount, s.currency)
	if err != nil {
		return nil, fmt.Errorf("creating payment order: %w", err)
	}

	if err := s.store.Appointments().SetPaymentOrder(ctx, a.ID, order.ID); err != nil {
		return nil, fmt.Errorf("recording payment order: %w", err)
	}

	s.log.Info("payment order created",
		zap.String("appointment_id", a.ID.String()),
		zap.String("order_id", order.ID),
	)
	return order, nil
}

// VerifyPayment asks the provider whether the appointment's order was paid and
// records it.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID, appointmentID uuid.UUID, caller Caller) (*appointment.Appointment, error) {
	a, err := s.payableAppointment(ctx, userID, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.PaymentOrderID == "" {
		return nil, appointment.ErrPaymentNotStarted
	}

	order, err := s.gateway.FetchOrder(ctx, a.PaymentOrderID)
	if err != nil {
		return nil, fmt.Errorf("fetching payment order: %w", err)
	}
	if order.Status != payment.OrderPaid {
		return nil, appointment.ErrPaymentPending
	}

	if err := s.store.Appointments().MarkPaid(ctx, a.ID); err != nil {
		return nil, err
	}
	a.Payment = true

	s.auditSvc.LogAsync(AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		Changes:      `{"payment":true}`,
	})
	return a, nil
}

func (s *PaymentService) payableAppointment(ctx context.Context, userID, appointmentID uuid.UUID) (*appointment.Appointment, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	a, err := s.store.Appointments().GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsOwnedBy(userID) {
		return nil, ErrForbidden
	}
	if a.Cancelled {
		return nil, appointment.ErrAlreadyCancelled
	}
	if a.Payment {
		return nil, appointment.ErrAlreadyPaid
	}
	return a, nil
}
