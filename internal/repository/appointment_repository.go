package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Parvesbd02/doctor-backend/internal/domain/appointment"
	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
)

type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

// Create maps a hit on the live-slot unique index to doctor.ErrSlotConflict.
func (r *GormAppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return doctor.ErrSlotConflict
		}
		return err
	}
	return nil
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAppointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*appointment.Appointment, error) {
	appointments := make([]*appointment.Appointment, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *GormAppointmentRepository) MarkCancelled(ctx context.Context, a *appointment.Appointment) error {
	cancelledAt := time.Now().UTC()
	if a.CancelledAt != nil {
		cancelledAt = *a.CancelledAt
	}
	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND cancelled = ?", a.ID, false).
		Updates(map[string]any{
			"cancelled":    true,
			"cancelled_at": cancelledAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAlreadyCancelled
	}
	return nil
}

func (r *GormAppointmentRepository) SetPaymentOrder(ctx context.Context, id uuid.UUID, orderID string) error {
	return r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ?", id).
		Update("payment_order_id", orderID).
		Error
}

// MarkPaid flips payment on a live, unpaid appointment. When nothing matches,
// the row is re-read to report why.
func (r *GormAppointmentRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND payment = ? AND cancelled = ?", id, false, false).
		Update("payment", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Cancelled {
		return appointment.ErrAlreadyCancelled
	}
	return appointment.ErrAlreadyPaid
}
