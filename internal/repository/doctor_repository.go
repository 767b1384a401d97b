package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
)

type GormDoctorRepository struct {
	db *gorm.DB
}

func NewGormDoctorRepository(db *gorm.DB) *GormDoctorRepository {
	return &GormDoctorRepository{db: db}
}

func (r *GormDoctorRepository) Create(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return doctor.ErrDoctorAlreadyExists
		}
		return err
	}
	return nil
}

func (r *GormDoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	var d doctor.Doctor
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *GormDoctorRepository) List(ctx context.Context) ([]*doctor.Doctor, error) {
	var doctors []*doctor.Doctor
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *GormDoctorRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*doctor.Doctor, error) {
	res := r.db.WithContext(ctx).
		Model(&doctor.Doctor{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"available": available,
			"version":   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, doctor.ErrDoctorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *GormDoctorRepository) SaveLedger(ctx context.Context, id uuid.UUID, expectedVersion int64, ledger doctor.SlotLedger) error {
	res := r.db.WithContext(ctx).
		Model(&doctor.Doctor{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"slots_booked": datatypes.NewJSONType(ledger),
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return doctor.ErrStaleLedger
	}
	return nil
}
