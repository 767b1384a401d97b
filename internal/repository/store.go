package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Parvesbd02/doctor-backend/internal/domain/appointment"
	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
)

// Store groups the repositories that must move together inside one transaction.
type Store interface {
	Doctors() doctor.Repository
	Appointments() appointment.Repository
	Users() UserRepository

	// WithinTx runs fn against repositories bound to a single transaction.
	// Returning an error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Doctors() doctor.Repository {
	return NewGormDoctorRepository(s.db)
}

func (s *GormStore) Appointments() appointment.Repository {
	return NewGormAppointmentRepository(s.db)
}

func (s *GormStore) Users() UserRepository {
	return NewGormUserRepository(s.db)
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
