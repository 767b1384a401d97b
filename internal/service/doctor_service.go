package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
	"github.com/Parvesbd02/doctor-backend/internal/repository"
)

type DoctorService struct {
	store    repository.Store
	auditSvc *AuditService
	log      *zap.Logger
}

func NewDoctorService(store repository.Store, auditSvc *AuditService, log *zap.Logger) *DoctorService {
	return &DoctorService{store: store, auditSvc: auditSvc, log: log}
}

func (s *DoctorService) AddDoctor(ctx context.Context, cmd *doctor.CreateDoctorCommand, caller Caller) (*doctor.Doctor, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := validateCreateDoctor(cmd); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	d := &doctor.Doctor{
		Name:         strings.TrimSpace(cmd.Name),
		Email:        strings.ToLower(strings.TrimSpace(cmd.Email)),
		PasswordHash: string(hash),
		Image:        cmd.Image,
		Speciality:   strings.TrimSpace(cmd.Speciality),
		Degree:       cmd.Degree,
		Experience:   cmd.Experience,
		About:        cmd.About,
		Fees:         cmd.Fees,
		Address:      cmd.Address,
		Available:    true,
	}

	if err := s.store.Doctors().Create(ctx, d); err != nil {
		return nil, fmt.Errorf("creating doctor: %w", err)
	}

	s.auditSvc.LogAsync(AuditEntry{
		Caller:       caller,
		Action:       domain.ActionCreate,
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
	})

	s.log.Info("doctor added", zap.String("doctor_id", d.ID.String()))
	return d, nil
}

// ListDoctors returns every doctor. Public listings drop email addresses;
// password hashes are never serialized.
func (s *DoctorService) ListDoctors(ctx context.Context, public bool) ([]doctor.Doctor, error) {
	doctors, err := s.store.Doctors().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing doctors: %w", err)
	}
	out := make([]doctor.Doctor, 0, len(doctors))
	for _, d := range doctors {
		if public {
			out = append(out, d.Public())
		} else {
			out = append(out, *d)
		}
	}
	return out, nil
}

// ChangeAvailability bumps the doctor's version along with the flag, so a
// booking that read the old flag fails its ledger write and re-reads.
func (s *DoctorService) ChangeAvailability(ctx context.Context, doctorID uuid.UUID, available bool, caller Caller) (*doctor.Doctor, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	d, err := s.store.Doctors().SetAvailability(ctx, doctorID, available)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "doctor",
		ResourceID:   doctorID.String(),
		Changes:      fmt.Sprintf(`{"available":%t}`, available),
	})

	return d, nil
}

func validateCreateDoctor(cmd *doctor.CreateDoctorCommand) error {
	var errs []string

	required := []struct {
		field string
		value string
	}{
		{"name", cmd.Name},
		{"email", cmd.Email},
		{"password", cmd.Password},
		{"speciality", cmd.Speciality},
		{"degree", cmd.Degree},
		{"experience", cmd.Experience},
		{"about", cmd.About},
		{"address", cmd.Address},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.field+" is required")
		}
	}

	if cmd.Email != "" {
		if _, err := mail.ParseAddress(cmd.Email); err != nil {
			errs = append(errs, "email is invalid")
		}
	}
	if cmd.Password != "" {
		if err := validatePasswordStrength(cmd.Password); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if cmd.Fees <= 0 {
		errs = append(errs, "fees must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
