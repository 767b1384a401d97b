package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Parvesbd02/doctor-backend/internal/config"
	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/domain/appointment"
	"github.com/Parvesbd02/doctor-backend/internal/repository"
	"github.com/Parvesbd02/doctor-backend/pkg/auth"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLen = 8

type AuthService struct {
	userRepo   repository.UserRepository
	jwtManager *auth.JWTManager
	admin      config.AdminConfig
	auditSvc   *AuditService
	log        *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	jwtManager *auth.JWTManager,
	admin config.AdminConfig,
	auditSvc *AuditService,
	log *zap.Logger,
) *AuthService {
	return &AuthService{userRepo: userRepo, jwtManager: jwtManager, admin: admin, auditSvc: auditSvc, log: log}
}

func (s *AuthService) Register(ctx context.Context, cmd *domain.RegisterUserCommand) (*domain.User, *domain.TokenPair, error) {
	if err := validateRegister(cmd); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &domain.User{
		Name:         strings.TrimSpace(cmd.Name),
		Email:        strings.ToLower(strings.TrimSpace(cmd.Email)),
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueUserTokens(u)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("user registered", zap.String("user_id", u.ID.String()))
	return u, pair, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, fmt.Errorf("loading user: %w", err)
		}
		// Burn a bcrypt round so response time does not reveal whether the email exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueUserTokens(user)
	if err != nil {
		return nil, nil, err
	}

	s.auditSvc.LogAsync(AuditEntry{
		Caller:       Caller{Subject: user.ID.String(), Role: domain.RoleUser, IP: ip},
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
	})

	return user, pair, nil
}

// AdminLogin checks the fixed administrator credentials from config.
func (s *AuthService) AdminLogin(email, password, ip string) (*domain.TokenPair, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(s.admin.Email))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	if !emailOK || !passOK || s.admin.Email == "" {
		s.log.Warn("failed admin login attempt", zap.String("ip", ip))
		return nil, ErrInvalidCredentials
	}

	pair, err := s.jwtManager.GenerateTokenPair(&domain.Claims{
		Subject: s.admin.Email,
		Email:   s.admin.Email,
		Role:    domain.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(AuditEntry{
		Caller:       Caller{Subject: s.admin.Email, Role: domain.RoleAdmin, IP: ip},
		Action:       domain.ActionLogin,
		ResourceType: "admin",
	})

	return pair, nil
}

// RefreshToken issues a new pair given a valid refresh token. User tokens are
// re-checked against the store so deleted users cannot refresh.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if claims.Role == domain.RoleAdmin {
		if !strings.EqualFold(claims.Subject, s.admin.Email) {
			return nil, ErrInvalidCredentials
		}
		return s.jwtManager.GenerateTokenPair(claims)
	}

	userID, ok := claims.UserID()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueUserTokens(user)
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile edits the caller's own profile. Appointments booked earlier
// keep the snapshot taken at booking time.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, cmd *domain.UpdateProfileCommand, caller Caller) (*domain.User, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	cmd.Name = strings.TrimSpace(cmd.Name)
	var errs []string
	if cmd.Name == "" {
		errs = append(errs, "name is required")
	}
	if cmd.DOB != "" && cmd.DOB != "Not Selected" {
		if _, err := time.Parse(appointment.SlotDateLayout, cmd.DOB); err != nil {
			errs = append(errs, "dob must be YYYY-MM-DD")
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	u, err := s.userRepo.UpdateProfile(ctx, userID, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(AuditEntry{
		Caller:       caller,
		Action:       domain.ActionUpdate,
		ResourceType: "user",
		ResourceID:   userID.String(),
	})
	return u, nil
}

func (s *AuthService) issueUserTokens(u *domain.User) (*domain.TokenPair, error) {
	pair, err := s.jwtManager.GenerateTokenPair(&domain.Claims{
		Subject: u.ID.String(),
		Email:   u.Email,
		Role:    domain.RoleUser,
	})
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}
	return pair, nil
}

func validateRegister(cmd *domain.RegisterUserCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(cmd.Email) == "" {
		errs = append(errs, "email is required")
	} else if _, err := mail.ParseAddress(cmd.Email); err != nil {
		errs = append(errs, "email is invalid")
	}
	if err := validatePasswordStrength(cmd.Password); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validatePasswordStrength(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}
