package service

import (
	"errors"
	"strings"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
)

var (
	ErrForbidden       = errors.New("forbidden: insufficient permissions")
	ErrUnauthenticated = errors.New("authentication required")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Caller identifies who triggered an operation, for audit purposes.
type Caller struct {
	Subject   string
	Role      domain.Role
	IP        string
	RequestID string
}

type AuditEntry struct {
	Caller       Caller
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      string
}
