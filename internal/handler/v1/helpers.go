package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/domain/appointment"
	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
	"github.com/Parvesbd02/doctor-backend/internal/middleware"
	"github.com/Parvesbd02/doctor-backend/internal/service"
	"github.com/Parvesbd02/doctor-backend/pkg/payment"
)

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Fields  []string `json:"fields,omitempty"`
}

const (
	codeValidation        = "VALIDATION_ERROR"
	codeUnauthenticated   = "UNAUTHENTICATED"
	codeInvalidCreds      = "INVALID_CREDENTIALS"
	codeForbidden         = "FORBIDDEN"
	codeNotFound          = "NOT_FOUND"
	codeSlotConflict      = "SLOT_CONFLICT"
	codeAlreadyCancelled  = "ALREADY_CANCELLED"
	codeLedgerBusy        = "LEDGER_BUSY"
	codeDoctorUnavailable = "DOCTOR_UNAVAILABLE"
	codeConflict          = "CONFLICT"
	codeAlreadyPaid       = "ALREADY_PAID"
	codePaymentState      = "PAYMENT_NOT_COMPLETED"
	codePaymentsDisabled  = "PAYMENTS_DISABLED"
	codeInternal          = "INTERNAL_ERROR"
)

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Message: message, Code: code})
}

// respondServiceError maps a service error onto status, code and a message
// that is safe to show. Unknown errors are logged and reported as 500.
func respondServiceError(c *gin.Context, log *zap.Logger, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Code:    codeValidation,
			Fields:  validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, codeUnauthenticated, "authentication required")

	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, codeInvalidCreds, "invalid credentials")

	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, codeForbidden, "access denied")

	case errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, err.Error())

	case errors.Is(err, doctor.ErrSlotConflict):
		respondError(c, http.StatusConflict, codeSlotConflict, "slot not available")

	case errors.Is(err, appointment.ErrAlreadyCancelled):
		respondError(c, http.StatusConflict, codeAlreadyCancelled, err.Error())

	case errors.Is(err, doctor.ErrLedgerBusy):
		respondError(c, http.StatusConflict, codeLedgerBusy, "doctor schedule is busy, try again")

	case errors.Is(err, appointment.ErrAlreadyPaid):
		respondError(c, http.StatusConflict, codeAlreadyPaid, err.Error())

	case errors.Is(err, domain.ErrEmailAlreadyRegistered),
		errors.Is(err, doctor.ErrDoctorAlreadyExists):
		respondError(c, http.StatusConflict, codeConflict, err.Error())

	case errors.Is(err, doctor.ErrDoctorUnavailable):
		respondError(c, http.StatusUnprocessableEntity, codeDoctorUnavailable, "doctor not available")

	case errors.Is(err, appointment.ErrPaymentNotStarted),
		errors.Is(err, appointment.ErrPaymentPending):
		respondError(c, http.StatusBadRequest, codePaymentState, err.Error())

	case errors.Is(err, payment.ErrDisabled):
		respondError(c, http.StatusServiceUnavailable, codePaymentsDisabled, "online payments are not configured")

	default:
		log.Error("request failed",
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid request: "+err.Error())
		return false
	}
	return true
}

func parseBodyUUID(c *gin.Context, field, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Code:    codeValidation,
			Fields:  []string{field + " must be a valid UUID"},
		})
		return uuid.Nil, false
	}
	return id, true
}

// callerFrom builds the audit identity from the claims set by the gate.
func callerFrom(c *gin.Context) service.Caller {
	caller := service.Caller{
		IP:        c.ClientIP(),
		RequestID: middleware.RequestIDFrom(c),
	}
	if claims, ok := middleware.ClaimsFrom(c); ok {
		caller.Subject = claims.Subject
		caller.Role = claims.Role
	}
	return caller
}

// userIDFrom returns uuid.Nil when the request carries no user token; the
// services turn that into ErrUnauthenticated.
func userIDFrom(c *gin.Context) uuid.UUID {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return uuid.Nil
	}
	id, _ := claims.UserID()
	return id
}
