package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/service"
)

type PaymentHandler struct {
	paymentSvc *service.PaymentService
	log        *zap.Logger
}

func NewPaymentHandler(paymentSvc *service.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, log: log}
}

type paymentRequest struct {
	AppointmentID string `json:"appointmentId"`
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	appointmentID, ok := parseBodyUUID(c, "appointmentId", req.AppointmentID)
	if !ok {
		return
	}

	order, err := h.paymentSvc.CreateOrder(c.Request.Context(), userIDFrom(c), appointmentID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "payment order created", order)
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	appointmentID, ok := parseBodyUUID(c, "appointmentId", req.AppointmentID)
	if !ok {
		return
	}

	appt, err := h.paymentSvc.VerifyPayment(c.Request.Context(), userIDFrom(c), appointmentID, callerFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "payment successful", appt)
}
