package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/domain/appointment"
	"github.com/Parvesbd02/doctor-backend/internal/service"
)

type AppointmentHandler struct {
	bookingSvc *service.BookingService
	log        *zap.Logger
}

func NewAppointmentHandler(bookingSvc *service.BookingService, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{bookingSvc: bookingSvc, log: log}
}

type bookAppointmentRequest struct {
	DoctorID string `json:"doctorId"`
	// DocID is the field name older clients send.
	DocID    string `json:"docId"`
	SlotDate string `json:"slotDate"`
	SlotTime string `json:"slotTime"`
}

type cancelAppointmentRequest struct {
	AppointmentID string `json:"appointmentId"`
}

func (h *AppointmentHandler) Book(c *gin.Context) {
	var req bookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	raw := req.DoctorID
	if raw == "" {
		raw = req.DocID
	}
	doctorID, ok := parseBodyUUID(c, "doctorId", raw)
	if !ok {
		return
	}

	appt, err := h.bookingSvc.BookAppointment(c.Request.Context(), &appointment.BookAppointmentCommand{
		UserID:   userIDFrom(c),
		DoctorID: doctorID,
		SlotDate: req.SlotDate,
		SlotTime: req.SlotTime,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, "appointment booked", appt)
}

func (h *AppointmentHandler) List(c *gin.Context) {
	appts, err := h.bookingSvc.ListUserAppointments(c.Request.Context(), userIDFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "", appts)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req cancelAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	appointmentID, ok := parseBodyUUID(c, "appointmentId", req.AppointmentID)
	if !ok {
		return
	}

	appt, err := h.bookingSvc.CancelAppointment(c.Request.Context(), &appointment.CancelAppointmentCommand{
		AppointmentID: appointmentID,
		CancelledBy:   userIDFrom(c),
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "appointment cancelled", appt)
}
