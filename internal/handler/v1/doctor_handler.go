package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/domain/doctor"
	"github.com/Parvesbd02/doctor-backend/internal/service"
)

type DoctorHandler struct {
	doctorSvc *service.DoctorService
	log       *zap.Logger
}

func NewDoctorHandler(doctorSvc *service.DoctorService, log *zap.Logger) *DoctorHandler {
	return &DoctorHandler{doctorSvc: doctorSvc, log: log}
}

type addDoctorRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Image      string  `json:"image"`
	Speciality string  `json:"speciality"`
	Degree     string  `json:"degree"`
	Experience string  `json:"experience"`
	About      string  `json:"about"`
	Fees       float64 `json:"fees"`
	Address    string  `json:"address"`
}

type changeAvailabilityRequest struct {
	DoctorID     string `json:"doctorId"`
	Availability *bool  `json:"availability"`
}

// PublicList serves the unauthenticated doctor directory.
func (h *DoctorHandler) PublicList(c *gin.Context) {
	h.list(c, true)
}

func (h *DoctorHandler) AdminList(c *gin.Context) {
	h.list(c, false)
}

func (h *DoctorHandler) list(c *gin.Context, public bool) {
	doctors, err := h.doctorSvc.ListDoctors(c.Request.Context(), public)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "", doctors)
}

func (h *DoctorHandler) Add(c *gin.Context) {
	var req addDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.doctorSvc.AddDoctor(c.Request.Context(), &doctor.CreateDoctorCommand{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Image:      req.Image,
		Speciality: req.Speciality,
		Degree:     req.Degree,
		Experience: req.Experience,
		About:      req.About,
		Fees:       req.Fees,
		Address:    req.Address,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, "doctor added", d)
}

func (h *DoctorHandler) ChangeAvailability(c *gin.Context) {
	var req changeAvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Availability == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Code:    codeValidation,
			Fields:  []string{"availability is required"},
		})
		return
	}
	doctorID, ok := parseBodyUUID(c, "doctorId", req.DoctorID)
	if !ok {
		return
	}

	d, err := h.doctorSvc.ChangeAvailability(c.Request.Context(), doctorID, *req.Availability, callerFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "availability updated", gin.H{"available": d.Available})
}
