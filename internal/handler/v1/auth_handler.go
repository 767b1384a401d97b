package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/domain"
	"github.com/Parvesbd02/doctor-backend/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
	log     *zap.Logger
}

func NewAuthHandler(authSvc *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, log: log}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type updateProfileRequest struct {
	Name    string         `json:"name"`
	Phone   string         `json:"phone"`
	Address domain.Address `json:"address"`
	Gender  string         `json:"gender"`
	DOB     string         `json:"dob"`
	Image   string         `json:"image"`
}

type authResult struct {
	*domain.TokenPair
	User *domain.User `json:"user,omitempty"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	user, pair, err := h.authSvc.Register(c.Request.Context(), &domain.RegisterUserCommand{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, "registered", authResult{TokenPair: pair, User: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, pair, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "logged in", authResult{TokenPair: pair, User: user})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "token refreshed", authResult{TokenPair: pair})
}

func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authSvc.AdminLogin(req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "logged in", authResult{TokenPair: pair})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.authSvc.GetProfile(c.Request.Context(), userIDFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "", user)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authSvc.UpdateProfile(c.Request.Context(), userIDFrom(c), &domain.UpdateProfileCommand{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Gender:  req.Gender,
		DOB:     req.DOB,
		Image:   req.Image,
	}, callerFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, "profile updated", user)
}
