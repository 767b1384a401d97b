package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/config"
	"github.com/Parvesbd02/doctor-backend/internal/middleware"
	"github.com/Parvesbd02/doctor-backend/pkg/metrics"
)

type RouterDeps struct {
	Auth         *AuthHandler
	Appointments *AppointmentHandler
	Doctors      *DoctorHandler
	Payments     *PaymentHandler

	Tokens  middleware.TokenValidator
	Metrics *metrics.Collector
	CORS    config.CORSConfig
	Limits  config.RateLimitConfig
	Log     *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Log),
		middleware.Logger(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.CORS(d.CORS),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	globalLimit := middleware.NewIPRateLimiter(middleware.PerSecond(d.Limits.RequestsPerSecond), d.Limits.BurstSize)
	authLimit := middleware.NewIPRateLimiter(middleware.PerMinute(d.Limits.AuthRequestsPerMinute), max(1, d.Limits.AuthRequestsPerMinute/6))
	authRate := middleware.RateLimit(authLimit)

	requireUser := middleware.RequireUser(d.Tokens, d.Log)
	requireAdmin := middleware.RequireAdmin(d.Tokens, d.Log)

	api := r.Group("/api", middleware.RateLimit(globalLimit))

	user := api.Group("/user")
	{
		user.POST("/register", authRate, d.Auth.Register)
		user.POST("/login", authRate, d.Auth.Login)
		user.POST("/refresh", authRate, d.Auth.Refresh)

		user.GET("/get-profile", requireUser, d.Auth.GetProfile)
		user.POST("/update-profile", requireUser, d.Auth.UpdateProfile)
		user.POST("/book-appointment", requireUser, d.Appointments.Book)
		user.GET("/appointments", requireUser, d.Appointments.List)
		user.POST("/appointments", requireUser, d.Appointments.List)
		user.POST("/cancel-appointment", requireUser, d.Appointments.Cancel)
		user.POST("/payment-razorpay", requireUser, d.Payments.CreateOrder)
		user.POST("/verify-razorpay", requireUser, d.Payments.Verify)
	}

	api.GET("/doctor/list", d.Doctors.PublicList)

	admin := api.Group("/admin")
	{
		admin.POST("/login", authRate, d.Auth.AdminLogin)
		admin.POST("/add-doctor", requireAdmin, d.Doctors.Add)
		admin.GET("/all-doctors", requireAdmin, d.Doctors.AdminList)
		admin.POST("/change-availability", requireAdmin, d.Doctors.ChangeAvailability)
	}

	return r
}
