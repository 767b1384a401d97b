package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Parvesbd02/doctor-backend/internal/config"
	v1 "github.com/Parvesbd02/doctor-backend/internal/handler/v1"
	"github.com/Parvesbd02/doctor-backend/internal/repository"
	"github.com/Parvesbd02/doctor-backend/internal/service"
	"github.com/Parvesbd02/doctor-backend/pkg/auth"
	"github.com/Parvesbd02/doctor-backend/pkg/database"
	"github.com/Parvesbd02/doctor-backend/pkg/lock"
	"github.com/Parvesbd02/doctor-backend/pkg/logger"
	"github.com/Parvesbd02/doctor-backend/pkg/metrics"
	"github.com/Parvesbd02/doctor-backend/pkg/payment"
	"github.com/Parvesbd02/doctor-backend/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting sql.DB: %w", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(db, log); err != nil {
		return err
	}

	locker, closeLocker, err := buildLocker(ctx, cfg.Lock, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector("doctor_backend", reg)

	var gateway payment.Gateway = payment.Disabled{}
	if cfg.Payment.Enabled() {
		gateway = payment.NewRazorpayGateway(cfg.Payment.RazorpayKeyID, cfg.Payment.RazorpayKeySecret)
	} else {
		log.Info("razorpay keys not set, online payments disabled")
	}

	store := repository.NewGormStore(db)
	jwtManager := auth.NewJWTManager(cfg.JWT)

	auditSvc := service.NewAuditService(repository.NewGormAuditRepository(db), m, log)
	defer auditSvc.Shutdown()

	ledgerSvc := service.NewSlotLedgerService(store, locker, m, cfg.Booking.MaxAttempts, log)
	bookingSvc := service.NewBookingService(store, ledgerSvc, auditSvc, m, log)
	authSvc := service.NewAuthService(store.Users(), jwtManager, cfg.Admin, auditSvc, log)
	doctorSvc := service.NewDoctorService(store, auditSvc, log)
	paymentSvc := service.NewPaymentService(store, gateway, cfg.Payment.Currency, auditSvc, log)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := v1.NewRouter(v1.RouterDeps{
		Auth:         v1.NewAuthHandler(authSvc, log),
		Appointments: v1.NewAppointmentHandler(bookingSvc, log),
		Doctors:      v1.NewDoctorHandler(doctorSvc, log),
		Payments:     v1.NewPaymentHandler(paymentSvc, log),
		Tokens:       jwtManager,
		Metrics:      m,
		CORS:         cfg.CORS,
		Limits:       cfg.RateLimit,
		Log:          log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func buildLocker(ctx context.Context, cfg config.LockConfig, log *zap.Logger) (lock.Locker, func(), error) {
	if cfg.Backend != config.LockBackendRedis {
		log.Info("using in-process doctor locks")
		return lock.NewKeyedMutex(), func() {}, nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	log.Info("using redis doctor locks", zap.String("addr", cfg.RedisAddr))
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close", zap.Error(err))
		}
	}
	return lock.NewRedisLocker(client, cfg.TTL, cfg.RetryInterval), closeFn, nil
}
