package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mentor-booking-api/api/swagger"
	"github.com/noah-isme/mentor-booking-api/internal/handler"
	"github.com/noah-isme/mentor-booking-api/internal/middleware"
	"github.com/noah-isme/mentor-booking-api/internal/realtime"
	"github.com/noah-isme/mentor-booking-api/internal/repository"
	"github.com/noah-isme/mentor-booking-api/internal/service"
	"github.com/noah-isme/mentor-booking-api/pkg/cache"
	"github.com/noah-isme/mentor-booking-api/pkg/config"
	"github.com/noah-isme/mentor-booking-api/pkg/database"
	"github.com/noah-isme/mentor-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mentor-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mentor-booking-api/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title Mentor Booking API
// @version 1.0.0
// @description Weekly mentor availability, free slot queries and collision-free 1:1 session booking
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database); err != nil {
			return err
		}
		logr.Info("migrations applied", zap.String("driver", cfg.Database.Driver))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	hub := realtime.NewHub(logr, metrics.SetStreamSubscribers)
	defer hub.Close()

	events := service.NewEventPublisher(hub, metrics, logr, service.EventPublisherConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
	})
	events.Start(ctx)

	validate := validator.New()
	templates := repository.NewAvailabilityRepository(db, logr)
	sessions := repository.NewSessionRepository(db)
	programs := repository.NewProgramRepository(db)
	slotCache := service.NewCacheService(cacheRepo, metrics, cfg.Booking.SlotCacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	availabilitySvc := service.NewAvailabilityService(templates, slotCache, events, validate, logr)
	bookingSvc := service.NewBookingService(programs, templates, sessions, slotCache, events, metrics, validate, logr, service.BookingConfig{
		HorizonDays: cfg.Booking.HorizonDays,
		Timeout:     cfg.Booking.RequestTimeout,
	})
	sessionSvc := service.NewSessionService(sessions, slotCache, events, metrics, validate, logr, nil)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: cfg.Booking.RatePerMinute,
		Burst:     cfg.Booking.RateBurst,
	}, metrics, logr)
	go limiter.Run(ctx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["cache"] = handler.PingerFunc(cacheRepo.Ping)
	}
	probes := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", probes.Health)
	r.GET("/ready", probes.Ready)
	r.GET("/metrics", probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Routes{
		Auth:         authSvc,
		RateLimiter:  limiter,
		Availability: handler.NewAvailabilityHandler(availabilitySvc, bookingSvc),
		Sessions:     handler.NewSessionHandler(bookingSvc, sessionSvc),
		Stream:       handler.NewStreamHandler(hub, originChecker(cfg.CORS.AllowedOrigins), logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if err := events.Stop(shutdownCtx); err != nil {
		logr.Warn("event publisher shutdown", zap.Error(err))
	}
	return nil
}

// originChecker mirrors the CORS allow list for websocket handshakes. An empty
// list accepts every origin.
func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}
