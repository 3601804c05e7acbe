package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Scheduling SchedulingService
	Billing    BillingService
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Env        string
	Version    string
	Log        *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment lifecycle endpoints
	r.Post("/appointments/{id}/release", releaseAppointmentHandler(cfg.Scheduling))
	r.Get("/appointments/{id}/series", seriesHandler(cfg.Scheduling))
	r.Post("/appointments/release-month", releaseMonthHandler(cfg.Scheduling))
	r.Post("/appointments/conflict-check", conflictCheckHandler(cfg.Scheduling))
	r.Post("/appointments/close-out", closeOutHandler(cfg.Billing))
	r.Post("/appointments/payment-notifications", paymentNotificationsHandler(cfg.Scheduling))

	return r
}
