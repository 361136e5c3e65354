package main

import (
	"context"
	"fmt"
	"time"

	"github.com/equipdesk/backend/internal/config"
	"github.com/equipdesk/backend/internal/handlers"
	"github.com/equipdesk/backend/internal/metrics"
	"github.com/equipdesk/backend/internal/middleware"
	"github.com/equipdesk/backend/internal/models"
	"github.com/equipdesk/backend/internal/services"
	"github.com/equipdesk/backend/internal/utils"
	"github.com/equipdesk/backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg     *config.Config
	db      *gorm.DB
	redis   *goredis.Client
	issuer  *utils.TokenIssuer
	metrics *metrics.Metrics

	syslog *services.SystemLogService
	auth   *services.AuthService

	authHandler      *handlers.AuthHandler
	hospitalHandler  *handlers.HospitalHandler
	equipmentHandler *handlers.EquipmentHandler
	listHandler      *handlers.ListHandler
	dashboardHandler *handlers.DashboardHandler
	systemLogHandler *handlers.SystemLogHandler
	healthHandler    *handlers.HealthHandler

	// authLimiter is nil when rate limiting is disabled.
	authLimiter  middleware.Limiter
	localLimiter *middleware.RateLimiter
	cleanupCron  *cron.Cron
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) (*appServices, error) {
	db, err := models.OpenDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis not reachable, rate limiter fails open until it is")
		}
		cancel()
	}

	svc := newAppServices(cfg, db, rdb)

	if err := svc.auth.CreateAdminIfNotExists(context.Background(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	if cfg.Audit.RetentionDays > 0 {
		c, err := services.StartLogCleanupScheduler(svc.syslog, cfg.Audit.CleanupCron, cfg.Audit.RetentionDays)
		if err != nil {
			svc.shutdown()
			return nil, err
		}
		svc.cleanupCron = c
	}
	return svc, nil
}

// newAppServices wires services and handlers around an open database. rdb may be nil.
func newAppServices(cfg *config.Config, db *gorm.DB, rdb *goredis.Client) *appServices {
	issuer := utils.NewTokenIssuer(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	m := metrics.New(prometheus.NewRegistry())
	if sqlDB, err := db.DB(); err == nil {
		m.RegisterDB(sqlDB)
	}

	syslog := services.NewSystemLogService(db)
	sessions := services.NewSessionStore(db, issuer, syslog)
	auth := services.NewAuthService(db, issuer, sessions, syslog)

	svc := &appServices{
		cfg:     cfg,
		db:      db,
		redis:   rdb,
		issuer:  issuer,
		metrics: m,
		syslog:  syslog,
		auth:    auth,

		authHandler:      handlers.NewAuthHandler(auth, cfg.Auth, m),
		hospitalHandler:  handlers.NewHospitalHandler(services.NewHospitalService(db)),
		equipmentHandler: handlers.NewEquipmentHandler(services.NewEquipmentService(db)),
		listHandler:      handlers.NewListHandler(services.NewListService(db)),
		dashboardHandler: handlers.NewDashboardHandler(services.NewDashboardService(db)),
		systemLogHandler: handlers.NewSystemLogHandler(syslog),
		healthHandler:    handlers.NewHealthHandler(db, rdb),
	}

	if cfg.RateLimit.Enabled {
		if rdb != nil {
			svc.authLimiter = middleware.NewRedisRateLimiter(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		} else {
			svc.localLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
			svc.authLimiter = svc.localLimiter
		}
	}
	return svc
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	if s.cleanupCron != nil {
		<-s.cleanupCron.Stop().Done()
		logger.Info().Msg("Log cleanup scheduler stopped")
	}
	if s.localLimiter != nil {
		s.localLimiter.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
