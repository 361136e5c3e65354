package main

import (
	"github.com/equipdesk/backend/internal/handlers"
	"github.com/equipdesk/backend/internal/middleware"
	"github.com/equipdesk/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics))

	// Operational
	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics(svc.metrics))

	authRequired := middleware.AuthRequired(svc.issuer)

	// Auth routes (public, rate limited)
	public := r.Group("/auth")
	if svc.authLimiter != nil {
		public.Use(middleware.RateLimit(svc.authLimiter, svc.metrics))
	}
	{
		public.POST("/register", svc.authHandler.Register)
		public.POST("/login", svc.authHandler.Login)
		public.POST("/refresh", svc.authHandler.Refresh)
	}

	// Protected routes
	protected := r.Group("", authRequired)
	{
		protected.POST("/auth/logout", svc.authHandler.Logout)
		protected.GET("/auth/me", svc.authHandler.Me)

		protected.GET("/hospitals", svc.hospitalHandler.List)
		protected.GET("/hospitals/:id", svc.hospitalHandler.GetByID)

		protected.GET("/equipments/:hospitalId", svc.equipmentHandler.ListByHospital)

		protected.GET("/lists", svc.listHandler.List)
		protected.GET("/lists/:id", svc.listHandler.Detail)
		protected.POST("/lists/create", svc.listHandler.Create)

		protected.GET("/dashboard/stats", svc.dashboardHandler.GetStats)
	}

	// Admin routes. Audit runs before the role check so rejected attempts are recorded too.
	admin := r.Group("", authRequired, middleware.AuditLog(svc.syslog), middleware.AdminRequired())
	{
		admin.POST("/hospitals/create", svc.hospitalHandler.Create)
		admin.POST("/equipments/create", svc.equipmentHandler.Create)

		admin.GET("/system-logs", svc.systemLogHandler.List)
		admin.GET("/system-logs/modules", svc.systemLogHandler.GetModules)
	}
}
