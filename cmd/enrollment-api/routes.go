package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ceama-enrollment-api/api/swagger"
	"github.com/noah-isme/ceama-enrollment-api/internal/middleware"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/pkg/config"
	"github.com/noah-isme/ceama-enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ceama-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ceama-enrollment-api/pkg/middleware/requestid"
	sessionmiddleware "github.com/noah-isme/ceama-enrollment-api/pkg/middleware/session"
)

// multipartMemory caps the in-memory part of proof uploads; larger parts spill to disk.
const multipartMemory = 8 << 20

func newRouter(cfg *config.Config, app *application, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = multipartMemory
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics))

	r.GET("/health", app.health.Health)
	r.GET("/ready", app.health.Ready)
	r.GET("/metrics", app.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	public := api.Group("")
	public.Use(sessionmiddleware.Middleware(sessionmiddleware.Options{
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	}))
	{
		public.POST("/registrations/stage", app.registration.Stage)
		public.POST("/registrations/guardian", app.registration.StageGuardian)
		public.GET("/registrations/preview", app.registration.Preview)

		public.POST("/payments", app.payments.Submit)

		public.POST("/tracking/resend-code", app.tracking.ResendCode)
		public.GET("/tracking/:code", app.tracking.Lookup)
		public.POST("/tracking/:code/payments", app.tracking.Regularize)
		public.GET("/tracking/:code/receipt", app.tracking.Receipt)

		public.GET("/assignments", app.catalog.ListAssignments)
		public.GET("/assignments/:id", app.catalog.GetAssignment)
		public.GET("/plans", app.catalog.Plans)
	}

	api.POST("/auth/login", app.auth.Login)

	staff := api.Group("")
	staff.Use(middleware.JWT(app.tokens), middleware.RequireRoles(models.StaffRoles...))
	{
		staff.GET("/auth/me", app.auth.Me)

		staff.GET("/admin/payments", app.review.List)
		staff.POST("/admin/payments/:id/approve", app.review.Approve)
		staff.POST("/admin/payments/:id/reject", app.review.Reject)
		staff.GET("/admin/payments/:id/history", app.review.History)
		staff.GET("/admin/payments/:id/proofs", app.review.ProofLinks)
		staff.GET("/admin/proofs/download", app.review.DownloadProof)

		staff.GET("/admin/collections", middleware.WithResponseMeta(), app.dashboard.Collections)
		staff.GET("/admin/registrations/export",
			middleware.Audit(app.audit, logr, models.AuditActionExport, "registrations"),
			app.exports.Registrations)

		staff.DELETE("/admin/catalog/cache",
			middleware.Audit(app.audit, logr, models.AuditActionCacheFlush, "catalog"),
			app.catalog.FlushCache)
	}

	return r
}
