package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/webmail/api/middleware"
	"github.com/customeros/webmail/api/rest/handlers"
	"github.com/customeros/webmail/api/rest/handlers/mail"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/metrics"
	"github.com/customeros/webmail/internal/repository"
	"github.com/customeros/webmail/internal/tracing"
)

const AppSource = "webmail"

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, mailService interfaces.MailService, repos *repository.Repositories, apikey string) {
	if mailService == nil {
		panic("MailService cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))
	r.Use(metrics.GinMiddleware())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", metrics.Handler())

	mailHandler := mail.NewMailHandler(mailService)

	internal := r.Group("/internal")
	internal.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  middleware.APIKeyHeader,
		ValidAPIKey: apikey,
	}))
	internal.Use(middleware.CustomContextMiddleware(AppSource))
	internal.Use(middleware.TracingMiddleware())
	{
		internal.POST("/cache/purge", mailHandler.PurgeCache())
	}

	api := r.Group("/api/v1")
	api.Use(middleware.TracingMiddleware())
	api.Use(middleware.SessionMiddleware(middleware.SessionConfig{
		Sessions:  repos.SessionRepository,
		Accounts:  repos.AccountRepository,
		Users:     repos.UserRepository,
		AppSource: AppSource,
	}))
	{
		mailbox := api.Group("/mail")
		{
			mailbox.GET("", mailHandler.List())
			mailbox.POST("", mailHandler.Send())
			mailbox.GET("/count", mailHandler.Count())
			mailbox.DELETE("/cache", mailHandler.ClearCache())
			mailbox.GET("/:id", mailHandler.Get())
			mailbox.DELETE("/:id", mailHandler.Delete())
		}
	}
}
