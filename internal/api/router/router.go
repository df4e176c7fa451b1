package router

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/invitebatch/docs"
	"github.com/d60-Lab/invitebatch/internal/api/handler"
	"github.com/d60-Lab/invitebatch/internal/api/middleware"
	"github.com/d60-Lab/invitebatch/pkg/jwt"
)

type Options struct {
	ServiceName string
	Tracing     bool
	Sentry      bool
	RateLimiter *middleware.OrgRateLimiter
}

// Setup 注册全部路由
func Setup(h *handler.Handler, tokens *jwt.Manager, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(middleware.Logger(), middleware.Prometheus())
	// SSE 需要逐帧 flush，不能压缩
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/stream$`})))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = middleware.NewOrgRateLimiter(0, 1)
	}

	v1 := r.Group("/api/v1", middleware.Auth(tokens))
	{
		v1.POST("/invites/accept", h.AcceptInvite)

		org := v1.Group("/orgs/:org_id", middleware.RequireOrg())
		org.GET("/invites", h.ListInvites)
		org.DELETE("/invites/:invite_id", h.RevokeInvite)
		org.POST("/invites/batch", limiter.Handler(), h.SubmitInviteBatch)
		org.GET("/invites/batch/:batch_id", h.GetInviteBatch)
		org.GET("/invites/batch/:batch_id/stream", h.StreamInviteBatch)
	}
	return r
}
