package handler

import (
	"net/http"

	"github.com/ad-tracker/thumbnail-service-go/internal/metrics"
	"github.com/ad-tracker/thumbnail-service-go/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig wires the handlers into one engine.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RouterConfig struct {
	Auth       *AuthHandler
	Thumbnails *ThumbnailHandler
	Health     *HealthHandler
	Bearer     *middleware.BearerAuth
	Metrics    *metrics.Metrics
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
	// UploadsURLPrefix and UploadsRoot expose stored blobs read-only.
	UploadsURLPrefix string
	UploadsRoot      string
	// CORSOrigins restricts cross-origin callers. Empty allows any origin.
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.RequestMetrics(cfg.Metrics))

	r.GET("/", cfg.Health.Root)
	r.GET("/test-db", cfg.Health.TestDB)
	r.GET("/health", cfg.Health.LivenessProbe)
	r.GET("/ready", cfg.Health.ReadinessProbe)
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}
	if cfg.UploadsRoot != "" {
		r.Static(cfg.UploadsURLPrefix, cfg.UploadsRoot)
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", cfg.Auth.Register)
		auth.POST("/login", cfg.Auth.Login)
		auth.POST("/forgot-password", cfg.Auth.ForgotPassword)
		auth.POST("/reset-password/:token", cfg.Auth.ResetPassword)
		auth.POST("/logout", cfg.Auth.Logout)
	}

	thumbnails := r.Group("/api/thumbnails", cfg.Bearer.Handler())
	for _, root := range []string{"", "/"} {
		thumbnails.POST(root, cfg.Thumbnails.Create)
		thumbnails.GET(root, cfg.Thumbnails.List)
		thumbnails.DELETE(root, cfg.Thumbnails.DeleteAll)
	}
	thumbnails.GET("/:id", cfg.Thumbnails.Get)
	thumbnails.PUT("/:id", cfg.Thumbnails.Update)
	thumbnails.PATCH("/:id", cfg.Thumbnails.Update)
	thumbnails.DELETE("/:id", cfg.Thumbnails.Delete)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	return c
}
