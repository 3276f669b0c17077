package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"customer-portal/internal/handler"
	"customer-portal/pkg/otel"
)

const (
	InternalSecretHeader = "X-Internal-Secret"
	CronSecretHeader     = "X-Cron-Secret"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type BrokerStatus interface {
	IsConnected() bool
}

type Handlers struct {
	Auth         *handler.AuthHandler
	Portal       *handler.PortalHandler
	Review       *handler.ReviewHandler
	Notification *handler.NotificationHandler
	Admin        *handler.AdminHandler
}

type Options struct {
	Cookies        handler.CookieSettings
	InternalSecret string
	CronSecret     string
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, authn Authenticator, db Pinger, broker BrokerStatus, opts Options, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		if !broker.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/auth/magic-link", h.Auth.MagicLink)
	r.GET("/auth/callback", h.Auth.Callback)
	r.POST("/auth/logout", h.Auth.Logout)
	r.GET("/api/reviews", h.Review.List)

	// Customer session
	p := r.Group("/api/portal")
	p.Use(SessionMiddleware(authn, opts.Cookies, logger))
	{
		p.GET("/dashboard", h.Portal.Dashboard)
		p.GET("/milestones", h.Portal.Milestones)
		p.GET("/documents", h.Portal.Documents)
		p.GET("/monitoring", h.Portal.Monitoring)
		p.GET("/referrals", h.Portal.Referrals)
		p.GET("/notifications", h.Portal.Notifications)
		p.POST("/notifications/:id/read", h.Portal.MarkNotificationRead)
		p.POST("/nps", h.Portal.SubmitNps)
	}

	// Shared secrets
	r.POST("/api/whatsapp/send", SecretMiddleware(InternalSecretHeader, opts.InternalSecret), h.Notification.Send)
	r.GET("/api/whatsapp/reminders", SecretMiddleware(CronSecretHeader, opts.CronSecret), h.Notification.Reminders)

	internal := r.Group("/internal")
	internal.Use(SecretMiddleware(InternalSecretHeader, opts.InternalSecret))
	{
		internal.PATCH("/milestones/:id", h.Admin.UpdateMilestone)
		internal.PATCH("/reviews/:id", h.Review.SetVisibility)
		internal.GET("/customers/:id/whatsapp", h.Admin.NotificationHistory)
		internal.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
		internal.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
	}

	return &Router{Engine: r}
}

// Server wraps the engine with explicit timeouts.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
