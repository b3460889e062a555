package main

import (
	"net/http"

	"call-router/internal/config"
	"call-router/internal/httpapi"
	"call-router/internal/metrics"
	"call-router/internal/telephony"
	"call-router/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type deps struct {
	cfg      config.Config
	router   telephony.Router
	metrics  *metrics.Recorder
	gatherer prometheus.Gatherer
	users    *users.Service
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, d deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(d.gatherer)))

	// Provider webhooks (public). Point every Twilio number at this single URL.
	{
		base := d.cfg.PublicBase()
		h := telephony.TwilioWebhookHandler{
			Router:        d.router,
			PublicBaseURL: base,
			Errors:        d.metrics,
		}
		r.POST("/api/twilio/router", telephony.RequireTwilioSignature(d.cfg.Twilio.AuthToken, base), h.HandleInboundCall)
	}

	// Admin routes exist only when the users store is configured.
	if d.users != nil {
		h := httpapi.Handlers{Users: d.users}
		admin := r.Group("/api/admin")
		{
			admin.GET("/users", h.ListUsers)
			admin.GET("/users/:user_id", h.GetUser)
			admin.PUT("/users/:user_id", h.UpdateUser)
		}
	}
}
