package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"call-router/internal/routing"
	"call-router/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router is the decision dependency of the webhook handler.
type Router interface {
	Route(ctx context.Context, n routing.Notification) (routing.Decision, error)
}

// ErrorCounter is told about requests that end without TwiML.
type ErrorCounter interface {
	WebhookError(reason string)
}

// TwilioWebhookHandler converts the Twilio webhook to a routing.Notification,
// delegates the decision, and writes TwiML. No business logic here.
type TwilioWebhookHandler struct {
	Router Router

	// PublicBaseURL overrides scheme and host when reconstructing the callback URL.
	PublicBaseURL *url.URL

	Errors ErrorCounter
}

func (h TwilioWebhookHandler) countError(reason string) {
	if h.Errors != nil {
		h.Errors.WebhookError(reason)
	}
}

func (h TwilioWebhookHandler) HandleInboundCall(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Router == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "router not configured"})
		return
	}

	u, err := RequestURL(c.Request, h.PublicBaseURL)
	if err != nil {
		// No safe redirect target can be built.
		log.Error("twilio webhook: unparsable request url", "host", c.Request.Host, "err", err)
		h.countError("bad_request_url")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request url"})
		return
	}

	form, err := ParseTwilioInboundCall(c.Request)
	if err != nil {
		// Fail open: route with whatever fields parsed.
		log.Warn("twilio webhook: form parse failed, routing with partial payload", "err", err)
	}

	n := form.ToNotification(u)
	log.Info("incoming call received", "to", n.To, "from", n.From, "call_sid", n.CallID, "action", n.Phase.String())

	d, err := h.Router.Route(c.Request.Context(), n)
	if errors.Is(err, routing.ErrInvalidRequestQuery) {
		log.Error("twilio webhook: unparsable request query", "call_sid", n.CallID, "query", u.RawQuery, "err", err)
		h.countError("bad_request_url")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request url"})
		return
	}
	if err != nil {
		log.Error("inbound call routing failed", "call_sid", n.CallID, "err", err)
		h.countError("routing_failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "routing failed"})
		return
	}

	twiml, err := RenderTwiML(d)
	if err != nil {
		log.Error("twiml render failed", "call_sid", n.CallID, "decision", string(d.Kind), "err", err)
		h.countError("render_failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twiml)
}
