package routing

import (
	"context"

	"call-router/pkg/logger"
)

// LogObserver records every decision with the request-scoped logger.
type LogObserver struct{}

func (LogObserver) ObserveDecision(ctx context.Context, n Notification, d Decision) {
	log := logger.From(ctx).With(
		"to", n.To,
		"from", n.From,
		"call_sid", n.CallID,
		"phase", n.Phase.String(),
	)

	if !IsE164(n.To) || !IsE164(n.From) {
		// Fail open: the call still gets routed.
		log.Warn("inbound call with missing or malformed number")
	}

	switch d.Kind {
	case KindBlocked:
		log.Info("blocked number called, hanging up")
	case KindStream:
		log.Info("connecting to media stream", "stream_url", d.StreamURL)
	case KindRingback:
		log.Info("playing ringback", "redirect_url", d.RedirectURL, "loops", d.Loops)
	default:
		log.Error("unknown routing decision", "decision", string(d.Kind))
	}
}
