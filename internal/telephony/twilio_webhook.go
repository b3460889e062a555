package telephony

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"call-router/internal/routing"
)

// TwilioInboundForm captures the subset of voice webhook fields we care about.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/usage/webhooks/voice-webhooks
type TwilioInboundForm struct {
	CallSid       string
	AccountSid    string
	From          string
	To            string
	Direction     string
	CallStatus    string
	CallerName    string
	ForwardedFrom string
}

// ParseTwilioInboundCall reads the webhook form. On a parse error the returned
// form holds whatever could be read and the error is returned alongside it;
// callers decide whether to proceed.
func ParseTwilioInboundCall(r *http.Request) (TwilioInboundForm, error) {
	err := r.ParseForm()
	f := TwilioInboundForm{
		CallSid:       strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid:    strings.TrimSpace(r.PostFormValue("AccountSid")),
		From:          normalizePhone(r.PostFormValue("From")),
		To:            normalizePhone(r.PostFormValue("To")),
		Direction:     strings.TrimSpace(r.PostFormValue("Direction")),
		CallStatus:    strings.TrimSpace(r.PostFormValue("CallStatus")),
		CallerName:    strings.TrimSpace(r.PostFormValue("CallerName")),
		ForwardedFrom: normalizePhone(r.PostFormValue("ForwardedFrom")),
	}
	return f, err
}

func normalizePhone(s string) string {
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return strings.TrimSpace(s)
}

var ErrInvalidRequestURL = errors.New("telephony: invalid request url")

// RequestURL reconstructs the public URL the provider called.
// When base is set its scheme and host win; otherwise https and the Host header are used,
// since the service sits behind a TLS-terminating edge.
func RequestURL(r *http.Request, base *url.URL) (*url.URL, error) {
	scheme, host := "https", r.Host
	if base != nil && base.Host != "" {
		scheme, host = base.Scheme, base.Host
	}
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidRequestURL)
	}
	u, err := url.Parse(scheme + "://" + host + r.URL.RequestURI())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequestURL, err)
	}
	return u, nil
}

// ToNotification builds the routing input. The phase is read from requestURL's query.
func (f TwilioInboundForm) ToNotification(requestURL *url.URL) routing.Notification {
	n := routing.Notification{
		To:         f.To,
		From:       f.From,
		CallID:     f.CallSid,
		RequestURL: requestURL,
	}
	if requestURL != nil {
		n.Phase = routing.ParsePhase(requestURL.Query().Get(routing.PhaseParam))
	}
	return n
}
