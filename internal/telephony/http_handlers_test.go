package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"call-router/internal/routing"

	"github.com/gin-gonic/gin"
)

type countingErrors struct {
	reasons []string
}

func (c *countingErrors) WebhookError(reason string) { c.reasons = append(c.reasons, reason) }

func newTestHandler(t *testing.T) (*gin.Engine, *countingErrors) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := routing.NewEngine(routing.Config{
		BlockedNumber: "+14374282102",
		StreamURL:     "wss://configured-endpoint/stream",
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	errs := &countingErrors{}
	h := TwilioWebhookHandler{Router: engine, Errors: errs}

	r := gin.New()
	r.POST("/route", h.HandleInboundCall)
	return r, errs
}

func postCallback(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Host = "host"
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleInboundCall_BlockedNumberHangsUp(t *testing.T) {
	r, _ := newTestHandler(t)

	w := postCallback(r, "/route", url.Values{"To": {"+14374282102"}, "From": {"+15550001111"}, "CallSid": {"CA1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("expected text/xml, got %q", ct)
	}
	want := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Response>\n  <Hangup/>\n</Response>"
	if w.Body.String() != want {
		t.Fatalf("unexpected body:\n%s", w.Body.String())
	}
}

func TestHandleInboundCall_BlockedNumberHangsUpInStreamPhase(t *testing.T) {
	r, _ := newTestHandler(t)

	w := postCallback(r, "/route?action=stream", url.Values{"To": {"+14374282102"}})

	if !strings.Contains(w.Body.String(), "<Hangup/>") {
		t.Fatalf("expected hangup, got:\n%s", w.Body.String())
	}
}

func TestHandleInboundCall_RingbackThenStream(t *testing.T) {
	r, _ := newTestHandler(t)
	form := url.Values{"To": {"+15551234567"}, "From": {"+15550001111"}, "CallSid": {"CA2"}}

	first := postCallback(r, "/route", form)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	body := first.Body.String()
	if !strings.Contains(body, `<Redirect method="POST">https://host/route?action=stream</Redirect>`) {
		t.Fatalf("expected redirect to stream phase, got:\n%s", body)
	}
	if !strings.Contains(body, `<Play loop="5">`+routing.DefaultRingbackURL+`</Play>`) {
		t.Fatalf("expected default ringback, got:\n%s", body)
	}

	second := postCallback(r, "/route?action=stream", form)
	body = second.Body.String()
	if !strings.Contains(body, `<Stream url="wss://configured-endpoint/stream" />`) {
		t.Fatalf("expected stream connect, got:\n%s", body)
	}
	if !strings.Contains(body, `<Pause length="60"/>`) {
		t.Fatalf("expected safety pause, got:\n%s", body)
	}
}

func TestHandleInboundCall_SameCallbackIsIdempotent(t *testing.T) {
	r, _ := newTestHandler(t)
	form := url.Values{"To": {"+15551234567"}, "CallSid": {"CA3"}}

	a := postCallback(r, "/route", form).Body.String()
	b := postCallback(r, "/route", form).Body.String()
	if a != b {
		t.Fatalf("expected identical bodies:\n%s\n%s", a, b)
	}
}

func TestHandleInboundCall_EmptyPayloadFailsOpen(t *testing.T) {
	r, _ := newTestHandler(t)

	w := postCallback(r, "/route", url.Values{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Play loop=") {
		t.Fatalf("expected ringback for empty payload, got:\n%s", w.Body.String())
	}
}

func TestHandleInboundCall_BadHostIsRequestError(t *testing.T) {
	r, errs := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/route", strings.NewReader("To=%2B15551234567"))
	req.Host = "bad host"
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(errs.reasons) != 1 || errs.reasons[0] != "bad_request_url" {
		t.Fatalf("expected bad_request_url counted, got %v", errs.reasons)
	}
}

func TestHandleInboundCall_UnparsableQueryIsRequestError(t *testing.T) {
	r, errs := newTestHandler(t)

	w := postCallback(r, "/route?x=%zz&tenant=a", url.Values{"To": {"+15551234567"}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(errs.reasons) != 1 || errs.reasons[0] != "bad_request_url" {
		t.Fatalf("expected bad_request_url counted, got %v", errs.reasons)
	}
}

func TestHandleInboundCall_RedirectKeepsQueryOrder(t *testing.T) {
	r, _ := newTestHandler(t)

	w := postCallback(r, "/route?tenant=b&campaign=a", url.Values{"To": {"+15551234567"}})

	want := `<Redirect method="POST">https://host/route?tenant=b&amp;campaign=a&amp;action=stream</Redirect>`
	if !strings.Contains(w.Body.String(), want) {
		t.Fatalf("expected %s in:\n%s", want, w.Body.String())
	}
}

type failingRouter struct{}

func (failingRouter) Route(ctx context.Context, n routing.Notification) (routing.Decision, error) {
	return routing.Decision{}, errors.New("boom")
}

func TestHandleInboundCall_RouterFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/route", TwilioWebhookHandler{Router: failingRouter{}}.HandleInboundCall)

	w := postCallback(r, "/route", url.Values{"To": {"+15551234567"}})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
