package telephony

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"call-router/internal/routing"
)

// TwiML documents are rendered from one typed template per decision variant.
// Every interpolated value goes through xmlEscape; templates never see raw input.

// StreamPauseSeconds keeps the channel open if the stream does not take over immediately.
const StreamPauseSeconds = 60

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}

var twimlFuncs = template.FuncMap{"xml": xmlEscape}

func mustTwiML(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(twimlFuncs).Parse(twimlHeader + body))
}

const twimlHeader = `<?xml version="1.0" encoding="UTF-8"?>
`

var (
	hangupTmpl = mustTwiML("hangup", `<Response>
  <Hangup/>
</Response>`)

	streamTmpl = mustTwiML("stream", `<Response>
  <Connect>
    <Stream url="{{xml .URL}}" />
  </Connect>
  <Pause length="{{xml .PauseSeconds}}"/>
</Response>`)

	ringbackTmpl = mustTwiML("ringback", `<Response>
  <Play loop="{{xml .Loops}}">{{xml .AudioURL}}</Play>
  <Redirect method="POST">{{xml .RedirectURL}}</Redirect>
</Response>`)
)

type streamData struct {
	URL          string
	PauseSeconds string
}

type ringbackData struct {
	AudioURL    string
	Loops       string
	RedirectURL string
}

func execute(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("telephony: render %s: %w", t.Name(), err)
	}
	return b.String(), nil
}

// HangupTwiML ends the call.
func HangupTwiML() (string, error) {
	return execute(hangupTmpl, nil)
}

// StreamTwiML bridges the call to a bidirectional media stream.
func StreamTwiML(streamURL string) (string, error) {
	if strings.TrimSpace(streamURL) == "" {
		return "", errors.New("telephony: stream url required")
	}
	return execute(streamTmpl, streamData{URL: streamURL, PauseSeconds: strconv.Itoa(StreamPauseSeconds)})
}

// RingbackTwiML plays audioURL loops times, then asks the provider to POST to redirectURL.
func RingbackTwiML(audioURL string, loops int, redirectURL string) (string, error) {
	if strings.TrimSpace(audioURL) == "" {
		return "", errors.New("telephony: ringback url required")
	}
	if loops <= 0 {
		return "", errors.New("telephony: ringback loops must be positive")
	}
	if strings.TrimSpace(redirectURL) == "" {
		return "", errors.New("telephony: redirect url required")
	}
	return execute(ringbackTmpl, ringbackData{AudioURL: audioURL, Loops: strconv.Itoa(loops), RedirectURL: redirectURL})
}

// RenderTwiML maps a routing decision to TwiML.
func RenderTwiML(d routing.Decision) (string, error) {
	switch d.Kind {
	case routing.KindBlocked:
		return HangupTwiML()
	case routing.KindStream:
		return StreamTwiML(d.StreamURL)
	case routing.KindRingback:
		return RingbackTwiML(d.RingbackURL, d.Loops, d.RedirectURL)
	default:
		return "", fmt.Errorf("telephony: unknown decision kind %q", d.Kind)
	}
}
