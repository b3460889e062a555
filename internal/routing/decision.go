package routing

import (
	"net/url"
	"regexp"
)

// Phase marks which callback of a physical call is being handled.
// It round-trips through the redirect URL; the server keeps no session.
type Phase string

const (
	PhaseNone   Phase = ""
	PhaseStream Phase = "stream"
)

// PhaseParam is the query parameter carrying the phase marker.
const PhaseParam = "action"

// ParsePhase maps a raw query value to a Phase.
// Anything other than "stream" is treated as the first contact.
func ParsePhase(v string) Phase {
	if v == string(PhaseStream) {
		return PhaseStream
	}
	return PhaseNone
}

func (p Phase) String() string {
	if p == PhaseNone {
		return "ringback"
	}
	return string(p)
}

// Notification is the provider-agnostic view of one inbound call callback.
type Notification struct {
	// To is the called number, From the caller. Both are E.164 where the provider sends them.
	To   string
	From string

	CallID string

	// RequestURL is the public URL the provider called. Required to build the redirect target.
	RequestURL *url.URL

	Phase Phase
}

// Kind identifies a decision variant.
type Kind string

const (
	KindBlocked  Kind = "blocked"
	KindRingback Kind = "ringback"
	KindStream   Kind = "stream"
)

// Decision is the output of the router. Only the fields of its Kind are set.
type Decision struct {
	Kind Kind `json:"kind"`

	// Ringback
	RingbackURL string `json:"ringback_url,omitempty"`
	Loops       int    `json:"loops,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`

	// Stream
	StreamURL string `json:"stream_url,omitempty"`
}

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)

// IsE164 reports whether s looks like an E.164 phone number.
func IsE164(s string) bool {
	return e164.MatchString(s)
}
