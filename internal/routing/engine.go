package routing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultRingbackURL is the built-in ringback asset used when no override is configured.
const DefaultRingbackURL = "https://gincvicclrzfhkhi.public.blob.vercel-storage.com/ringback.wav"

// DefaultRingbackLoops assumes ~1 second of audio per loop.
const DefaultRingbackLoops = 5

var (
	ErrRequestURLRequired  = errors.New("routing: request url required for ringback redirect")
	ErrInvalidRequestQuery = errors.New("routing: invalid request query")
)

// Config is the process-wide router configuration, read once at startup.
type Config struct {
	// BlockedNumber is hung up unconditionally. Empty disables the blocklist.
	BlockedNumber string

	// StreamURL is the real-time media handoff target (ws/wss).
	StreamURL string

	RingbackURL   string
	RingbackLoops int
}

// WithDefaults fills optional values.
func (c Config) WithDefaults() Config {
	out := c
	out.BlockedNumber = strings.TrimSpace(out.BlockedNumber)
	if strings.TrimSpace(out.RingbackURL) == "" {
		out.RingbackURL = DefaultRingbackURL
	}
	if out.RingbackLoops == 0 {
		out.RingbackLoops = DefaultRingbackLoops
	}
	return out
}

// Validate checks the values the router cannot work without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StreamURL) == "" {
		return errors.New("routing: stream url required")
	}
	u, err := url.Parse(c.StreamURL)
	if err != nil {
		return fmt.Errorf("routing: invalid stream url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("routing: stream url must use ws or wss, got %q", u.Scheme)
	}
	if c.RingbackLoops <= 0 {
		return fmt.Errorf("routing: ringback loops must be positive, got %d", c.RingbackLoops)
	}
	return nil
}

// Route decides what happens to a call. First match wins:
//  1. blocked number -> hang up, whatever the phase
//  2. stream phase   -> connect the media stream
//  3. otherwise      -> ringback, then redirect back here with action=stream
//
// A missing or malformed called number never matches the blocklist.
func Route(n Notification, cfg Config) (Decision, error) {
	to := strings.TrimSpace(n.To)
	if cfg.BlockedNumber != "" && to == cfg.BlockedNumber {
		return Decision{Kind: KindBlocked}, nil
	}

	if n.Phase == PhaseStream {
		return Decision{Kind: KindStream, StreamURL: cfg.StreamURL}, nil
	}

	redirect, err := RedirectTarget(n.RequestURL)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Kind:        KindRingback,
		RingbackURL: cfg.RingbackURL,
		Loops:       cfg.RingbackLoops,
		RedirectURL: redirect,
	}, nil
}

// RedirectTarget returns u with the phase parameter set to stream.
// Other query parameters keep their order and encoding. An existing phase
// parameter is replaced in place, otherwise it is appended.
func RedirectTarget(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrRequestURLRequired
	}
	if _, err := url.ParseQuery(u.RawQuery); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequestQuery, err)
	}

	phase := PhaseParam + "=" + url.QueryEscape(string(PhaseStream))
	pairs := make([]string, 0, strings.Count(u.RawQuery, "&")+2)
	replaced := false
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, _, _ := strings.Cut(pair, "=")
		key, _ := url.QueryUnescape(rawKey) // already validated by ParseQuery
		if key != PhaseParam {
			pairs = append(pairs, pair)
			continue
		}
		if !replaced {
			pairs = append(pairs, phase)
			replaced = true
		}
	}
	if !replaced {
		pairs = append(pairs, phase)
	}

	out := *u
	out.RawQuery = strings.Join(pairs, "&")
	out.ForceQuery = false
	out.Fragment = ""
	out.RawFragment = ""
	return out.String(), nil
}

// Observer is notified after every decision. Implementations must not block.
type Observer interface {
	ObserveDecision(ctx context.Context, n Notification, d Decision)
}

// Engine binds Route to a validated configuration.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	cfg       Config
	observers []Observer
}

func NewEngine(cfg Config, observers ...Observer) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	obs := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			obs = append(obs, o)
		}
	}
	return &Engine{cfg: cfg, observers: obs}, nil
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Route(ctx context.Context, n Notification) (Decision, error) {
	d, err := Route(n, e.cfg)
	if err != nil {
		return Decision{}, err
	}
	for _, o := range e.observers {
		o.ObserveDecision(ctx, n, d)
	}
	return d, nil
}
