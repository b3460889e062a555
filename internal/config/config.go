package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"call-router/internal/routing"
)

// Config holds all configuration required by the API process.
// All values come from env, read once at process start.
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	Router RouterConfig
	Twilio TwilioConfig
	DB     DBConfig
	Redis  RedisConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL is the externally visible base (scheme://host) of this service.
	// Optional; when empty the Host header of each callback is used with https.
	PublicBaseURL string
}

type RouterConfig struct {
	StreamURL     string
	RingbackURL   string
	RingbackLoops int
	BlockedNumber string
}

type TwilioConfig struct {
	// AuthToken enables webhook signature verification when set.
	AuthToken string
}

// DBConfig backs the user-configuration store. It is optional: the store is
// enabled only when Host is set.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// UsersTable may be schema-qualified, e.g. leadsaveai.users. Empty means "users".
	UsersTable string
}

// RedisConfig backs the user-configuration cache. Optional, enabled when Host is set.
type RedisConfig struct {
	Host     string
	Port     int
	CacheTTL time.Duration
}

const (
	defaultPort     = 8080
	defaultDBPort   = 5432
	defaultRedis    = 6379
	defaultCacheTTL = 5 * time.Minute
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = optionalInt(parseErrs, "APP_PORT", defaultPort)
	c.App.PublicBaseURL = strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL"))

	c.Router.StreamURL = strings.TrimSpace(os.Getenv("STREAM_URL"))
	c.Router.RingbackURL = strings.TrimSpace(os.Getenv("RINGBACK_URL"))
	c.Router.RingbackLoops, parseErrs = optionalInt(parseErrs, "RINGBACK_LOOPS", routing.DefaultRingbackLoops)
	c.Router.BlockedNumber = strings.TrimSpace(os.Getenv("BLOCKED_NUMBER"))

	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = optionalInt(parseErrs, "DB_PORT", defaultDBPort)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.UsersTable = strings.TrimSpace(os.Getenv("DB_USERS_TABLE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT", defaultRedis)
	c.Redis.CacheTTL, parseErrs = optionalDuration(parseErrs, "USERS_CACHE_TTL", defaultCacheTTL)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyDefaults fills optional values that depend on other settings.
func (c *Config) ApplyDefaults() {
	if c.Router.RingbackURL == "" {
		c.Router.RingbackURL = routing.DefaultRingbackURL
	}
	if c.DB.Host != "" && c.DB.SSLMode == "" && !c.IsProduction() {
		// Local-friendly default; production must be explicit.
		c.DB.SSLMode = "disable"
	}
	if c.Redis.CacheTTL <= 0 {
		c.Redis.CacheTTL = defaultCacheTTL
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.PublicBaseURL != "" {
		if u, err := url.Parse(c.App.PublicBaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an absolute http(s) url, got %q", c.App.PublicBaseURL))
		}
	}

	if c.Router.StreamURL == "" {
		errs = append(errs, errors.New("STREAM_URL is required"))
	} else if u, err := url.Parse(c.Router.StreamURL); err != nil || u.Host == "" || (u.Scheme != "ws" && u.Scheme != "wss") {
		errs = append(errs, fmt.Errorf("STREAM_URL must be an absolute ws(s) url, got %q", c.Router.StreamURL))
	}
	if c.Router.RingbackURL != "" {
		if u, err := url.Parse(c.Router.RingbackURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("RINGBACK_URL must be an absolute http(s) url, got %q", c.Router.RingbackURL))
		}
	}
	if c.Router.RingbackLoops <= 0 {
		errs = append(errs, fmt.Errorf("RINGBACK_LOOPS must be positive, got %d", c.Router.RingbackLoops))
	}
	if c.Router.BlockedNumber != "" && !routing.IsE164(c.Router.BlockedNumber) {
		errs = append(errs, fmt.Errorf("BLOCKED_NUMBER must be E.164, got %q", c.Router.BlockedNumber))
	}

	if c.UsersStoreEnabled() {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.UsersTable != "" && !tableNameRe.MatchString(c.DB.UsersTable) {
			errs = append(errs, fmt.Errorf("DB_USERS_TABLE must be table or schema.table, got %q", c.DB.UsersTable))
		}
		if c.DB.SSLMode == "" {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else if !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) UsersStoreEnabled() bool {
	return c.DB.Host != ""
}

func (c Config) UsersCacheEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// PublicBase returns the parsed PUBLIC_BASE_URL, or nil when unset.
func (c Config) PublicBase() *url.URL {
	if c.App.PublicBaseURL == "" {
		return nil
	}
	u, err := url.Parse(c.App.PublicBaseURL)
	if err != nil {
		return nil
	}
	return u
}

func (c Config) RoutingConfig() routing.Config {
	return routing.Config{
		BlockedNumber: c.Router.BlockedNumber,
		StreamURL:     c.Router.StreamURL,
		RingbackURL:   c.Router.RingbackURL,
		RingbackLoops: c.Router.RingbackLoops,
	}
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func optionalInt(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalDuration(errs []error, key string, def time.Duration) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
