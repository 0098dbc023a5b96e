package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	envfile "github.com/osa911/portfolio/internal/config/env"
)

// Config holds all configuration for the relay
type Config struct {
	// Server Configuration
	Environment    DeploymentMode `env:"ENV" envDefault:"development"`
	Port           string         `env:"PORT" envDefault:"8080"`
	MailRoute      string         `env:"MAIL_ROUTE" envDefault:"/portfolio/send-mail"`
	AllowedOrigins []string       `env:"ALLOWED_ORIGINS" envSeparator:","`
	TrustedProxies []string       `env:"TRUSTED_PROXIES" envSeparator:","`

	// Logging Configuration
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`
	LogRequests bool   `env:"LOG_REQUESTS" envDefault:"false"`

	// Mail Configuration
	MailTransport string        `env:"MAIL_TRANSPORT" envDefault:"smtp"`
	SMTPHost      string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort      int           `env:"SMTP_PORT" envDefault:"465"`
	SMTPSecurity  string        `env:"SMTP_SECURITY" envDefault:"tls"`
	SMTPUser      string        `env:"SMTP_USER"`
	SMTPPassword  string        `env:"SMTP_PASSWORD"`
	SMTPTimeout   time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`
	MailFrom      string        `env:"MAIL_FROM"`
	MailTo        string        `env:"MAIL_TO"`
	ResendAPIKey  string        `env:"RESEND_API_KEY"`

	// Rate Limit Configuration
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"5"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	RateLimitStore  string        `env:"RATE_LIMIT_STORE" envDefault:"memory"`
	RedisURL        string        `env:"REDIS_URL"`
	GlobalRPS       float64       `env:"GLOBAL_RPS" envDefault:"10"`
	GlobalBurst     int           `env:"GLOBAL_BURST" envDefault:"20"`

	// Telemetry Configuration
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

// Supported mail transports
const (
	TransportSMTP   = "smtp"
	TransportResend = "resend"
	TransportLog    = "log"
)

// Supported SMTP connection security modes
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

// Supported rate limit stores
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Load loads the configuration from .env files and the process environment.
// It does not validate; call Validate before serving.
func Load() (*Config, error) {
	if err := envfile.LoadEnv(os.Getenv("ENV")); err != nil {
		return nil, err
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Environment == "" {
		cfg.Environment = Development
	}

	if cfg.LogFile == "" {
		if cfg.Environment.IsProduction() {
			cfg.LogFile = "/app/logs/relay.log"
		} else {
			cfg.LogFile = "./logs/relay.log"
		}
	}

	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser
	}
	if cfg.MailTo == "" {
		cfg.MailTo = cfg.MailFrom
	}

	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)
	cfg.TrustedProxies = trimAll(cfg.TrustedProxies)
	cfg.MailTransport = strings.ToLower(strings.TrimSpace(cfg.MailTransport))
	cfg.SMTPSecurity = strings.ToLower(strings.TrimSpace(cfg.SMTPSecurity))
	cfg.RateLimitStore = strings.ToLower(strings.TrimSpace(cfg.RateLimitStore))

	return cfg, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + c.Port
}

// CORSOrigins returns the declared allow-list for the deployment mode.
// Development tolerates any origin; production only the configured ones.
func (c *Config) CORSOrigins() []string {
	if c.Environment == Development && len(c.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return c.AllowedOrigins
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
