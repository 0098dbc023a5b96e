package config

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
)

// FieldError describes one invalid configuration variable
type FieldError struct {
	Var    string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Var, e.Reason)
}

// ValidationError is returned by Validate when the relay must not start
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Validate checks the configuration once before the server accepts connections.
// It returns a *ValidationError listing every problem, or nil.
func (c *Config) Validate() error {
	var errs []FieldError
	add := func(v, reason string) {
		errs = append(errs, FieldError{Var: v, Reason: reason})
	}

	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		add("PORT", "must be a valid TCP port")
	}
	if !strings.HasPrefix(c.MailRoute, "/") {
		add("MAIL_ROUTE", "must start with /")
	}

	if c.Environment.IsProduction() {
		if len(c.AllowedOrigins) == 0 {
			add("ALLOWED_ORIGINS", "required in production")
		}
		for _, o := range c.AllowedOrigins {
			if o == "*" {
				add("ALLOWED_ORIGINS", "wildcard is not allowed in production")
				break
			}
		}
	}

	switch c.MailTransport {
	case TransportSMTP:
		if c.SMTPHost == "" {
			add("SMTP_HOST", "required for smtp transport")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			add("SMTP_PORT", "must be a valid TCP port")
		}
		if c.SMTPPassword == "" {
			add("SMTP_PASSWORD", "required for smtp transport")
		}
		switch c.SMTPSecurity {
		case SecurityTLS, SecurityStartTLS, SecurityNone:
		default:
			add("SMTP_SECURITY", "must be one of tls, starttls, none")
		}
	case TransportResend:
		if c.ResendAPIKey == "" {
			add("RESEND_API_KEY", "required for resend transport")
		}
	case TransportLog:
		if c.Environment.IsProduction() {
			add("MAIL_TRANSPORT", "log transport is not allowed in production")
		}
	default:
		add("MAIL_TRANSPORT", "must be one of smtp, resend, log")
	}
	if c.SMTPTimeout <= 0 {
		add("SMTP_TIMEOUT", "must be positive")
	}

	if _, err := mail.ParseAddress(c.MailFrom); err != nil {
		add("MAIL_FROM", "must be a valid address")
	}
	if _, err := mail.ParseAddress(c.MailTo); err != nil {
		add("MAIL_TO", "must be a valid address")
	}

	if c.RateLimitMax <= 0 {
		add("RATE_LIMIT_MAX", "must be positive")
	}
	if c.RateLimitWindow <= 0 {
		add("RATE_LIMIT_WINDOW", "must be positive")
	}
	switch c.RateLimitStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			add("REDIS_URL", "required for redis rate limit store")
		}
	default:
		add("RATE_LIMIT_STORE", "must be one of memory, redis")
	}
	if c.GlobalRPS <= 0 || c.GlobalBurst <= 0 {
		add("GLOBAL_RPS", "global rate and burst must be positive")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		add("LOG_LEVEL", "must be one of debug, info, warn, error")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
