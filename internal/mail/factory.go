package mail

import (
	"fmt"

	"github.com/osa911/portfolio/internal/config"
	"github.com/osa911/portfolio/internal/logging"
)

// NewTransport builds the transport selected by MAIL_TRANSPORT
func NewTransport(cfg *config.Config, logger *logging.Logger) (Transport, error) {
	switch cfg.MailTransport {
	case config.TransportSMTP:
		return NewSMTPTransport(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Security: cfg.SMTPSecurity,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			Timeout:  cfg.SMTPTimeout,
		}), nil
	case config.TransportResend:
		return NewResendTransport(cfg.ResendAPIKey), nil
	case config.TransportLog:
		return NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}
