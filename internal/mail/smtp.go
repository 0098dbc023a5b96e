package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Connection security modes for SMTPConfig.Security
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

// SMTPConfig configures the SMTP relay transport
type SMTPConfig struct {
	Host     string
	Port     int
	Security string
	Username string
	Password string
	Timeout  time.Duration
	// TLSConfig overrides the default TLS settings, mainly for tests
	TLSConfig *tls.Config
}

// SMTPTransport sends mail through an authenticated SMTP relay
type SMTPTransport struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPTransport creates a transport for cfg
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPTransport{cfg: cfg, now: time.Now}
}

func (t *SMTPTransport) Name() string {
	return "smtp"
}

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	if t.cfg.TLSConfig != nil {
		return t.cfg.TLSConfig
	}
	return &tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}
}

// dial opens an authenticated session. The connection deadline follows ctx.
func (t *SMTPTransport) dial(ctx context.Context) (*smtp.Client, error) {
	addr := t.addr()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp: connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	var client *smtp.Client
	switch t.cfg.Security {
	case SecurityTLS:
		tlsConn := tls.Client(conn, t.tlsConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp: tls handshake with %s: %w", addr, err)
		}
		client = smtp.NewClient(tlsConn)
	case SecurityStartTLS:
		client, err = smtp.NewClientStartTLS(conn, t.tlsConfig())
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp: starttls with %s: %w", addr, err)
		}
	default:
		client = smtp.NewClient(conn)
	}

	if t.cfg.Username != "" {
		auth := sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp: auth: %w", err)
		}
	}

	return client, nil
}

// Send delivers msg in a single SMTP transaction
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	from, rcpts, err := msg.Envelope()
	if err != nil {
		return err
	}
	raw, err := msg.Bytes(t.now())
	if err != nil {
		return err
	}

	client, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.SendMail(from, rcpts, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}

	// The message is already accepted at this point; a failed QUIT does not undo it
	_ = client.Quit()
	return nil
}

// Verify connects, authenticates and issues a NOOP
func (t *SMTPTransport) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	client, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Noop(); err != nil {
		return fmt.Errorf("smtp: noop: %w", err)
	}
	return client.Quit()
}
