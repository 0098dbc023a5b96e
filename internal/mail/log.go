package mail

import (
	"context"
	"strings"

	"github.com/osa911/portfolio/internal/logging"
)

// LogTransport logs messages instead of sending them. Development only.
type LogTransport struct {
	logger *logging.Logger
}

// NewLogTransport creates a log-based transport
func NewLogTransport(logger *logging.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Name() string {
	return "log"
}

// Send logs the message headers and text body
func (t *LogTransport) Send(ctx context.Context, msg *Message) error {
	t.logger.Info(`
================================================================================
EMAIL (dev mode - not actually sent)
================================================================================
From:     %s
To:       %s
Reply-To: %s
Subject:  %s
--------------------------------------------------------------------------------
%s
================================================================================`,
		msg.From, strings.Join(msg.To, ", "), msg.ReplyTo, msg.Subject, msg.Text)
	return nil
}

func (t *LogTransport) Verify(ctx context.Context) error {
	return nil
}
