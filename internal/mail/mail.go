// Package mail composes outbound messages and hands them to a delivery
// transport. Transports are synchronous: Send returns once the provider
// has accepted or rejected the message.
package mail

import (
	"context"
	"errors"
)

// ErrTransportNotConfigured is returned when a transport lacks credentials
var ErrTransportNotConfigured = errors.New("mail transport not configured")

// Message is a single outbound email. Body fields must already be sanitized.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers composed messages
type Transport interface {
	// Send delivers msg. It is atomic from the caller's point of view:
	// either the provider accepted the message or an error is returned.
	Send(ctx context.Context, msg *Message) error
	// Verify checks that the provider is reachable and credentials work
	Verify(ctx context.Context) error
	// Name identifies the transport in logs and metrics
	Name() string
}
