package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendTransport delivers mail through the Resend HTTPS API
type ResendTransport struct {
	client *resend.Client
	apiKey string
}

// NewResendTransport creates a transport authenticated with apiKey
func NewResendTransport(apiKey string) *ResendTransport {
	return NewResendTransportWithClient(resend.NewClient(apiKey), apiKey)
}

// NewResendTransportWithClient wraps an existing client
func NewResendTransportWithClient(client *resend.Client, apiKey string) *ResendTransport {
	return &ResendTransport{client: client, apiKey: apiKey}
}

func (t *ResendTransport) Name() string {
	return "resend"
}

// Send implements Transport
func (t *ResendTransport) Send(ctx context.Context, msg *Message) error {
	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}

	if _, err := t.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

// Verify only checks that credentials are present; the API is stateless HTTPS
func (t *ResendTransport) Verify(ctx context.Context) error {
	if t.apiKey == "" {
		return fmt.Errorf("resend: %w", ErrTransportNotConfigured)
	}
	return nil
}
