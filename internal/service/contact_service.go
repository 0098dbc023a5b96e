package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osa911/portfolio/internal/api/dto/v1/contact"
	"github.com/osa911/portfolio/internal/api/sanitization"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/mail"
	"github.com/osa911/portfolio/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Submission is a contact form payload with every field sanitized.
// It lives for a single request and is never stored.
type Submission struct {
	Name    string
	Company string
	Email   string
	Message string
}

// NewSubmission sanitizes a validated request
func NewSubmission(req contact.SubmissionRequest) Submission {
	return Submission{
		Name:    sanitization.SanitizeLine(req.Name),
		Company: sanitization.SanitizeLine(req.Company),
		Email:   sanitization.SanitizeEmail(req.Email),
		Message: sanitization.SanitizeString(req.Message),
	}
}

// ContactRelayService turns submissions into one outbound email each
type ContactRelayService struct {
	transport mail.Transport
	from      string
	to        []string
	logger    *logging.Logger
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
}

// NewContactRelayService creates a relay sending from and to the operator addresses
func NewContactRelayService(transport mail.Transport, from, to string, logger *logging.Logger, metrics *telemetry.Metrics) *ContactRelayService {
	return &ContactRelayService{
		transport: transport,
		from:      from,
		to:        []string{to},
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer("github.com/osa911/portfolio/internal/service"),
	}
}

// plainText undoes the sanitizer's escaping of ampersands and quotes for the
// text/plain part and the subject. Angle brackets stay escaped.
var plainText = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`, "&quot;", `"`)

// Compose builds the outbound email for sub
func (s *ContactRelayService) Compose(sub Submission) *mail.Message {
	name := sub.Name
	if name == "" {
		name = "anonymous"
	}

	var text strings.Builder
	fmt.Fprintf(&text, "New contact form submission\n\n")
	fmt.Fprintf(&text, "Name: %s\n", plainText.Replace(name))
	if sub.Company != "" {
		fmt.Fprintf(&text, "Company: %s\n", plainText.Replace(sub.Company))
	}
	fmt.Fprintf(&text, "Email: %s\n\n", plainText.Replace(sub.Email))
	fmt.Fprintf(&text, "Message:\n%s\n", plainText.Replace(sub.Message))

	var html strings.Builder
	html.WriteString("<h2>New contact form submission</h2>\n")
	fmt.Fprintf(&html, "<p><strong>Name:</strong> %s</p>\n", name)
	if sub.Company != "" {
		fmt.Fprintf(&html, "<p><strong>Company:</strong> %s</p>\n", sub.Company)
	}
	fmt.Fprintf(&html, "<p><strong>Email:</strong> %s</p>\n", sub.Email)
	fmt.Fprintf(&html, "<p><strong>Message:</strong></p>\n<p>%s</p>\n", strings.ReplaceAll(sub.Message, "\n", "<br>\n"))

	return &mail.Message{
		From:    s.from,
		To:      s.to,
		ReplyTo: sub.Email,
		Subject: "New portfolio message from " + plainText.Replace(name),
		Text:    text.String(),
		HTML:    html.String(),
	}
}

// Relay composes and sends one email for sub and waits for the result.
// A submission whose email or message sanitized to nothing fails with
// ErrValidation and is never handed to the transport.
// The send is not cancelled when ctx is; only the transport timeout stops it.
func (s *ContactRelayService) Relay(ctx context.Context, sub Submission) error {
	if sub.Email == "" || sub.Message == "" {
		s.logger.Warn("Dropped submission from %s with nothing left to send after sanitizing", sub.Name)
		return fmt.Errorf("%w: email and message must not be empty after sanitizing", ErrValidation)
	}

	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), "contact.relay",
		trace.WithAttributes(attribute.String("mail.transport", s.transport.Name())))
	defer span.End()

	msg := s.Compose(sub)

	start := time.Now()
	err := s.transport.Send(ctx, msg)
	s.metrics.ObserveSend(s.transport.Name(), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		s.logger.Error("Failed to relay message from %s <%s> via %s: %v", sub.Name, sub.Email, s.transport.Name(), err)
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	s.logger.Info("Relayed message from %s <%s> via %s", sub.Name, sub.Email, s.transport.Name())
	return nil
}

// Verify checks the transport once at startup
func (s *ContactRelayService) Verify(ctx context.Context) error {
	if err := s.transport.Verify(ctx); err != nil {
		return logging.WrapError(err, fmt.Sprintf("%s transport verification failed", s.transport.Name()))
	}
	return nil
}
