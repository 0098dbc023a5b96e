// Package contactform is the client side of the contact pipeline: it holds
// the form fields, validates them with the relay's schema, and submits them
// with a single POST. It keeps no state beyond the fields and a submitted
// flag, and never retries.
package contactform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/osa911/portfolio/internal/api/dto/v1/contact"
	"github.com/osa911/portfolio/internal/api/sanitization"
	"github.com/osa911/portfolio/internal/api/validation"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/version"

	"github.com/go-playground/validator/v10"
)

// Endpoint is the relay URL. Override at build time with
// -ldflags "-X github.com/osa911/portfolio/internal/contactform.Endpoint=https://..."
var Endpoint = "https://api.osa911.dev/portfolio/send-mail"

// RevertDelay is how long the form shows its submitted state
const RevertDelay = 5 * time.Second

// Form fields
const (
	FieldName    = "name"
	FieldCompany = "company"
	FieldEmail   = "email"
	FieldMessage = "message"
)

// State of the form
type State int

const (
	Editing State = iota
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrBusy is returned when a submission is already in flight
	ErrBusy = errors.New("a submission is already in progress")
	// ErrUnknownField is returned by Set for names outside the form
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError lists field-level messages. No request was sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return "invalid form: " + strings.Join(msgs, "; ")
}

// SubmitError is a non-2xx answer from the relay
type SubmitError struct {
	StatusCode int
	Body       string
}

func (e *SubmitError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay responded %d", e.StatusCode)
	}
	return fmt.Sprintf("relay responded %d: %s", e.StatusCode, e.Body)
}

// AfterFunc schedules f after d and returns a function that cancels it
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Form is safe for concurrent use
type Form struct {
	mu         sync.Mutex
	fields     contact.SubmissionRequest
	state      State
	errors     map[string]string
	generation int
	stopRevert func() bool

	endpoint  string
	client    *http.Client
	validate  *validator.Validate
	logger    *logging.Logger
	afterFunc AfterFunc
}

// Option configures a Form
type Option func(*Form)

// WithEndpoint overrides Endpoint
func WithEndpoint(url string) Option {
	return func(f *Form) {
		f.endpoint = url
	}
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Form) {
		f.client = c
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(f *Form) {
		f.logger = l
	}
}

// WithAfterFunc replaces time.AfterFunc, for tests
func WithAfterFunc(fn AfterFunc) Option {
	return func(f *Form) {
		f.afterFunc = fn
	}
}

// New creates an empty form
func New(opts ...Option) *Form {
	f := &Form{
		endpoint:  Endpoint,
		client:    &http.Client{Timeout: 30 * time.Second},
		validate:  validation.New(),
		logger:    logging.Nop(),
		afterFunc: timeAfterFunc,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Set updates one field by its JSON name
func (f *Form) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case FieldName:
		f.fields.Name = value
	case FieldCompany:
		f.fields.Company = value
	case FieldEmail:
		f.fields.Email = value
	case FieldMessage:
		f.fields.Message = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	delete(f.errors, field)
	return nil
}

// Fields returns the raw field values
func (f *Form) Fields() contact.SubmissionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Display returns the field values with markup stripped, safe to render
func (f *Form) Display() contact.SubmissionRequest {
	fields := f.Fields()
	return contact.SubmissionRequest{
		Name:    sanitization.SanitizeLine(fields.Name),
		Company: sanitization.SanitizeLine(fields.Company),
		Email:   sanitization.SanitizeEmail(fields.Email),
		Message: sanitization.SanitizeString(fields.Message),
	}
}

// Errors returns the field messages from the last Validate or Submit
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Validate checks the fields and records the field messages.
// It returns nil when the form can be submitted.
func (f *Form) Validate() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, errs := f.validateLocked()
	return errs
}

func (f *Form) validateLocked() (contact.SubmissionRequest, map[string]string) {
	payload := f.fields
	payload.Normalize()

	var errs map[string]string
	if err := f.validate.Struct(&payload); err != nil {
		errs = validation.FieldMessages(err)
	}
	f.errors = errs
	return payload, errs
}

// Submit validates the form and, when valid, POSTs it to the relay.
// On success the fields are cleared and the form shows Submitted until
// RevertDelay passes or Dismiss is called. On failure the fields are kept.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return ErrBusy
	}
	payload, errs := f.validateLocked()
	if len(errs) > 0 {
		f.mu.Unlock()
		return &ValidationError{Fields: errs}
	}
	f.cancelRevertLocked()
	f.state = Submitting
	f.mu.Unlock()

	err := f.post(ctx, payload)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = Editing
		f.logger.Error("Contact form submission failed: %v", err)
		return err
	}

	f.fields = contact.SubmissionRequest{}
	f.errors = nil
	f.state = Submitted
	f.generation++
	gen := f.generation
	f.stopRevert = f.afterFunc(RevertDelay, func() {
		f.revert(gen)
	})
	return nil
}

// Dismiss leaves the submitted state immediately
func (f *Form) Dismiss() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Submitted {
		return
	}
	f.cancelRevertLocked()
	f.state = Editing
}

func (f *Form) revert(gen int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// A later submission owns the state now
	if gen != f.generation || f.state != Submitted {
		return
	}
	f.stopRevert = nil
	f.state = Editing
}

func (f *Form) cancelRevertLocked() {
	if f.stopRevert != nil {
		f.stopRevert()
		f.stopRevert = nil
	}
}

func (f *Form) post(ctx context.Context, payload contact.SubmissionRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain, application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach relay: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SubmitError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	return nil
}
