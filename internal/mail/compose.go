package mail

import (
	"bytes"
	"fmt"
	"io"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

// Envelope returns the bare SMTP envelope sender and recipients
func (m *Message) Envelope() (string, []string, error) {
	from, err := gomail.ParseAddress(m.From)
	if err != nil {
		return "", nil, fmt.Errorf("invalid from address: %w", err)
	}
	to, err := parseAddresses(m.To)
	if err != nil {
		return "", nil, err
	}
	rcpts := make([]string, len(to))
	for i, a := range to {
		rcpts[i] = a.Address
	}
	return from.Address, rcpts, nil
}

// Bytes renders the message as RFC 5322 multipart/alternative text
func (m *Message) Bytes(now time.Time) ([]byte, error) {
	from, err := gomail.ParseAddress(m.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	to, err := parseAddresses(m.To)
	if err != nil {
		return nil, err
	}

	var h gomail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*gomail.Address{from})
	h.SetAddressList("To", to)
	if m.ReplyTo != "" {
		replyTo, err := gomail.ParseAddress(m.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
		h.SetAddressList("Reply-To", []*gomail.Address{replyTo})
	}
	h.SetSubject(m.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline writer: %w", err)
	}
	if err := writePart(tw, "text/plain", m.Text); err != nil {
		return nil, err
	}
	if m.HTML != "" {
		if err := writePart(tw, "text/html", m.HTML); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writePart(tw *gomail.InlineWriter, contentType, body string) error {
	var h gomail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}

func parseAddresses(list []string) ([]*gomail.Address, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("no recipients")
	}
	out := make([]*gomail.Address, 0, len(list))
	for _, s := range list {
		a, err := gomail.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", s, err)
		}
		out = append(out, a)
	}
	return out, nil
}
