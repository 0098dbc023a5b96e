package mail

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() *Message {
	return &Message{
		From:    "Portfolio Relay <relay@osa911.dev>",
		To:      []string{"hello@osa911.dev"},
		ReplyTo: "alice@example.com",
		Subject: "New portfolio message from Alice",
		Text:    "Name: Alice\nMessage:\nHello there",
		HTML:    "<p><strong>Name:</strong> Alice</p>",
	}
}

func TestEnvelope(t *testing.T) {
	from, rcpts, err := testMessage().Envelope()
	require.NoError(t, err)
	assert.Equal(t, "relay@osa911.dev", from)
	assert.Equal(t, []string{"hello@osa911.dev"}, rcpts)
}

func TestEnvelopeRejectsBadAddresses(t *testing.T) {
	msg := testMessage()
	msg.To = nil
	_, _, err := msg.Envelope()
	assert.Error(t, err)

	msg = testMessage()
	msg.From = "not an address"
	_, _, err = msg.Envelope()
	assert.Error(t, err)
}

func TestBytesRoundTrip(t *testing.T) {
	raw, err := testMessage().Bytes(time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "New portfolio message from Alice", subject)

	replyTo, err := mr.Header.AddressList("Reply-To")
	require.NoError(t, err)
	require.Len(t, replyTo, 1)
	assert.Equal(t, "alice@example.com", replyTo[0].Address)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "hello@osa911.dev", to[0].Address)

	var bodies []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		bodies = append(bodies, strings.ReplaceAll(string(b), "\r\n", "\n"))
	}
	require.Len(t, bodies, 2)
	assert.Equal(t, "Name: Alice\nMessage:\nHello there", bodies[0])
	assert.Equal(t, "<p><strong>Name:</strong> Alice</p>", bodies[1])
}

func TestBytesEncodesNonASCIISubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = "New portfolio message from Zoë"

	raw, err := msg.Bytes(time.Now())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Zoë")

	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "New portfolio message from Zoë", subject)
}
