// Package mailtest provides a recording mail.Transport for tests
package mailtest

import (
	"context"
	"sync"

	"github.com/osa911/portfolio/internal/mail"
)

// Recorder records every message it is asked to send
type Recorder struct {
	mu        sync.Mutex
	messages  []*mail.Message
	attempts  int
	SendErr   error
	VerifyErr error
}

func (r *Recorder) Name() string {
	return "recorder"
}

// Send records msg and returns SendErr
func (r *Recorder) Send(_ context.Context, msg *mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.SendErr != nil {
		return r.SendErr
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *Recorder) Verify(_ context.Context) error {
	return r.VerifyErr
}

// Attempts returns how many times Send was called
func (r *Recorder) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Messages returns the successfully sent messages
func (r *Recorder) Messages() []*mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*mail.Message(nil), r.messages...)
}
