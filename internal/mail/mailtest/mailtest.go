// Package mailtest provides an in-memory mail.Sender for tests.
package mailtest

import (
	"context"
	"errors"
	"sync"

	"voucher-market/internal/mail"
)

// ErrSendFailed is returned by RecordingSender when configured to fail
var ErrSendFailed = errors.New("mail: send failed")

// RecordingSender keeps sent messages in memory
type RecordingSender struct {
	mu       sync.Mutex
	messages []mail.Message
	// Fail makes every Send return ErrSendFailed
	Fail bool
	// Block makes Send wait until ctx is done
	Block bool
}

var _ mail.Sender = (*RecordingSender)(nil)

func (s *RecordingSender) Send(ctx context.Context, msg mail.Message) error {
	if s.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.Fail {
		return ErrSendFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far
func (s *RecordingSender) Messages() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mail.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the most recent message
func (s *RecordingSender) Last() (mail.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return mail.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
