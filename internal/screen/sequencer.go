// Package screen holds the bookkeeping shared by server-side screen models:
// request tokens that let a screen drop out-of-order responses, and the
// liveness flag that stops late responses from writing into a closed screen.
package screen

import (
	"errors"
	"sync"
)

// ErrSuperseded reports a response dropped because a newer request, or the
// screen closing, made it stale.
var ErrSuperseded = errors.New("screen: response superseded")

// Token identifies one issued request.
type Token uint64

// Sequencer issues monotonically increasing tokens per resource key and
// reports whether a completed request is still the latest one.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]Token
	next   Token
	closed bool
}

// NewSequencer returns an open Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]Token)}
}

// Begin issues a token for key, superseding every earlier token for that key.
func (s *Sequencer) Begin(key string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.latest[key] = s.next
	return s.next
}

// Invalidate supersedes every outstanding token for key without issuing a new one.
func (s *Sequencer) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.latest[key] = s.next
}

// Current reports whether tok is still the latest token for key and the
// screen has not been closed.
func (s *Sequencer) Current(key string, tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.latest[key] == tok
}

// Apply runs fn only if tok is current; the check and fn run under one lock
// so a newer Begin cannot interleave.
func (s *Sequencer) Apply(key string, tok Token, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.latest[key] != tok {
		return false
	}
	fn()
	return true
}

// Close marks the screen as unmounted. Every later Apply is a no-op.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
