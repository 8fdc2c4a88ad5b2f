package asr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HandshakeTimeout bounds the wait for a connection-ready signal from a
// streaming vendor during Start.
const HandshakeTimeout = 10 * time.Second

// SessionState tracks the lifecycle of one transcription attempt.
type SessionState int

const (
	StateIdle SessionState = iota
	StateConnecting
	StateActive
	StateDraining
	StateCompleted
	StateFailed
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the state is final. A new recognition attempt
// requires a fresh Start.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// TranscriptDelta is one unit of incremental recognition output.
// Replace means this delta supersedes the previously emitted non-final
// text for the current utterance; otherwise the text is appended.
type TranscriptDelta struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Replace bool   `json:"replace"`
}

// DeltaFunc receives transcript deltas from an adapter. Called zero or
// more times per session, at most once with IsFinal set, and never after
// Stop returns or ErrorFunc fires.
type DeltaFunc func(delta TranscriptDelta)

// ErrorFunc receives the error that terminated a session mid-stream.
type ErrorFunc func(err error)

// Session represents one transcription attempt. It is owned exclusively
// by the adapter that created it and destroyed on Stop or on an
// unrecoverable error.
type Session struct {
	ID       string
	Provider string
	Created  time.Time

	mu    sync.Mutex
	state SessionState
}

// NewSession creates a session in the idle state.
func NewSession(provider string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Provider: provider,
		Created:  time.Now(),
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState unconditionally moves the session to the given state unless a
// terminal state has already been reached.
func (s *Session) SetState(next SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = next
}

// Transition moves from one specific state to another. It returns false
// without changing anything if the session is not in the expected state.
func (s *Session) Transition(from, to SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// Adapter is the uniform contract every vendor adapter implements,
// whether the vendor is push-streaming or upload-and-poll.
type Adapter interface {
	// Name returns the provider name the adapter is registered under.
	Name() string

	// Start establishes the vendor session. For streaming vendors this
	// performs the authenticated handshake and opens the duplex channel.
	// Starting while a session is active stops the previous session
	// first; at most one session per adapter is ever active.
	Start(ctx context.Context, onDelta DeltaFunc, onErr ErrorFunc) (*Session, error)

	// Feed transmits one unit of audio. Streaming vendors send it
	// immediately, chunked to the vendor's maximum per-message size;
	// upload vendors buffer until Stop. Returns ErrSessionNotReady if
	// the session is not active.
	Feed(session *Session, data []byte) error

	// Stop finalizes the session: streaming vendors send the
	// end-of-stream control message and close the transport, upload
	// vendors perform the upload-plus-poll completion. Safe to call
	// multiple times; a second call is a no-op.
	Stop(session *Session) error
}
