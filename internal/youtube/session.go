package youtube

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle position of an UploadSession.
type State int

const (
	StateInitiating State = iota
	StateTransferring
	StateCompleted
	StateCanceled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitiating:
		return "initiating"
	case StateTransferring:
		return "transferring"
	case StateCompleted:
		return "completed"
	case StateCanceled:
		return "canceled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCanceled || s == StateFailed
}

// UploadSession is one negotiated resumable upload. URL is the
// provider-issued session URL; it is pre-authenticated and must be treated
// as a secret. Only the Client mutates a session; BytesSent and State are
// safe to read from other goroutines.
type UploadSession struct {
	ID         string // local correlation id for logs
	URL        string
	TotalBytes int64

	mu        sync.Mutex
	bytesSent int64
	state     State
}

func newUploadSession(sessionURL string, total int64) *UploadSession {
	return &UploadSession{
		ID:         uuid.NewString(),
		URL:        sessionURL,
		TotalBytes: total,
		state:      StateInitiating,
	}
}

// State returns the current state.
func (s *UploadSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// BytesSent returns how many bytes have been handed to the transport.
func (s *UploadSession) BytesSent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bytesSent
}

// begin moves Initiating to Transferring. Returns false from any other state.
func (s *UploadSession) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInitiating {
		return false
	}

	s.state = StateTransferring

	return true
}

// finish moves Transferring to a terminal state. Terminal states are sticky,
// so the first outcome wins and later calls return false.
func (s *UploadSession) finish(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTransferring {
		return false
	}

	s.state = to

	return true
}

// add records n more bytes sent and returns the new total.
func (s *UploadSession) add(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bytesSent += n

	return s.bytesSent
}

// setSent records the provider-confirmed offset before a resumed transfer.
func (s *UploadSession) setSent(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bytesSent = n
}
