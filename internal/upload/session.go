package upload

import (
	"context"
	"sync"

	"github.com/iago/atomize-client/internal/domain"
)

type State int

const (
	StateIdle State = iota
	StateBusy
	StateSucceeded
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Resubmittable reports whether a new submission may start from this state.
func (s State) Resubmittable() bool {
	return s != StateBusy
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
)

// Session is one upload transport. Listener calls for a session happen under
// notifyMu, so a listener must not call Cancel from inside a callback.
type Session struct {
	seq      uint64
	cancel   context.CancelFunc
	listener Listener

	notifyMu sync.Mutex

	mu           sync.Mutex
	state        State
	percent      int
	userCanceled bool
	jobID        string
	err          error
}

func newSession(seq uint64, cancel context.CancelFunc, listener Listener) *Session {
	return &Session{seq: seq, cancel: cancel, listener: listener, state: StateIdle}
}

func (s *Session) Seq() uint64 {
	return s.seq
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Percent is the last known progress, 0 until the transport reports a
// computable length.
func (s *Session) Percent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percent
}

func (s *Session) JobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) begin() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state = StateBusy
	s.percent = 0
	s.mu.Unlock()

	s.listener.OnBusy(s)
}

func (s *Session) reportProgress(loaded, total int64) {
	percent, ok := Percent(loaded, total)
	if !ok {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.state != StateBusy || percent == s.percent {
		s.mu.Unlock()
		return
	}
	s.percent = percent
	s.mu.Unlock()

	s.listener.OnProgress(s, percent)
}

// settle records the transport outcome. Only the first of settle or abort
// wins; later calls report false and notify nobody.
func (s *Session) settle(result outcome, created domain.JobCreated, err error) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.state != StateBusy {
		s.mu.Unlock()
		return false
	}
	if result == outcomeSucceeded {
		s.state = StateSucceeded
		s.jobID = created.ID
	} else {
		s.state = StateFailed
		s.err = err
	}
	s.mu.Unlock()

	if result == outcomeSucceeded {
		s.listener.OnSucceeded(s, created)
	} else {
		s.listener.OnFailed(s, err)
	}
	return true
}

func (s *Session) abort() bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.state != StateBusy {
		s.mu.Unlock()
		return false
	}
	s.state = StateCanceled
	s.userCanceled = true
	s.err = ErrCanceled
	s.mu.Unlock()

	s.cancel()
	s.listener.OnCanceled(s)
	return true
}

func (s *Session) canceledByUser() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userCanceled
}
