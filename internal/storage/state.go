package storage

import "sync"

// State is the lifecycle position of a store.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateSchemaMigrating
	StateOpen
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateSchemaMigrating:
		return "schema_migrating"
	case StateOpen:
		return "open"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// lifecycle guards transitions. Failed is terminal for the process.
type lifecycle struct {
	mu    sync.RWMutex
	state State
	cause error
}

func (l *lifecycle) get() (State, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.cause
}

func (l *lifecycle) set(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *lifecycle) fail(err error) {
	l.mu.Lock()
	l.state = StateFailed
	l.cause = err
	l.mu.Unlock()
}
