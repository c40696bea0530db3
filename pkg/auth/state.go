package auth

import (
	"sync"

	"github.com/tidechat/tidechat-go/pkg/apierror"
	"github.com/tidechat/tidechat-go/pkg/models"
)

// StateKind identifies the authentication state variant.
type StateKind int

const (
	// StateNotAuthenticated is the initial state and the state after logout.
	StateNotAuthenticated StateKind = iota

	// StateAuthenticating is the transient state while a connect call is
	// in flight.
	StateAuthenticating

	// StateAnonymous is an established guest session.
	StateAnonymous

	// StateAuthenticated is an established full session.
	StateAuthenticated

	// StateError is a failed authentication or refresh. Re-enterable:
	// a subsequent Authenticate call leaves it.
	StateError
)

// String returns the state kind name.
func (k StateKind) String() string {
	switch k {
	case StateNotAuthenticated:
		return "not_authenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// State is one authentication state. User is set for StateAnonymous and
// StateAuthenticated; Err is set for StateError.
type State struct {
	Kind StateKind
	User *models.User
	Err  *apierror.Error
}

// Established reports whether the state carries a live session.
func (s State) Established() bool {
	return s.Kind == StateAnonymous || s.Kind == StateAuthenticated
}

// stateCell is the shared mutable authentication state plus its
// subscriber list. Subscribers get the current state on subscribe and
// every transition after; a slow subscriber sees the most recent state,
// not every intermediate one.
type stateCell struct {
	mu    sync.Mutex
	state State
	subs  map[chan State]struct{}
}

func newStateCell() *stateCell {
	return &stateCell{
		state: State{Kind: StateNotAuthenticated},
		subs:  make(map[chan State]struct{}),
	}
}

// current returns the current state.
func (c *stateCell) current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// set transitions to the new state and notifies subscribers.
func (c *stateCell) set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	for ch := range c.subs {
		push(ch, s)
	}
}

// subscribe registers a subscriber and delivers the current state
// immediately. The returned cancel func must be called to release the
// subscription.
func (c *stateCell) subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	push(ch, c.state)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// push delivers s without blocking, displacing an unconsumed older state.
func push(ch chan State, s State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
