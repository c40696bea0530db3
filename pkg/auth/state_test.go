package auth

import (
	"testing"

	"github.com/tidechat/tidechat-go/pkg/models"
)

func TestStateCell_SubscribeDeliversCurrent(t *testing.T) {
	c := newStateCell()
	ch, cancel := c.subscribe()
	defer cancel()

	got := <-ch
	if got.Kind != StateNotAuthenticated {
		t.Errorf("initial state = %v, want %v", got.Kind, StateNotAuthenticated)
	}
}

func TestStateCell_MostRecentWins(t *testing.T) {
	c := newStateCell()
	ch, cancel := c.subscribe()
	defer cancel()

	// Slow subscriber: two transitions land before the first read. The
	// older one is displaced.
	c.set(State{Kind: StateAuthenticating})
	c.set(State{Kind: StateAuthenticated, User: &models.User{ID: "u1"}})

	got := <-ch
	if got.Kind != StateAuthenticated {
		t.Errorf("state = %v, want %v", got.Kind, StateAuthenticated)
	}
	if got.User == nil || got.User.ID != "u1" {
		t.Errorf("state user = %+v, want u1", got.User)
	}

	select {
	case s, ok := <-ch:
		if ok {
			t.Errorf("unexpected buffered state %v", s.Kind)
		}
	default:
	}
}

func TestStateCell_CancelClosesAndIsIdempotent(t *testing.T) {
	c := newStateCell()
	ch, cancel := c.subscribe()

	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// A transition after cancel must not panic on the closed channel.
	c.set(State{Kind: StateAuthenticating})
}

func TestStateKind_String(t *testing.T) {
	tests := []struct {
		kind StateKind
		want string
	}{
		{StateNotAuthenticated, "not_authenticated"},
		{StateAuthenticating, "authenticating"},
		{StateAnonymous, "anonymous"},
		{StateAuthenticated, "authenticated"},
		{StateError, "error"},
		{StateKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("StateKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
