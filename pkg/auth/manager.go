package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/tidechat/tidechat-go/pkg/apierror"
	"github.com/tidechat/tidechat-go/pkg/models"
	"github.com/tidechat/tidechat-go/pkg/storage"
	"github.com/tidechat/tidechat-go/pkg/token"
)

// DefaultRefreshThreshold is how long before expiry a token is refreshed.
const DefaultRefreshThreshold = 5 * time.Minute

// Config holds session manager configuration. The zero value is usable.
type Config struct {
	// RefreshThreshold is the proactive-refresh window before token
	// expiry. Defaults to DefaultRefreshThreshold.
	RefreshThreshold time.Duration

	// AnonymousTokens supplies guest tokens for AuthenticateAnonymously.
	// Optional.
	AnonymousTokens AnonymousTokenProvider

	// Logger receives diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// Now overrides the clock. Tests only.
	Now func() time.Time
}

// session is the in-memory record of the established session. It is the
// source of truth while the process lives; the token store is its cache.
type session struct {
	token     string
	expiresAt time.Time
	user      *models.User
}

// refreshCall is the single-slot in-flight refresh. The first caller
// creates it and performs the backend call; concurrent callers wait on
// done and share the outcome.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Manager owns the client session and its authentication state machine.
type Manager struct {
	store   storage.TokenStore
	backend Backend
	anon    AnonymousTokenProvider

	threshold time.Duration
	logger    *slog.Logger
	now       func() time.Time

	cell *stateCell

	// mu guards the session record and orders storage writes before the
	// corresponding state transition becomes observable.
	mu   sync.Mutex
	sess session

	refreshMu sync.Mutex
	inflight  *refreshCall
}

// NewManager creates a session manager in StateNotAuthenticated.
func NewManager(store storage.TokenStore, backend Backend, cfg Config) *Manager {
	m := &Manager{
		store:     store,
		backend:   backend,
		anon:      cfg.AnonymousTokens,
		threshold: cfg.RefreshThreshold,
		logger:    cfg.Logger,
		now:       cfg.Now,
		cell:      newStateCell(),
	}
	if m.threshold == 0 {
		m.threshold = DefaultRefreshThreshold
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// State returns the current authentication state.
func (m *Manager) State() State {
	return m.cell.current()
}

// Subscribe returns an ordered stream of state changes. The current
// state is delivered immediately; a subscriber that falls behind sees
// the most recent state rather than every intermediate one. The cancel
// func releases the subscription.
func (m *Manager) Subscribe() (<-chan State, func()) {
	return m.cell.subscribe()
}

// CurrentUser returns the user of the established session, or nil.
func (m *Manager) CurrentUser() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.user
}

// Authenticate establishes a session with a caller-supplied token.
//
// The token is validated structurally, the backend connect endpoint is
// called with it, and on success the credentials are persisted before
// the state transition to Anonymous/Authenticated becomes observable.
// Any failure transitions to StateError and returns the typed error.
func (m *Manager) Authenticate(ctx context.Context, userID, tok string, anonymous bool) (*models.User, error) {
	m.cell.set(State{Kind: StateAuthenticating})

	claims, err := token.Parse(tok)
	if err != nil {
		return nil, m.fail(apierror.From(err))
	}
	if userID != "" && claims.UserID != userID {
		return nil, m.fail(apierror.NewInvalidToken("token subject does not match user id"))
	}

	user, err := m.backend.Connect(ctx, userID, tok, anonymous)
	if err != nil {
		return nil, m.fail(m.connectError(err))
	}

	m.mu.Lock()
	if err := m.persistLocked(ctx, tok, claims.ExpiresAt, user); err != nil {
		m.mu.Unlock()
		return nil, m.fail(apierror.NewAuthenticationFailed("persist session", err))
	}
	m.sess = session{token: tok, expiresAt: claims.ExpiresAt, user: user}
	m.mu.Unlock()

	kind := StateAuthenticated
	if anonymous || user.Anonymous {
		kind = StateAnonymous
	}
	m.cell.set(State{Kind: kind, User: user})

	m.logger.Info("session established",
		"user_id", user.ID,
		"anonymous", anonymous || user.Anonymous,
		"expires_at", claims.ExpiresAt,
	)
	return user, nil
}

// AuthenticateAnonymously establishes a guest session. The guest token
// comes from the configured AnonymousTokenProvider; the SDK never mints
// claims itself.
func (m *Manager) AuthenticateAnonymously(ctx context.Context, userID string) (*models.User, error) {
	if m.anon == nil {
		return nil, m.fail(apierror.NewAuthenticationFailed("no anonymous token provider configured", nil))
	}

	m.cell.set(State{Kind: StateAuthenticating})
	tok, err := m.anon.AnonymousToken(ctx, userID)
	if err != nil {
		return nil, m.fail(m.connectError(err))
	}
	return m.Authenticate(ctx, userID, tok, true)
}

// RefreshToken exchanges the current token for a new one.
//
// At most one refresh is in flight per session: concurrent callers
// attach to the existing call and receive its outcome. The new token is
// validated like in Authenticate and persisted before being returned.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	if call := m.inflight; call != nil {
		m.refreshMu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			// The shared refresh keeps running for the other waiters.
			return "", ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	m.refreshMu.Unlock()

	call.token, call.err = m.doRefresh(ctx)
	close(call.done)

	m.refreshMu.Lock()
	m.inflight = nil
	m.refreshMu.Unlock()

	return call.token, call.err
}

// doRefresh performs the actual backend refresh. Only one goroutine runs
// this at a time (see RefreshToken).
func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	current := m.sess.token
	m.mu.Unlock()
	if current == "" {
		return "", apierror.NewNotAuthenticated("no session token to refresh")
	}

	newTok, err := m.backend.RefreshToken(ctx, current)
	if err != nil {
		return "", m.fail(apierror.NewRefreshFailed("backend token refresh failed", err))
	}

	claims, err := token.Parse(newTok)
	if err != nil {
		return "", m.fail(apierror.From(err))
	}

	m.mu.Lock()
	if m.sess.token != current {
		// The session ended or was replaced while the backend call was in
		// flight. Persisting the result would resurrect credentials that
		// Logout already cleared, so discard it.
		m.mu.Unlock()
		return "", apierror.NewNotAuthenticated("session ended during refresh")
	}
	if err := m.persistLocked(ctx, newTok, claims.ExpiresAt, m.sess.user); err != nil {
		m.mu.Unlock()
		return "", m.fail(apierror.NewRefreshFailed("persist refreshed token", err))
	}
	m.sess.token = newTok
	m.sess.expiresAt = claims.ExpiresAt
	m.mu.Unlock()

	m.logger.Debug("token refreshed", "expires_at", claims.ExpiresAt)
	return newTok, nil
}

// CheckTokenRefresh reports whether a proactive refresh is due: a token
// is present and expires within the refresh threshold. It never mutates
// state.
func (m *Manager) CheckTokenRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.token == "" || m.sess.expiresAt.IsZero() {
		return false
	}
	return m.sess.expiresAt.Sub(m.now()) <= m.threshold
}

// GetValidToken returns the session token, refreshing it first when the
// refresh threshold has been reached. Every outgoing API call routes
// through here before attaching a bearer token.
func (m *Manager) GetValidToken(ctx context.Context) (string, error) {
	if !m.CheckTokenRefresh() {
		m.mu.Lock()
		tok := m.sess.token
		m.mu.Unlock()
		if tok == "" {
			return "", apierror.NewNotAuthenticated("no active session")
		}
		return tok, nil
	}
	return m.RefreshToken(ctx)
}

// RestoreSession rebuilds the session from the token store after a
// process restart. Invalid or unparsable stored data clears the store
// and returns no user; the backend is not contacted on those paths. A
// token within the refresh threshold is refreshed before the restored
// state becomes observable.
func (m *Manager) RestoreSession(ctx context.Context) (*models.User, error) {
	if st := m.cell.current(); st.Established() {
		return st.User, nil
	}

	tok, err := m.store.Retrieve(ctx, storage.KeyToken)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.From(err)
	}

	userJSON, err := m.store.Retrieve(ctx, storage.KeyUser)
	if err != nil {
		m.clearLocal(ctx)
		return nil, nil
	}
	user, err := models.UnmarshalUser([]byte(userJSON))
	if err != nil || user.ID == "" {
		m.clearLocal(ctx)
		return nil, nil
	}

	claims, err := token.Parse(tok)
	if err != nil {
		m.clearLocal(ctx)
		return nil, nil
	}

	m.mu.Lock()
	m.sess = session{token: tok, expiresAt: claims.ExpiresAt, user: user}
	m.mu.Unlock()

	if m.CheckTokenRefresh() {
		if _, err := m.RefreshToken(ctx); err != nil {
			m.logger.Warn("restore: token refresh failed", "error", err)
			m.clearLocal(ctx)
			m.cell.set(State{Kind: StateNotAuthenticated})
			return nil, nil
		}
	}

	kind := StateAuthenticated
	if user.Anonymous {
		kind = StateAnonymous
	}
	m.cell.set(State{Kind: kind, User: user})
	return user, nil
}

// Logout ends the session. The backend is notified best-effort, the
// store is cleared unconditionally, and the state always returns to
// NotAuthenticated. Idempotent; never fails.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	tok := m.sess.token
	m.mu.Unlock()

	if tok != "" {
		if err := m.backend.Disconnect(ctx, tok); err != nil {
			m.logger.Warn("backend disconnect failed", "error", err)
		}
	}

	m.clearLocal(ctx)
	m.cell.set(State{Kind: StateNotAuthenticated})
}

// Resync adopts a token another process wrote to the shared store (see
// storage.Watcher). The in-memory session must already be established;
// only the token and expiry are adopted.
func (m *Manager) Resync(ctx context.Context) error {
	tok, err := m.store.Retrieve(ctx, storage.KeyToken)
	if err != nil {
		return apierror.From(err)
	}
	claims, err := token.Parse(tok)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.user == nil {
		return apierror.NewNotAuthenticated("no active session to resync")
	}
	if m.sess.token == tok {
		return nil
	}
	m.sess.token = tok
	m.sess.expiresAt = claims.ExpiresAt
	m.logger.Debug("adopted externally refreshed token", "expires_at", claims.ExpiresAt)
	return nil
}

// fail transitions to StateError and returns the error.
func (m *Manager) fail(ae *apierror.Error) *apierror.Error {
	m.cell.set(State{Kind: StateError, Err: ae})
	return ae
}

// connectError maps a backend failure onto the taxonomy: a typed error
// passes through, anything else becomes a synthesized 401-class
// authentication error.
func (m *Manager) connectError(err error) *apierror.Error {
	var ae *apierror.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apierror.NewAuthenticationFailed("authentication failed", err)
}

// persistLocked writes token, serialized user, and expiry to the store.
// Callers hold m.mu so no state transition is observable before the
// writes complete.
func (m *Manager) persistLocked(ctx context.Context, tok string, expiresAt time.Time, user *models.User) error {
	if err := m.store.Store(ctx, storage.KeyToken, tok); err != nil {
		return err
	}
	if user != nil {
		data, err := models.MarshalUser(user)
		if err != nil {
			return err
		}
		if err := m.store.Store(ctx, storage.KeyUser, string(data)); err != nil {
			return err
		}
	}
	return m.store.Store(ctx, storage.KeyExpiry, strconv.FormatInt(expiresAt.Unix(), 10))
}

// clearLocal wipes the store and the in-memory session. Storage faults
// are logged and swallowed; the session always clears.
func (m *Manager) clearLocal(ctx context.Context) {
	for _, key := range []string{storage.KeyToken, storage.KeyUser, storage.KeyExpiry} {
		if err := m.store.Clear(ctx, key); err != nil {
			m.logger.Warn("clear credential key failed", "key", key, "error", err)
		}
	}
	m.mu.Lock()
	m.sess = session{}
	m.mu.Unlock()
}
