package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidechat/tidechat-go/pkg/apierror"
	"github.com/tidechat/tidechat-go/pkg/models"
	"github.com/tidechat/tidechat-go/pkg/storage"
)

// mkToken builds a structurally valid compact token for tests.
func mkToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	enc := func(v any) string {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal segment: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(data)
	}
	header := enc(map[string]string{"alg": "HS256", "typ": "JWT"})
	claims := enc(map[string]any{"user_id": userID, "exp": exp.Unix(), "iat": time.Now().Unix()})
	sig := base64.RawURLEncoding.EncodeToString([]byte("signature"))
	return header + "." + claims + "." + sig
}

// fakeBackend records calls and returns scripted results.
type fakeBackend struct {
	mu sync.Mutex

	connectUser *models.User
	connectErr  error
	connects    int

	refreshNext  func() (string, error)
	refreshDelay time.Duration
	refreshes    atomic.Int32

	disconnects []string
}

func (b *fakeBackend) Connect(_ context.Context, userID, _ string, anonymous bool) (*models.User, error) {
	b.mu.Lock()
	b.connects++
	b.mu.Unlock()
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	if b.connectUser != nil {
		return b.connectUser, nil
	}
	return &models.User{ID: userID, Anonymous: anonymous}, nil
}

func (b *fakeBackend) RefreshToken(_ context.Context, _ string) (string, error) {
	b.refreshes.Add(1)
	if b.refreshDelay > 0 {
		time.Sleep(b.refreshDelay)
	}
	return b.refreshNext()
}

func (b *fakeBackend) Disconnect(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnects = append(b.disconnects, token)
	return nil
}

func newTestManager(backend *fakeBackend, cfg Config) (*Manager, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewManager(store, backend, cfg), store
}

func TestManager_Authenticate(t *testing.T) {
	backend := &fakeBackend{}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	tok := mkToken(t, "u1", time.Now().Add(time.Hour))
	user, err := m.Authenticate(ctx, "u1", tok, false)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user.ID = %q, want u1", user.ID)
	}
	if st := m.State(); st.Kind != StateAuthenticated {
		t.Errorf("state = %v, want %v", st.Kind, StateAuthenticated)
	}

	// Credentials are persisted before the state transition, so all
	// three keys must be present now.
	for _, key := range []string{storage.KeyToken, storage.KeyUser, storage.KeyExpiry} {
		if _, err := store.Retrieve(ctx, key); err != nil {
			t.Errorf("Retrieve(%q) error = %v, want stored", key, err)
		}
	}
	stored, _ := store.Retrieve(ctx, storage.KeyToken)
	if stored != tok {
		t.Errorf("stored token = %q, want the authenticated token", stored)
	}
}

func TestManager_Authenticate_InvalidToken(t *testing.T) {
	backend := &fakeBackend{}
	m, _ := newTestManager(backend, Config{})

	_, err := m.Authenticate(context.Background(), "u1", "not.a", false)
	if !apierror.IsKind(err, apierror.KindInvalidToken) {
		t.Fatalf("Authenticate() error = %v, want KindInvalidToken", err)
	}
	if backend.connects != 0 {
		t.Error("backend must not be contacted for a malformed token")
	}
	if st := m.State(); st.Kind != StateError || st.Err == nil {
		t.Errorf("state = %+v, want StateError with Err set", st)
	}
}

func TestManager_Authenticate_SubjectMismatch(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{}, Config{})

	tok := mkToken(t, "someone-else", time.Now().Add(time.Hour))
	_, err := m.Authenticate(context.Background(), "u1", tok, false)
	if !apierror.IsKind(err, apierror.KindInvalidToken) {
		t.Fatalf("Authenticate() error = %v, want KindInvalidToken", err)
	}
}

func TestManager_Authenticate_BackendAPIError(t *testing.T) {
	original := apierror.New(40, "token expired", 401)
	backend := &fakeBackend{connectErr: original}
	m, _ := newTestManager(backend, Config{})

	_, err := m.Authenticate(context.Background(), "u1", mkToken(t, "u1", time.Now().Add(time.Hour)), false)
	if !errors.Is(err, original) {
		t.Fatalf("Authenticate() error = %v, want the backend's API error", err)
	}
	st := m.State()
	if st.Kind != StateError || !errors.Is(st.Err, original) {
		t.Errorf("state = %+v, want StateError carrying the API error", st)
	}
}

func TestManager_Authenticate_UntypedBackendError(t *testing.T) {
	backend := &fakeBackend{connectErr: errors.New("boom")}
	m, _ := newTestManager(backend, Config{})

	_, err := m.Authenticate(context.Background(), "u1", mkToken(t, "u1", time.Now().Add(time.Hour)), false)
	if !apierror.IsKind(err, apierror.KindAuthenticationFailed) {
		t.Fatalf("Authenticate() error = %v, want synthesized KindAuthenticationFailed", err)
	}
	var ae *apierror.Error
	if errors.As(err, &ae) && ae.HTTPStatus != 401 {
		t.Errorf("synthesized error status = %d, want 401", ae.HTTPStatus)
	}
}

func TestManager_AuthenticateAnonymously(t *testing.T) {
	backend := &fakeBackend{}
	tok := mkToken(t, "guest-1", time.Now().Add(time.Hour))
	m, _ := newTestManager(backend, Config{
		AnonymousTokens: anonProviderFunc(func(_ context.Context, _ string) (string, error) {
			return tok, nil
		}),
	})

	user, err := m.AuthenticateAnonymously(context.Background(), "guest-1")
	if err != nil {
		t.Fatalf("AuthenticateAnonymously() error = %v", err)
	}
	if !user.Anonymous {
		t.Error("user.Anonymous = false, want true")
	}
	if st := m.State(); st.Kind != StateAnonymous {
		t.Errorf("state = %v, want %v", st.Kind, StateAnonymous)
	}
}

func TestManager_AuthenticateAnonymously_NoProvider(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{}, Config{})

	_, err := m.AuthenticateAnonymously(context.Background(), "guest-1")
	if !apierror.IsKind(err, apierror.KindAuthenticationFailed) {
		t.Fatalf("AuthenticateAnonymously() error = %v, want KindAuthenticationFailed", err)
	}
}

type anonProviderFunc func(ctx context.Context, userID string) (string, error)

func (f anonProviderFunc) AnonymousToken(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

func TestManager_GetValidToken_FreshToken(t *testing.T) {
	backend := &fakeBackend{}
	m, _ := newTestManager(backend, Config{})
	ctx := context.Background()

	tok := mkToken(t, "u1", time.Now().Add(time.Hour))
	if _, err := m.Authenticate(ctx, "u1", tok, false); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	got, err := m.GetValidToken(ctx)
	if err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}
	if got != tok {
		t.Errorf("GetValidToken() = %q, want the session token", got)
	}
	if n := backend.refreshes.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0 for a fresh token", n)
	}
}

func TestManager_GetValidToken_NoSession(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{}, Config{})

	_, err := m.GetValidToken(context.Background())
	if !apierror.IsKind(err, apierror.KindNotAuthenticated) {
		t.Fatalf("GetValidToken() error = %v, want KindNotAuthenticated", err)
	}
}

func TestManager_GetValidToken_RefreshDue(t *testing.T) {
	fresh := mkToken(t, "u1", time.Now().Add(time.Hour))
	backend := &fakeBackend{
		refreshNext: func() (string, error) { return fresh, nil },
	}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	// Token expires inside the default 5 minute threshold.
	if _, err := m.Authenticate(ctx, "u1", mkToken(t, "u1", time.Now().Add(time.Minute)), false); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	got, err := m.GetValidToken(ctx)
	if err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}
	if got != fresh {
		t.Errorf("GetValidToken() = %q, want the refreshed token", got)
	}
	if n := backend.refreshes.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	stored, _ := store.Retrieve(ctx, storage.KeyToken)
	if stored != fresh {
		t.Errorf("stored token = %q, want the refreshed token", stored)
	}
}

func TestManager_RefreshToken_SingleFlight(t *testing.T) {
	var seq atomic.Int32
	backend := &fakeBackend{
		refreshDelay: 50 * time.Millisecond,
	}
	backend.refreshNext = func() (string, error) {
		return mkToken(t, "u1", time.Now().Add(time.Duration(seq.Add(1))*time.Hour)), nil
	}
	m, _ := newTestManager(backend, Config{})
	ctx := context.Background()

	if _, err := m.Authenticate(ctx, "u1", mkToken(t, "u1", time.Now().Add(time.Minute)), false); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.GetValidToken(ctx)
			if err != nil {
				t.Errorf("GetValidToken() error = %v", err)
				return
			}
			results[i] = tok
		}(i)
	}
	wg.Wait()

	if n := backend.refreshes.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1 shared call", n)
	}
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Errorf("caller %d got a different token than caller 0", i)
		}
	}
}

func TestManager_RefreshToken_Failure(t *testing.T) {
	backend := &fakeBackend{
		refreshNext: func() (string, error) { return "", errors.New("upstream down") },
	}
	m, _ := newTestManager(backend, Config{})
	ctx := context.Background()

	if _, err := m.Authenticate(ctx, "u1", mkToken(t, "u1", time.Now().Add(time.Minute)), false); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	_, err := m.RefreshToken(ctx)
	if !apierror.IsKind(err, apierror.KindRefreshFailed) {
		t.Fatalf("RefreshToken() error = %v, want KindRefreshFailed", err)
	}
	if st := m.State(); st.Kind != StateError {
		t.Errorf("state = %v, want %v", st.Kind, StateError)
	}
}

func TestManager_RefreshToken_NoSession(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{}, Config{})

	_, err := m.RefreshToken(context.Background())
	if !apierror.IsKind(err, apierror.KindNotAuthenticated) {
		t.Fatalf("RefreshToken() error = %v, want KindNotAuthenticated", err)
	}
}

func TestManager_CheckTokenRefresh_Threshold(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name string
		ttl  time.Duration
		want bool
	}{
		{"well before threshold", time.Hour, false},
		{"just outside threshold", 5*time.Minute + time.Second, false},
		{"exactly at threshold", 5 * time.Minute, true},
		{"inside threshold", time.Minute, true},
		{"already expired", -time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			m, _ := newTestManager(backend, Config{Now: func() time.Time { return now }})
			if _, err := m.Authenticate(context.Background(), "u1", mkToken(t, "u1", now.Add(tt.ttl)), false); err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if got := m.CheckTokenRefresh(); got != tt.want {
				t.Errorf("CheckTokenRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManager_RestoreSession_EmptyStore(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{}, Config{})

	user, err := m.RestoreSession(context.Background())
	if err != nil || user != nil {
		t.Fatalf("RestoreSession() = (%v, %v), want (nil, nil)", user, err)
	}
	if st := m.State(); st.Kind != StateNotAuthenticated {
		t.Errorf("state = %v, want %v", st.Kind, StateNotAuthenticated)
	}
}

func seedStore(t *testing.T, store storage.TokenStore, tok, userJSON string) {
	t.Helper()
	ctx := context.Background()
	if err := store.Store(ctx, storage.KeyToken, tok); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := store.Store(ctx, storage.KeyUser, userJSON); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := store.Store(ctx, storage.KeyExpiry, fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix())); err != nil {
		t.Fatalf("seed expiry: %v", err)
	}
}

func TestManager_RestoreSession(t *testing.T) {
	backend := &fakeBackend{}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	seedStore(t, store, mkToken(t, "u1", time.Now().Add(time.Hour)), `{"id":"u1","name":"Pat"}`)

	user, err := m.RestoreSession(ctx)
	if err != nil {
		t.Fatalf("RestoreSession() error = %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Fatalf("RestoreSession() user = %+v, want u1", user)
	}
	if st := m.State(); st.Kind != StateAuthenticated {
		t.Errorf("state = %v, want %v", st.Kind, StateAuthenticated)
	}
	if n := backend.refreshes.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0 for a fresh stored token", n)
	}
}

func TestManager_RestoreSession_CorruptUser(t *testing.T) {
	m, store := newTestManager(&fakeBackend{}, Config{})
	ctx := context.Background()

	seedStore(t, store, mkToken(t, "u1", time.Now().Add(time.Hour)), `{not json`)

	user, err := m.RestoreSession(ctx)
	if err != nil || user != nil {
		t.Fatalf("RestoreSession() = (%v, %v), want (nil, nil)", user, err)
	}
	// Corrupt stored data clears every credential key.
	for _, key := range []string{storage.KeyToken, storage.KeyUser, storage.KeyExpiry} {
		if _, err := store.Retrieve(ctx, key); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Retrieve(%q) after failed restore = %v, want ErrNotFound", key, err)
		}
	}
}

func TestManager_RestoreSession_InvalidToken(t *testing.T) {
	backend := &fakeBackend{}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	seedStore(t, store, "garbage-token", `{"id":"u1"}`)

	user, err := m.RestoreSession(ctx)
	if err != nil || user != nil {
		t.Fatalf("RestoreSession() = (%v, %v), want (nil, nil)", user, err)
	}
	// Locally-invalid credentials never reach the backend.
	if len(backend.disconnects) != 0 {
		t.Error("backend disconnect must not be called for a locally invalid session")
	}
}

func TestManager_RestoreSession_RefreshDue(t *testing.T) {
	fresh := mkToken(t, "u1", time.Now().Add(time.Hour))
	backend := &fakeBackend{
		refreshNext: func() (string, error) { return fresh, nil },
	}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	seedStore(t, store, mkToken(t, "u1", time.Now().Add(time.Minute)), `{"id":"u1"}`)

	user, err := m.RestoreSession(ctx)
	if err != nil {
		t.Fatalf("RestoreSession() error = %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Fatalf("RestoreSession() user = %+v, want u1", user)
	}
	if n := backend.refreshes.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	stored, _ := store.Retrieve(ctx, storage.KeyToken)
	if stored != fresh {
		t.Errorf("stored token = %q, want the refreshed token", stored)
	}
}

func TestManager_RestoreSession_RefreshFails(t *testing.T) {
	backend := &fakeBackend{
		refreshNext: func() (string, error) { return "", errors.New("upstream down") },
	}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	seedStore(t, store, mkToken(t, "u1", time.Now().Add(time.Minute)), `{"id":"u1"}`)

	user, err := m.RestoreSession(ctx)
	if err != nil || user != nil {
		t.Fatalf("RestoreSession() = (%v, %v), want (nil, nil)", user, err)
	}
	if st := m.State(); st.Kind != StateNotAuthenticated {
		t.Errorf("state = %v, want %v", st.Kind, StateNotAuthenticated)
	}
	if _, err := store.Retrieve(ctx, storage.KeyToken); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("token should be cleared after failed restore refresh, got %v", err)
	}
}

func TestManager_Logout(t *testing.T) {
	backend := &fakeBackend{}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	tok := mkToken(t, "u1", time.Now().Add(time.Hour))
	if _, err := m.Authenticate(ctx, "u1", tok, false); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	m.Logout(ctx)
	m.Logout(ctx) // idempotent

	if st := m.State(); st.Kind != StateNotAuthenticated {
		t.Errorf("state = %v, want %v", st.Kind, StateNotAuthenticated)
	}
	if len(backend.disconnects) != 1 || backend.disconnects[0] != tok {
		t.Errorf("disconnects = %v, want exactly one with the session token", backend.disconnects)
	}
	for _, key := range []string{storage.KeyToken, storage.KeyUser, storage.KeyExpiry} {
		if _, err := store.Retrieve(ctx, key); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Retrieve(%q) after logout = %v, want ErrNotFound", key, err)
		}
	}
	if m.CurrentUser() != nil {
		t.Error("CurrentUser() after logout should be nil")
	}
}

func TestManager_Logout_DuringRefresh(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{}
	backend.refreshNext = func() (string, error) {
		close(started)
		<-release
		return mkToken(t, "u1", time.Now().Add(time.Hour)), nil
	}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	if _, err := m.Authenticate(ctx, "u1", mkToken(t, "u1", time.Now().Add(time.Minute)), false); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	refreshErr := make(chan error, 1)
	go func() {
		_, err := m.RefreshToken(ctx)
		refreshErr <- err
	}()

	// Logout completes while the backend refresh is still in flight; the
	// late refresh result must not resurrect the cleared credentials.
	<-started
	m.Logout(ctx)
	close(release)

	if err := <-refreshErr; !apierror.IsKind(err, apierror.KindNotAuthenticated) {
		t.Fatalf("RefreshToken() error = %v, want KindNotAuthenticated after logout", err)
	}
	for _, key := range []string{storage.KeyToken, storage.KeyUser, storage.KeyExpiry} {
		if _, err := store.Retrieve(ctx, key); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Retrieve(%q) after logout = %v, want ErrNotFound", key, err)
		}
	}
	if _, err := m.GetValidToken(ctx); !apierror.IsKind(err, apierror.KindNotAuthenticated) {
		t.Errorf("GetValidToken() after logout = %v, want KindNotAuthenticated", err)
	}
	if st := m.State(); st.Kind != StateNotAuthenticated {
		t.Errorf("state = %v, want %v", st.Kind, StateNotAuthenticated)
	}
}

func TestManager_Resync(t *testing.T) {
	backend := &fakeBackend{}
	m, store := newTestManager(backend, Config{})
	ctx := context.Background()

	if _, err := m.Authenticate(ctx, "u1", mkToken(t, "u1", time.Now().Add(time.Minute)), false); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	// Another process refreshed the shared store.
	external := mkToken(t, "u1", time.Now().Add(2*time.Hour))
	if err := store.Store(ctx, storage.KeyToken, external); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if err := m.Resync(ctx); err != nil {
		t.Fatalf("Resync() error = %v", err)
	}
	got, err := m.GetValidToken(ctx)
	if err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}
	if got != external {
		t.Errorf("GetValidToken() = %q, want the adopted token", got)
	}
	if n := backend.refreshes.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0 after adopting a fresh token", n)
	}
}

func TestManager_StateStream(t *testing.T) {
	backend := &fakeBackend{}
	m, _ := newTestManager(backend, Config{})
	ctx := context.Background()

	ch, cancel := m.Subscribe()
	defer cancel()
	if st := <-ch; st.Kind != StateNotAuthenticated {
		t.Fatalf("initial state = %v, want %v", st.Kind, StateNotAuthenticated)
	}

	backend.connectErr = apierror.New(40, "token expired", 401)
	if _, err := m.Authenticate(ctx, "u1", mkToken(t, "u1", time.Now().Add(time.Hour)), false); err == nil {
		t.Fatal("Authenticate() should fail")
	}

	// The stream collapses to the most recent state: Error.
	deadline := time.After(time.Second)
	for {
		select {
		case st := <-ch:
			if st.Kind == StateError {
				if st.Err == nil {
					t.Error("StateError without Err")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for StateError")
		}
	}
}
