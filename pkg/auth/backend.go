package auth

import (
	"context"

	"github.com/tidechat/tidechat-go/pkg/models"
)

// Backend is the server-side collaborator the session manager drives.
// The API client implements it; tests substitute fakes.
type Backend interface {
	// Connect establishes the session server-side. The token being
	// established is supplied explicitly since no session exists yet.
	Connect(ctx context.Context, userID, token string, anonymous bool) (*models.User, error)

	// RefreshToken exchanges the current token for a new one. The
	// refresh protocol is the backend's; the manager only validates the
	// returned token structurally.
	RefreshToken(ctx context.Context, current string) (string, error)

	// Disconnect notifies the backend the session is ending. Best-effort:
	// the manager logs failures and never propagates them.
	Disconnect(ctx context.Context, token string) error
}

// AnonymousTokenProvider supplies guest tokens. Token minting is a
// backend operation; the SDK never fabricates claims client-side.
type AnonymousTokenProvider interface {
	AnonymousToken(ctx context.Context, userID string) (string, error)
}
