package storage

import (
	"context"
	"errors"
)

// Well-known keys the session manager persists.
const (
	// KeyToken holds the raw access token.
	KeyToken = "token"

	// KeyUser holds the serialized user object.
	KeyUser = "user"

	// KeyExpiry holds the token expiry as Unix seconds (decimal string).
	KeyExpiry = "token_expiry"
)

// ErrNotFound is returned by Retrieve for absent keys.
var ErrNotFound = errors.New("storage: key not found")

// TokenStore is the secure string store the session manager writes
// credentials through. Implementations must be safe for concurrent use
// and durable across process restarts (MemoryStore excepted).
type TokenStore interface {
	// Store persists a value under the given key, replacing any previous
	// value. The write is atomic per key.
	Store(ctx context.Context, key, value string) error

	// Retrieve returns the value for the key, or ErrNotFound.
	Retrieve(ctx context.Context, key string) (string, error)

	// Clear removes the key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}
