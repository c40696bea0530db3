package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/tidechat/tidechat-go/pkg/apierror"
)

// SegmentCount is the number of dot-delimited segments in a compact token.
const SegmentCount = 3

// Claims is the decoded payload segment of a token.
type Claims struct {
	// UserID is the required subject claim (user_id).
	UserID string

	// ExpiresAt is the absolute expiry derived from the exp claim.
	ExpiresAt time.Time

	// IssuedAt is the optional iat claim. Zero when absent.
	IssuedAt time.Time

	// Raw holds the full decoded claim set for callers that need
	// non-standard claims.
	Raw map[string]any
}

// rawClaims is the wire shape of the payload segment. Unknown fields are
// tolerated; exp and user_id are required.
type rawClaims struct {
	Exp    *float64 `json:"exp"`
	Iat    *float64 `json:"iat"`
	UserID string   `json:"user_id"`
}

// Parse decodes and validates a compact token.
//
// Validation is structural:
//  1. the token must have exactly three dot-delimited, non-empty segments;
//  2. the middle segment must base64url-decode (padding restored) to a
//     JSON claim set;
//  3. the claim set must carry exp and user_id.
//
// The signature segment is never verified client-side.
func Parse(tok string) (*Claims, error) {
	segments := strings.Split(tok, ".")
	if len(segments) != SegmentCount {
		return nil, apierror.NewInvalidToken("token must have three segments")
	}
	for _, seg := range segments {
		if seg == "" {
			return nil, apierror.NewInvalidToken("token has an empty segment")
		}
	}

	payload, err := decodeSegment(segments[1])
	if err != nil {
		return nil, apierror.NewInvalidToken("token payload is not valid base64url").WithCause(err)
	}

	var rc rawClaims
	if err := json.Unmarshal(payload, &rc); err != nil {
		return nil, apierror.NewInvalidToken("token payload is not valid JSON").WithCause(err)
	}
	if rc.Exp == nil {
		return nil, apierror.NewInvalidToken("token is missing the exp claim")
	}
	if rc.UserID == "" {
		return nil, apierror.NewInvalidToken("token is missing the user_id claim")
	}

	claims := &Claims{
		UserID:    rc.UserID,
		ExpiresAt: time.Unix(int64(*rc.Exp), 0),
	}
	if rc.Iat != nil {
		claims.IssuedAt = time.Unix(int64(*rc.Iat), 0)
	}

	// Keep the raw claim set for forward compatibility.
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err == nil {
		claims.Raw = raw
	}

	return claims, nil
}

// decodeSegment base64url-decodes a token segment, restoring stripped
// padding first (append '=' until the length is a multiple of 4).
func decodeSegment(seg string) ([]byte, error) {
	if pad := len(seg) % 4; pad != 0 {
		seg += strings.Repeat("=", 4-pad)
	}
	return base64.URLEncoding.DecodeString(seg)
}

// IsExpired reports whether the token has expired as of now.
func (c *Claims) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ExpiresWithin reports whether the token expires within the given window.
func (c *Claims) ExpiresWithin(now time.Time, window time.Duration) bool {
	return c.ExpiresAt.Sub(now) <= window
}

// Mask masks a token for safe logging: first segment plus a redacted hint.
// Example: eyJhb...sig
func Mask(tok string) string {
	if len(tok) < 10 {
		return "***REDACTED***"
	}
	return tok[:5] + "..." + tok[len(tok)-3:]
}
