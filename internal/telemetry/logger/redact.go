package logger

import (
	"log/slog"
	"strings"

	"github.com/tidechat/tidechat-go/pkg/token"
)

// Sensitive key patterns that force full redaction of the value.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"credential",
	"authorization",
	"bearer",
	"passphrase",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks credential material in a log attribute. Values
// with the compact token shape keep a short prefix and suffix for
// correlation; key-based matches are fully redacted.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		if tok, ok := bearerToken(strVal); ok {
			return slog.String(a.Key, "Bearer "+token.Mask(tok))
		}
		if looksLikeToken(strVal) {
			return slog.String(a.Key, token.Mask(strVal))
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	// Nested groups are redacted recursively.
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// IsSensitiveKey reports whether a key name suggests secret content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(value string) (string, bool) {
	const scheme = "Bearer "
	if !strings.HasPrefix(value, scheme) {
		return "", false
	}
	return value[len(scheme):], true
}

// looksLikeToken reports whether a value has the three-segment compact
// token shape.
func looksLikeToken(value string) bool {
	if len(value) < 20 {
		return false
	}
	parts := strings.Split(value, ".")
	if len(parts) != token.SegmentCount {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
