// Package token parses and validates compact access tokens.
//
// Tokens are opaque three-segment strings (header.claims.signature). The
// SDK performs structural validation only: segment shape, claim decoding,
// and presence of the required exp and user_id claims. Signature
// verification is delegated to the backend.
package token
