// Package seal provides authenticated encryption for credentials at rest.
//
// It selects the cipher by hardware capability (AES-GCM where AES
// instructions are available, ChaCha20-Poly1305 otherwise) and derives
// keys from passphrases with Argon2id. The file-backed token store uses
// it to protect persisted sessions.
package seal
