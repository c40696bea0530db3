package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Key derivation parameters.
const (
	// SaltLength is the salt length for passphrase derivation.
	SaltLength = 16

	// KeyLength is the derived key length.
	KeyLength = 32

	// MinPassphraseLength is the minimum accepted passphrase length.
	MinPassphraseLength = 8

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// ErrPassphraseTooWeak is returned for passphrases under 8 characters.
var ErrPassphraseTooWeak = errors.New("seal: passphrase too weak (minimum 8 characters)")

// DeriveKey derives a 32-byte key from a passphrase using Argon2id.
// If salt is nil a new random salt is generated; the caller must persist
// the returned salt to derive the same key again.
func DeriveKey(passphrase, salt []byte) (key, usedSalt []byte, err error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, nil, ErrPassphraseTooWeak
	}
	if salt == nil {
		salt = make([]byte, SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("seal: generate salt: %w", err)
		}
	}

	key = argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, KeyLength)
	return key, salt, nil
}

// DeriveSubkey derives a purpose-bound subkey from a master key using
// HKDF-SHA256. Distinct info strings yield independent keys.
func DeriveSubkey(masterKey []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("seal: derive subkey: %w", err)
	}
	return key, nil
}

// GenerateKey generates a random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("seal: generate key: %w", err)
	}
	return key, nil
}

// Zero wipes a key in memory.
func Zero(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
