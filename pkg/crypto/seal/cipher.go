package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm identifies the AEAD algorithm.
type Algorithm string

const (
	AlgorithmAESGCM   Algorithm = "aes-gcm"
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// Common errors.
var (
	ErrInvalidKeySize   = errors.New("seal: key must be 32 bytes")
	ErrCiphertextShort  = errors.New("seal: ciphertext too short")
	ErrUnknownAlgorithm = errors.New("seal: unknown algorithm")
)

// Cipher provides authenticated encryption with associated data.
// The nonce is generated per call and prepended to the ciphertext.
type Cipher struct {
	algorithm Algorithm
	aead      cipher.AEAD
}

// New creates a cipher with the algorithm best suited to the hardware.
// Key must be 32 bytes.
func New(key []byte) (*Cipher, error) {
	if hasAESAcceleration() {
		return NewWithAlgorithm(key, AlgorithmAESGCM)
	}
	return NewWithAlgorithm(key, AlgorithmChaCha20)
}

// NewWithAlgorithm creates a cipher with an explicit algorithm.
func NewWithAlgorithm(key []byte, algorithm Algorithm) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKeySize
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch algorithm {
	case AlgorithmAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, ErrUnknownAlgorithm
	}
	if err != nil {
		return nil, err
	}

	return &Cipher{algorithm: algorithm, aead: aead}, nil
}

// Algorithm returns the AEAD algorithm in use.
func (c *Cipher) Algorithm() Algorithm {
	return c.algorithm
}

// Encrypt seals plaintext with the given associated data. The random
// nonce is prepended to the returned ciphertext.
func (c *Cipher) Encrypt(plaintext, associatedData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, associatedData), nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext, associatedData []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, ErrCiphertextShort
	}
	nonce := ciphertext[:c.aead.NonceSize()]
	return c.aead.Open(nil, nonce, ciphertext[c.aead.NonceSize():], associatedData)
}

// hasAESAcceleration reports whether the architecture carries AES
// instructions Go's crypto/aes takes advantage of.
func hasAESAcceleration() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}
