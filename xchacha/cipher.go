// Package xchacha seals session credentials with XChaCha20-Poly1305.
package xchacha

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/fwojciec/promptscore"
	"golang.org/x/crypto/chacha20poly1305"
)

// Compile-time interface verification.
var _ promptscore.Cipher = (*Cipher)(nil)

// ErrCiphertextTooShort is returned by Open when the input cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("xchacha: ciphertext too short")

// Cipher implements promptscore.Cipher. Each sealed value carries its own
// random nonce as a prefix.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a 32-byte key.
func New(key []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("xchacha: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewEphemeral creates a Cipher with a random key that lives only as long
// as the process. Anything it seals becomes unreadable once the process
// exits.
func NewEphemeral() (*Cipher, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("xchacha: generate key: %w", err)
	}
	return New(key)
}

// Seal encrypts plaintext under a fresh nonce.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("xchacha: generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal.
func (c *Cipher) Open(ciphertext []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n+c.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plain, err := c.aead.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("xchacha: %w", err)
	}
	return plain, nil
}
