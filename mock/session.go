package mock

import (
	"context"

	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var (
	_ promptscore.Cipher         = (*Cipher)(nil)
	_ promptscore.SessionStorage = (*SessionStorage)(nil)
)

// Cipher is a mock implementation of promptscore.Cipher.
type Cipher struct {
	SealFn func(plaintext []byte) ([]byte, error)
	OpenFn func(ciphertext []byte) ([]byte, error)
}

func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	return c.SealFn(plaintext)
}

func (c *Cipher) Open(ciphertext []byte) ([]byte, error) {
	return c.OpenFn(ciphertext)
}

// SessionStorage is a mock implementation of promptscore.SessionStorage.
type SessionStorage struct {
	SaveFn   func(ctx context.Context, sessionID string, data []byte) error
	LoadFn   func(ctx context.Context, sessionID string) ([]byte, error)
	DeleteFn func(ctx context.Context, sessionID string) error
}

func (s *SessionStorage) Save(ctx context.Context, sessionID string, data []byte) error {
	return s.SaveFn(ctx, sessionID, data)
}

func (s *SessionStorage) Load(ctx context.Context, sessionID string) ([]byte, error) {
	return s.LoadFn(ctx, sessionID)
}

func (s *SessionStorage) Delete(ctx context.Context, sessionID string) error {
	return s.DeleteFn(ctx, sessionID)
}
