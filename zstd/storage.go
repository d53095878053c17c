// Package zstd keeps session snapshots in memory, compressed with zstd and
// bounded in size.
package zstd

import (
	"context"
	"fmt"
	"sync"

	"github.com/fwojciec/promptscore"
	"github.com/klauspost/compress/zstd"
)

// Compile-time interface verification.
var _ promptscore.SessionStorage = (*Storage)(nil)

// DefaultMaxBytes bounds a single compressed snapshot.
const DefaultMaxBytes = 5 * 1024 * 1024

// Storage implements promptscore.SessionStorage in process memory.
// Nothing written here survives the process.
type Storage struct {
	enc      *zstd.Encoder
	dec      *zstd.Decoder
	maxBytes int

	mu   sync.RWMutex
	data map[string][]byte
}

// NewStorage creates a Storage that rejects snapshots whose compressed size
// exceeds maxBytes.
func NewStorage(maxBytes int) (*Storage, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("zstd: max bytes must be positive, got %d", maxBytes)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd: create encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd: create decoder: %w", err)
	}
	return &Storage{
		enc:      enc,
		dec:      dec,
		maxBytes: maxBytes,
		data:     make(map[string][]byte),
	}, nil
}

// Save compresses and stores data. It fails with promptscore.ErrSnapshotTooLarge
// when the compressed snapshot exceeds the bound; the previous snapshot is
// kept in that case.
func (s *Storage) Save(_ context.Context, sessionID string, data []byte) error {
	compressed := s.enc.EncodeAll(data, nil)
	if len(compressed) > s.maxBytes {
		return fmt.Errorf("zstd: %d bytes compressed, limit %d: %w", len(compressed), s.maxBytes, promptscore.ErrSnapshotTooLarge)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = compressed
	return nil
}

// Load returns the decompressed snapshot for sessionID.
func (s *Storage) Load(_ context.Context, sessionID string) ([]byte, error) {
	s.mu.RLock()
	compressed, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, promptscore.ErrSnapshotNotFound
	}
	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: decode snapshot: %w", err)
	}
	return data, nil
}

// Delete removes the snapshot for sessionID. Deleting a missing snapshot is
// not an error.
func (s *Storage) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// Size returns the compressed size of the stored snapshot, or 0.
func (s *Storage) Size(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[sessionID])
}

// Close releases encoder and decoder resources.
func (s *Storage) Close() error {
	s.dec.Close()
	return s.enc.Close()
}
