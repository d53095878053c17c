package zstd_test

import (
	"context"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/fwojciec/promptscore"
	"github.com/fwojciec/promptscore/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T, maxBytes int) *zstd.Storage {
	t.Helper()
	s, err := zstd.NewStorage(maxBytes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage(t *testing.T) {
	t.Parallel()

	t.Run("round trips a snapshot", func(t *testing.T) {
		t.Parallel()
		s := newStorage(t, zstd.DefaultMaxBytes)
		ctx := context.Background()

		data := []byte(`{"id":"abc","history":[]}`)
		require.NoError(t, s.Save(ctx, "abc", data))

		got, err := s.Load(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("compresses repetitive data", func(t *testing.T) {
		t.Parallel()
		s := newStorage(t, zstd.DefaultMaxBytes)

		data := []byte(strings.Repeat(`{"prompt":"What is the capital of France?"}`, 500))
		require.NoError(t, s.Save(context.Background(), "abc", data))
		assert.Less(t, s.Size("abc"), len(data)/10)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		t.Parallel()
		s := newStorage(t, zstd.DefaultMaxBytes)

		_, err := s.Load(context.Background(), "nope")
		assert.ErrorIs(t, err, promptscore.ErrSnapshotNotFound)
	})

	t.Run("rejects oversize snapshot and keeps the previous one", func(t *testing.T) {
		t.Parallel()
		s := newStorage(t, 1024)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "abc", []byte(`{"small":true}`)))

		noise := make([]byte, 4096)
		_, err := rand.Read(noise)
		require.NoError(t, err)
		err = s.Save(ctx, "abc", noise)
		require.ErrorIs(t, err, promptscore.ErrSnapshotTooLarge)

		got, err := s.Load(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, `{"small":true}`, string(got))
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		s := newStorage(t, zstd.DefaultMaxBytes)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, "abc", []byte("x")))
		require.NoError(t, s.Delete(ctx, "abc"))
		require.NoError(t, s.Delete(ctx, "abc"))

		_, err := s.Load(ctx, "abc")
		assert.ErrorIs(t, err, promptscore.ErrSnapshotNotFound)
	})

	t.Run("rejects non-positive bound", func(t *testing.T) {
		t.Parallel()
		_, err := zstd.NewStorage(0)
		assert.Error(t, err)
	})
}
