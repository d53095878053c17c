package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
)

// snapshot is the persisted form of a session.
type snapshot struct {
	ID              string                  `json:"id"`
	CreatedAt       time.Time               `json:"createdAt"`
	TTL             time.Duration           `json:"ttl"`
	Credential      []byte                  `json:"credential,omitempty"`
	CredentialValid bool                    `json:"credentialValid"`
	Step            promptscore.Step        `json:"step"`
	Current         promptscore.CurrentTest `json:"current"`
	History         []promptscore.TestRun   `json:"history"`
}

// persistLocked writes the session to storage. When the snapshot exceeds
// the storage limit, the oldest runs are dropped from the persisted copy
// until it fits; in-memory history is left intact. Failures are logged and
// never surface to the caller.
func (s *Store) persistLocked(ctx context.Context) {
	if s.storage == nil || s.id == "" {
		return
	}
	snap := snapshot{
		ID:              s.id,
		CreatedAt:       s.createdAt,
		TTL:             s.ttl,
		Credential:      s.vault.Sealed(),
		CredentialValid: s.credentialValid,
		Step:            s.machine.Current(),
		Current:         s.current,
		History:         s.history,
	}

	log := clog.FromContext(ctx).With("session", s.id)
	for dropped := 0; ; dropped++ {
		data, err := json.Marshal(snap)
		if err != nil {
			log.Error("Failed to encode session snapshot", "error", err)
			return
		}
		err = s.storage.Save(ctx, s.id, data)
		if err == nil {
			if dropped > 0 {
				log.Warn("Session snapshot trimmed to fit storage", "dropped_runs", dropped, "kept_runs", len(snap.History))
			}
			return
		}
		if !errors.Is(err, promptscore.ErrSnapshotTooLarge) || len(snap.History) == 0 {
			log.Error("Failed to persist session snapshot", "error", err)
			return
		}
		snap.History = snap.History[1:]
	}
}

// Restore loads a persisted session. It fails with ErrSessionExpired if the
// session's lifetime has already passed, removing the stale snapshot.
func (s *Store) Restore(ctx context.Context, sessionID string) error {
	if s.storage == nil {
		return promptscore.ErrSnapshotNotFound
	}
	data, err := s.storage.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.now().Before(snap.CreatedAt.Add(snap.TTL)) {
		_ = s.storage.Delete(ctx, sessionID)
		return ErrSessionExpired
	}

	s.resetLocked()
	s.id = snap.ID
	s.createdAt = snap.CreatedAt
	s.ttl = snap.TTL
	s.vault.Restore(snap.Credential)
	s.credentialValid = snap.CredentialValid && s.vault.HasCredential()
	s.current = snap.Current
	if s.current.Status == promptscore.StatusRunning {
		s.current.Status = promptscore.StatusIdle
	}
	s.history = snap.History
	s.machine = promptscore.NewMachine()
	if m, err := s.machine.Request(snap.Step, s.progressLocked()); err == nil {
		s.machine = m
	}
	s.armTimerLocked(ctx)

	clog.FromContext(ctx).Info("Session restored", "session", s.id, "runs", len(s.history))
	return nil
}
