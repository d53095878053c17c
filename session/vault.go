package session

import (
	"fmt"

	"github.com/fwojciec/promptscore"
)

// Vault holds an API key sealed by a Cipher. The plaintext is only
// materialized by Reveal, for the duration of a call.
//
// Vault is not safe for concurrent use; Store serializes access.
type Vault struct {
	cipher promptscore.Cipher
	sealed []byte
}

// NewVault creates an empty Vault.
func NewVault(cipher promptscore.Cipher) *Vault {
	return &Vault{cipher: cipher}
}

// Put seals key, replacing any previous credential.
func (v *Vault) Put(key string) error {
	sealed, err := v.cipher.Seal([]byte(key))
	if err != nil {
		return fmt.Errorf("vault: seal: %w", err)
	}
	v.sealed = sealed
	return nil
}

// Reveal opens the stored credential.
func (v *Vault) Reveal() (string, error) {
	if len(v.sealed) == 0 {
		return "", promptscore.ErrNoCredential
	}
	plain, err := v.cipher.Open(v.sealed)
	if err != nil {
		return "", fmt.Errorf("vault: open: %w", err)
	}
	return string(plain), nil
}

// HasCredential reports whether a credential is stored.
func (v *Vault) HasCredential() bool {
	return len(v.sealed) > 0
}

// Sealed returns a copy of the ciphertext for persistence.
func (v *Vault) Sealed() []byte {
	if len(v.sealed) == 0 {
		return nil
	}
	return append([]byte(nil), v.sealed...)
}

// Restore replaces the ciphertext with a previously persisted one.
func (v *Vault) Restore(sealed []byte) {
	v.sealed = append([]byte(nil), sealed...)
}

// Clear drops the credential and zeroes the ciphertext.
func (v *Vault) Clear() {
	for i := range v.sealed {
		v.sealed[i] = 0
	}
	v.sealed = nil
}
