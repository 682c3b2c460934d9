package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"

	"jenkins2ado/internal/security"
)

// ErrNoTrustedKey is returned by Verify on a ledger opened without keys.
var ErrNoTrustedKey = errors.New("ledger opened without a trusted public key")

// Verify recomputes each record hash, link and index, and checks that every
// signature was made by the ledger's public key. The key stored in a record
// is only compared against it, never trusted on its own.
func (l *Ledger) Verify() error {
	if l.keys == nil || len(l.keys.Public) == 0 {
		return ErrNoTrustedKey
	}
	trusted := hex.EncodeToString(l.keys.Public)

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, r := range l.records {
		h, err := r.ComputeHash()
		if err != nil {
			return fmt.Errorf("compute hash for index %d: %w", r.Index, err)
		}
		if h != r.Hash {
			return fmt.Errorf("hash mismatch at index %d", r.Index)
		}
		if i > 0 && r.PrevHash != l.records[i-1].Hash {
			return fmt.Errorf("prev hash mismatch at index %d", r.Index)
		}
		if r.Index != i {
			return fmt.Errorf("index mismatch: expected %d got %d", i, r.Index)
		}
		if r.PubKey != trusted {
			return fmt.Errorf("untrusted signer at index %d", r.Index)
		}
		ok, err := security.VerifySignature(l.keys.Public, []byte(r.Hash), r.Signature)
		if err != nil {
			return fmt.Errorf("signature at index %d: %w", r.Index, err)
		}
		if !ok {
			return fmt.Errorf("bad signature at index %d", r.Index)
		}
	}
	return nil
}
