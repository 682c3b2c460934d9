package ledger

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"jenkins2ado/internal/security"
)

// Ledger is an append-only JSON-lines file of signed approval records.
type Ledger struct {
	mu      sync.Mutex
	records []*Record
	path    string
	keys    *security.KeyPair
}

// Open loads an existing ledger file or creates an empty one. keys.Public is
// the only signer Verify accepts; a pair without a private key (see
// security.LoadPublicKeyPair) verifies but cannot Append. keys may be nil
// for listing records only.
func Open(path string, keys *security.KeyPair) (*Ledger, error) {
	l := &Ledger{
		records: make([]*Record, 0),
		path:    path,
		keys:    keys,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		_ = f.Close()
		return l, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode ledger entry %d: %w", len(l.records), err)
		}
		l.records = append(l.records, &rec)
	}
	return l, nil
}

// Path returns the backing file.
func (l *Ledger) Path() string { return l.path }

// Append links, signs and persists a new record for a.
func (l *Ledger) Append(a Approval) (*Record, error) {
	if l.keys == nil || len(l.keys.Private) == 0 {
		return nil, errors.New("ledger opened without a signing key")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ""
	if n := len(l.records); n > 0 {
		prev = l.records[n-1].Hash
	}
	rec, err := NewRecord(len(l.records), a, prev)
	if err != nil {
		return nil, err
	}
	rec.Signature = security.SignData(l.keys.Private, []byte(rec.Hash))
	rec.PubKey = hex.EncodeToString(l.keys.Public)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return nil, fmt.Errorf("write ledger file: %w", err)
	}

	l.records = append(l.records, rec)
	return rec, nil
}

// Records returns a copy of the in-memory records.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[i] = *r
	}
	return out
}

// LastHash returns the last record hash (or empty if none)
func (l *Ledger) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == 0 {
		return ""
	}
	return l.records[len(l.records)-1].Hash
}
