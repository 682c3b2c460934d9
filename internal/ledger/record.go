package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Record is a tamper-evident entry for one approved conversion
type Record struct {
	Index        int    `json:"index"`
	Timestamp    string `json:"timestamp"`
	SessionID    string `json:"sessionId"`
	SourceName   string `json:"sourceName"`
	SourceHash   string `json:"sourceHash"`
	YAMLHash     string `json:"yamlHash"`
	ArtifactPath string `json:"artifactPath"`
	Approver     string `json:"approver"`
	PrevHash     string `json:"prevHash"`
	Hash         string `json:"hash"`
	Signature    string `json:"signature"`
	PubKey       string `json:"pubKey"`
}

// Approval carries the fields a caller supplies for a new record
type Approval struct {
	SessionID    string
	SourceName   string
	SourceHash   string
	YAMLHash     string
	ArtifactPath string
	Approver     string
}

// canonicalData excludes Hash, Signature and PubKey.
func (r *Record) canonicalData() ([]byte, error) {
	view := struct {
		Index        int    `json:"index"`
		Timestamp    string `json:"timestamp"`
		SessionID    string `json:"sessionId"`
		SourceName   string `json:"sourceName"`
		SourceHash   string `json:"sourceHash"`
		YAMLHash     string `json:"yamlHash"`
		ArtifactPath string `json:"artifactPath"`
		Approver     string `json:"approver"`
		PrevHash     string `json:"prevHash"`
	}{
		Index:        r.Index,
		Timestamp:    r.Timestamp,
		SessionID:    r.SessionID,
		SourceName:   r.SourceName,
		SourceHash:   r.SourceHash,
		YAMLHash:     r.YAMLHash,
		ArtifactPath: r.ArtifactPath,
		Approver:     r.Approver,
		PrevHash:     r.PrevHash,
	}
	return json.Marshal(view)
}

// ComputeHash calculates SHA256 over canonicalData
func (r *Record) ComputeHash() (string, error) {
	data, err := r.canonicalData()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewRecord builds an unsigned record linked to prevHash
func NewRecord(index int, a Approval, prevHash string) (*Record, error) {
	rec := &Record{
		Index:        index,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		SessionID:    a.SessionID,
		SourceName:   a.SourceName,
		SourceHash:   a.SourceHash,
		YAMLHash:     a.YAMLHash,
		ArtifactPath: a.ArtifactPath,
		Approver:     a.Approver,
		PrevHash:     prevHash,
	}

	h, err := rec.ComputeHash()
	if err != nil {
		return nil, fmt.Errorf("compute record hash: %w", err)
	}
	rec.Hash = h
	return rec, nil
}
