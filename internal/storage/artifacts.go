package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactStorage writes approved pipelines and their reports to disk
type ArtifactStorage struct {
	BaseDir string
}

// NewArtifactStorage creates a storage handler rooted at baseDir
func NewArtifactStorage(baseDir string) *ArtifactStorage {
	return &ArtifactStorage{BaseDir: baseDir}
}

// Save writes data as <BaseDir>/<session>/<name> and returns the path
func (s *ArtifactStorage) Save(sessionID, name string, data []byte) (string, error) {
	dir := filepath.Join(s.BaseDir, sanitize(sessionID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(dir, sanitizeFile(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// Load reads back an artifact written by Save
func (s *ArtifactStorage) Load(sessionID, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.BaseDir, sanitize(sessionID), sanitizeFile(name)))
}

// sanitize keeps ASCII letters, digits, '-' and '_'
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}

// sanitizeFile is sanitize that also keeps the extension dot
func sanitizeFile(name string) string {
	ext := filepath.Ext(name)
	base := sanitize(strings.TrimSuffix(filepath.Base(name), ext))
	if ext != "" {
		ext = "." + sanitize(ext[1:])
	}
	return base + ext
}
