package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFileMatchesHashString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "azure-pipeline.yml")
	require.NoError(t, os.WriteFile(path, []byte("trigger:\n- main\n"), 0644))

	h, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashString("trigger:\n- main\n"), h)
	assert.Len(t, h, 64)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abc", ShortHash("abc"))
	assert.Equal(t, "0123456789ab", ShortHash("0123456789abcdef"))
}
