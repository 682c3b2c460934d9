package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	s := NewArtifactStorage(t.TempDir())

	path, err := s.Save("3f2a-41", "azure-pipeline.yml", []byte("trigger:\n- main\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BaseDir, "3f2a-41", "azure-pipeline.yml"), path)

	data, err := s.Load("3f2a-41", "azure-pipeline.yml")
	require.NoError(t, err)
	assert.Equal(t, "trigger:\n- main\n", string(data))
}

func TestSaveSanitizesTraversal(t *testing.T) {
	s := NewArtifactStorage(t.TempDir())

	path, err := s.Save("../../etc", "../passwd.yml", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BaseDir, "etc", "passwd.yml"), path)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "session", sanitize("../"))
	assert.Equal(t, "a-b_c", sanitize("a-b_c!"))
	assert.Equal(t, "report.json", sanitizeFile("report.json"))
}
