package keyfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileNotFound(t *testing.T) {
	secret, err := Load("/nonexistent/path/session.key")
	assert.Nil(t, secret)
	assert.NoError(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.key")
	want := bytes.Repeat([]byte{0xab}, SecretSize)

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(DirPerms), dirInfo.Mode().Perm())
}

func TestSave_RejectsShortSecret(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "k"), []byte("short"))
	assert.ErrorIs(t, err, ErrShortSecret)
}

func TestLoad_ShortSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k")
	require.NoError(t, os.WriteFile(path, []byte(`{"secret":"c2hvcnQ="}`), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrShortSecret)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.key")

	first, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, first, SecretSize)

	second, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "session.key"), bytes.Repeat([]byte{1}, SecretSize)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.key", entries[0].Name())
}
