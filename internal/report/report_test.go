package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")

	require.NoError(t, WriteFile(path, []byte(`{"run":1}`)))
	require.NoError(t, WriteFile(path, []byte(`{"run":2}`)))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"run":2}`, string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "meta.json")
	err := WriteFile(path, []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create temp file")
}

func TestWriteFileOntoDirectoryKeepsIt(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "meta.json")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep"), []byte("x"), 0o644))

	require.Error(t, WriteFile(target, []byte("{}")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed after failed rename")
}

func TestWriteAllStagesBeforeReplacing(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "meta.json")
	require.NoError(t, os.WriteFile(meta, []byte("previous"), 0o644))

	err := WriteAll(
		File{Path: filepath.Join(dir, "missing", "version.json"), Data: []byte("{}")},
		File{Path: meta, Data: []byte(`{"new":true}`)},
	)
	require.Error(t, err)

	got, err := os.ReadFile(meta)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")

	require.NoError(t, WriteAll(File{Path: a, Data: []byte("1")}, File{Path: b, Data: []byte("2")}))

	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
	got, err = os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
}

func TestStageDiscard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")

	s, err := Stage(path, []byte("{}"))
	require.NoError(t, err)
	s.Discard()
	s.Discard()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMarshal(t *testing.T) {
	out, err := Marshal(map[string]int{"specVersion": 267}, true)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"specVersion\": 267\n}", string(out))

	out, err = Marshal(map[string]int{"specVersion": 267}, false)
	require.NoError(t, err)
	assert.Equal(t, `{"specVersion":267}`, string(out))

	_, err = Marshal(map[string]any{"bad": make(chan int)}, false)
	assert.Error(t, err)
}
