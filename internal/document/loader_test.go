package document

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_RecursiveTextOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "nested", "deeper", "b.TXT"), "beta")
	writeFile(t, filepath.Join(root, "notes.md"), "# not loaded")
	writeFile(t, filepath.Join(root, ".upload-123.part"), "partial")

	docs, err := Load(root)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, filepath.Join(root, "a.txt"), docs[0].Source)
	assert.Equal(t, "alpha", docs[0].Text)
	assert.Equal(t, filepath.Join(root, "nested", "deeper", "b.TXT"), docs[1].Source)
	assert.Equal(t, "beta", docs[1].Text)
}

func TestLoad_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "only.txt")
	writeFile(t, path, "solo")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, path, docs[0].Source)
}

func TestLoad_EmptyDirectory(t *testing.T) {
	docs, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoad_MissingRoot(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestNewChunk_InheritsSource(t *testing.T) {
	doc := Document{Source: "/data/a.txt", Text: "hello world"}
	chunk := NewChunk(doc, 3, "world")

	assert.Equal(t, 3, chunk.Index)
	assert.Equal(t, "/data/a.txt", chunk.Source())
	assert.Equal(t, "3", chunk.Metadata[MetadataChunkIndex])
}
