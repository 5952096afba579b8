package atomicfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitMakesFileVisible(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "asset.jpg")

	tmp, err := Create(dir, "download_*.jpg")
	require.NoError(t, err)
	defer tmp.Cleanup()

	_, err = tmp.Write([]byte("payload"))
	require.NoError(t, err)

	assert.NoFileExists(t, final)

	require.NoError(t, tmp.Commit(final))

	content, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))

	// temp name is gone after rename
	assert.NoFileExists(t, tmp.Path())
}

func TestCleanupRemovesUncommitted(t *testing.T) {
	dir := t.TempDir()

	tmp, err := Create(dir, "download_*.mp4")
	require.NoError(t, err)

	_, err = tmp.Write([]byte("partial"))
	require.NoError(t, err)

	tmp.Cleanup()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanupAfterCommitIsNoop(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "asset.png")

	tmp, err := Create(dir, "download_*.png")
	require.NoError(t, err)

	_, err = tmp.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, tmp.Commit(final))

	tmp.Cleanup()

	assert.FileExists(t, final)
}

func TestConcurrentTempNamesAreDistinct(t *testing.T) {
	dir := t.TempDir()

	a, err := Create(dir, "download_*.gif")
	require.NoError(t, err)
	defer a.Cleanup()

	b, err := Create(dir, "download_*.gif")
	require.NoError(t, err)
	defer b.Cleanup()

	assert.NotEqual(t, a.Path(), b.Path())
	assert.True(t, strings.HasPrefix(filepath.Base(a.Path()), "download_"))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "asset.webp")

	n, err := WriteFile(dir, "download_*.webp", final, strings.NewReader("webp-bytes"))
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	content, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "webp-bytes", string(content))
}
