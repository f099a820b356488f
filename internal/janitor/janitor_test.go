package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesOnlyOldFiles(t *testing.T) {
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "old.parquet")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	oldTime := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	newFile := filepath.Join(dir, "new.png")
	require.NoError(t, os.WriteFile(newFile, []byte("x"), 0o644))

	subdir := filepath.Join(dir, "keep")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	removed, err := Sweep(dir, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
	assert.DirExists(t, subdir)
}

func TestSweepMissingDirFails(t *testing.T) {
	_, err := Sweep(filepath.Join(t.TempDir(), "nope"), time.Now())
	assert.Error(t, err)
}
