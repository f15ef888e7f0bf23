package format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.txt")

	require.NoError(t, WriteLines(path, []string{"golang:1.21", "node:18", "ubuntu:20.04"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "golang:1.21\nnode:18\nubuntu:20.04\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileUserReadWrite), info.Mode().Perm())
}
