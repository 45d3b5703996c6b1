package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T) (src, dst string)
		expectError bool
	}{
		{
			name: "move within same directory",
			setup: func(t *testing.T) (string, string) {
				dir := t.TempDir()
				src := filepath.Join(dir, "src.txt")
				require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
				return src, filepath.Join(dir, "dst.txt")
			},
		},
		{
			name: "move into new subdirectory",
			setup: func(t *testing.T) (string, string) {
				dir := t.TempDir()
				src := filepath.Join(dir, "src.txt")
				require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
				return src, filepath.Join(dir, "sub", "dir", "dst.txt")
			},
		},
		{
			name: "missing source",
			setup: func(t *testing.T) (string, string) {
				dir := t.TempDir()
				return filepath.Join(dir, "nothere.txt"), filepath.Join(dir, "dst.txt")
			},
			expectError: true,
		},
		{
			name: "empty paths",
			setup: func(t *testing.T) (string, string) {
				return "", ""
			},
			expectError: true,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			src, dst := testCase.setup(t)

			err := Move(src, dst)

			if testCase.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoFileExists(t, src)
			content, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "payload", string(content))
		})
	}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("copy me"), 0o644))

	require.NoError(t, Copy(src, dst))

	assert.FileExists(t, src)
	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "copy me", string(content))
}
