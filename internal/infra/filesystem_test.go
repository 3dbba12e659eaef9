package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileChecker(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "contentmon")
	require.NoError(t, os.WriteFile(binary, []byte("bin"), 0755))
	dangling := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), dangling))

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"installed binary", binary, true},
		{"data directory", dir, true},
		{"removed binary", filepath.Join(dir, "missing"), false},
		{"symlink to removed binary", dangling, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OSFileChecker{}.Exists(tt.path))
		})
	}
}

func TestOSFileChecker_UnreadableParentCountsAsPresent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(locked, "contentmon"), []byte("bin"), 0755))
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0700) })

	assert.True(t, OSFileChecker{}.Exists(filepath.Join(locked, "contentmon")))
}
