package infra

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

func TestInstanceLock(t *testing.T) {
	dir := t.TempDir()
	first := NewInstanceLock(dir)
	second := NewInstanceLock(dir)

	require.NoError(t, first.Acquire())
	require.NoError(t, first.Acquire(), "re-acquire by the holder is a no-op")

	assert.ErrorIs(t, second.Acquire(), domain.ErrAlreadyRunning)

	data, err := os.ReadFile(first.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	require.NoError(t, second.Acquire(), "lock is free after release")
	require.NoError(t, second.Release())
}
