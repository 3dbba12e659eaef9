package infra

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openDefault opens the store the way the daemon and the CLI do.
func openDefault(t *testing.T, dataDir string) *EncryptedStore {
	t.Helper()
	store, err := OpenEncryptedStore(dataDir, DefaultKeyProvider(dataDir))
	require.NoError(t, err)
	return store
}

func TestOpenEncryptedStore_FirstRunWritesPrivateKeyFile(t *testing.T) {
	t.Setenv(StoreKeyEnv, "")
	dataDir := filepath.Join(t.TempDir(), "contentmon")

	store := openDefault(t, dataDir)
	defer store.Close()

	info, err := os.Stat(filepath.Join(dataDir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	key, err := NewFileKeyProvider(dataDir).GetKey()
	require.NoError(t, err)
	assert.Len(t, key, keySize)
}

func TestOpenEncryptedStore_ReopenKeepsCounter(t *testing.T) {
	t.Setenv(StoreKeyEnv, "")
	dataDir := t.TempDir()
	ctx := context.Background()

	store := openDefault(t, dataDir)
	for _, id := range []string{"det-1", "det-2", "det-3"} {
		_, err := store.Increment(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	// A restarted daemon finds the key file and keeps counting.
	store = openDefault(t, dataDir)
	defer store.Close()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = store.Increment(ctx, "det-3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "retry of the last detection must not count twice")
}

func TestOpenEncryptedStore_KeyMismatch(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		corrupt func(t *testing.T, dataDir string)
	}{
		{
			name: "environment key differs from the one that created the store",
			corrupt: func(t *testing.T, dataDir string) {
				other, err := GenerateKey()
				require.NoError(t, err)
				t.Setenv(StoreKeyEnv, hex.EncodeToString(other))
			},
		},
		{
			name: "key file replaced",
			corrupt: func(t *testing.T, dataDir string) {
				other, err := GenerateKey()
				require.NoError(t, err)
				require.NoError(t, NewFileKeyProvider(dataDir).StoreKey(other))
			},
		},
		{
			name: "key file truncated",
			corrupt: func(t *testing.T, dataDir string) {
				path := filepath.Join(dataDir, keyFileName)
				require.NoError(t, os.WriteFile(path, []byte("c2hvcnQ="), 0600))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(StoreKeyEnv, "")
			dataDir := t.TempDir()
			store := openDefault(t, dataDir)
			_, err := store.Increment(ctx, "det-1")
			require.NoError(t, err)
			require.NoError(t, store.Close())

			tt.corrupt(t, dataDir)

			_, err = OpenEncryptedStore(dataDir, DefaultKeyProvider(dataDir))
			assert.Error(t, err)
		})
	}
}

func TestOpenEncryptedStore_EnvKeyWinsOverFile(t *testing.T) {
	dataDir := t.TempDir()
	key, err := GenerateKey()
	require.NoError(t, err)
	t.Setenv(StoreKeyEnv, hex.EncodeToString(key))

	store := openDefault(t, dataDir)
	require.NoError(t, store.SetSecret("telegram_token", "123:abc"))
	require.NoError(t, store.Close())

	_, err = os.Stat(filepath.Join(dataDir, keyFileName))
	assert.True(t, os.IsNotExist(err), "managed installs keep the key off disk")

	// Reopening with the raw key proves the variable keyed the database.
	direct, err := NewEncryptedStore(dataDir, key)
	require.NoError(t, err)
	defer direct.Close()
	token, err := direct.GetSecret("telegram_token")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", token)
}

func TestEnvKeyProvider_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"unset", "", "is not set"},
		{"not hex", "not-hex", "failed to decode"},
		{"too short", "abcd", "invalid key size"},
		{"too long", strings.Repeat("ab", keySize+1), "invalid key size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(StoreKeyEnv, tt.value)
			provider := NewEnvKeyProvider(StoreKeyEnv)

			_, err := provider.GetKey()

			assert.ErrorContains(t, err, tt.wantErr)
			assert.Error(t, provider.StoreKey(make([]byte, keySize)))
		})
	}
}

func TestEnvKeyProvider_WhitespaceTrimmed(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	t.Setenv(StoreKeyEnv, "  "+hex.EncodeToString(key)+"\n")

	got, err := NewEnvKeyProvider(StoreKeyEnv).GetKey()

	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestFileKeyProvider_RejectsShortKey(t *testing.T) {
	provider := NewFileKeyProvider(t.TempDir())

	assert.ErrorContains(t, provider.StoreKey([]byte("tooshort")), "invalid key size")
	assert.False(t, provider.KeyExists())
}

func TestEnsureKey_StableAcrossCalls(t *testing.T) {
	provider := NewFileKeyProvider(t.TempDir())

	first, err := EnsureKey(provider)
	require.NoError(t, err)
	second, err := EnsureKey(provider)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	other, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
