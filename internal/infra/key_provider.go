package infra

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

const (
	keyFileName = ".store.key"
	keySize     = 32 // 256-bit AES key

	// StoreKeyEnv lets a managed install inject the store key instead of keeping it on disk.
	StoreKeyEnv = "CONTENTMON_STORE_KEY"
)

// FileKeyProvider implements domain.KeyProvider using a local file with 0600 permissions.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a FileKeyProvider for the given data directory.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: filepath.Join(dataDir, keyFileName)}
}

// GetKey reads the encryption key from the key file.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	return key, checkKeySize(key)
}

// StoreKey writes the encryption key to the key file.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if err := checkKeySize(key); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(p.keyPath, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

// EnvKeyProvider implements domain.KeyProvider from a hex-encoded environment variable.
// It is read-only.
type EnvKeyProvider struct {
	name string
}

// NewEnvKeyProvider reads the key from the named variable.
func NewEnvKeyProvider(name string) *EnvKeyProvider {
	return &EnvKeyProvider{name: name}
}

// GetKey decodes the variable.
func (p *EnvKeyProvider) GetKey() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(p.name))
	if raw == "" {
		return nil, fmt.Errorf("%s is not set", p.name)
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", p.name, err)
	}
	return key, checkKeySize(key)
}

// StoreKey always fails: the key is owned by whoever sets the variable.
func (p *EnvKeyProvider) StoreKey(key []byte) error {
	return errors.New("environment key provider is read-only")
}

// KeyExists reports whether the variable is set.
func (p *EnvKeyProvider) KeyExists() bool {
	return strings.TrimSpace(os.Getenv(p.name)) != ""
}

// DefaultKeyProvider prefers StoreKeyEnv when set, else the key file in dataDir.
func DefaultKeyProvider(dataDir string) domain.KeyProvider {
	env := NewEnvKeyProvider(StoreKeyEnv)
	if env.KeyExists() {
		return env
	}
	return NewFileKeyProvider(dataDir)
}

// GenerateKey creates a new random 256-bit encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

// EnsureKey generates and stores a key if one doesn't exist.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// OpenEncryptedStore resolves the key from provider, creating one on first
// run, and opens the store in dataDir.
func OpenEncryptedStore(dataDir string, provider domain.KeyProvider) (*EncryptedStore, error) {
	key, err := EnsureKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain store key: %w", err)
	}
	return NewEncryptedStore(dataDir, key)
}

func checkKeySize(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return nil
}

// Ensure both providers implement domain.KeyProvider.
var (
	_ domain.KeyProvider = (*FileKeyProvider)(nil)
	_ domain.KeyProvider = (*EnvKeyProvider)(nil)
)
