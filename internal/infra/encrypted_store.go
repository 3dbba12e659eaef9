package infra

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	storeDBName            = "contentmon.db"
	blockedAttemptsCounter = "blocked_attempts"
)

// EncryptedStore implements domain.CounterStore, domain.StateStore and
// domain.SecretStore using a SQLCipher encrypted SQLite database.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedStore opens (or creates) the encrypted database in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dataDir string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, storeDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}
	// One writer keeps the counter read-modify-write free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &EncryptedStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL,
		last_detection_id TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		pid INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		last_heartbeat INTEGER NOT NULL,
		strict_mode INTEGER NOT NULL,
		app_version TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS secrets (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- domain.CounterStore implementation ---

// Increment adds one to the blocked attempts counter unless detectionID was
// the last one applied.
func (s *EncryptedStore) Increment(ctx context.Context, detectionID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		value  int64
		lastID string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT value, last_detection_id FROM counters WHERE name = ?`,
		blockedAttemptsCounter).Scan(&value, &lastID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}

	if detectionID != "" && lastID == detectionID {
		return value, nil
	}

	value++
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO counters (name, value, last_detection_id, updated_at)
		VALUES (?, ?, ?, ?)`,
		blockedAttemptsCounter, value, detectionID, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}
	return value, nil
}

// Count returns the blocked attempts counter.
func (s *EncryptedStore) Count(ctx context.Context) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE name = ?`, blockedAttemptsCounter).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCounterUnavailable, err)
	}
	return value, nil
}

// --- domain.StateStore implementation ---

// SaveState replaces the agent liveness record.
func (s *EncryptedStore) SaveState(state domain.AgentState) error {
	strict := 0
	if state.StrictMode {
		strict = 1
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO agent_state (id, pid, started_at, last_heartbeat, strict_mode, app_version)
		VALUES (1, ?, ?, ?, ?, ?)`,
		state.PID, state.StartedAt.Unix(), state.LastHeartbeat.Unix(), strict, state.AppVersion)
	return err
}

// LoadState returns the liveness record, or nil if the agent never ran.
func (s *EncryptedStore) LoadState() (*domain.AgentState, error) {
	var (
		pid                int
		started, heartbeat int64
		strict             int
		version            string
	)
	err := s.db.QueryRow(`
		SELECT pid, started_at, last_heartbeat, strict_mode, app_version
		FROM agent_state WHERE id = 1`).Scan(&pid, &started, &heartbeat, &strict, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.AgentState{
		PID:           pid,
		StartedAt:     time.Unix(started, 0),
		LastHeartbeat: time.Unix(heartbeat, 0),
		StrictMode:    strict == 1,
		AppVersion:    version,
	}, nil
}

// --- domain.SecretStore implementation ---

// GetSecret retrieves a secret by key.
func (s *EncryptedStore) GetSecret(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM secrets WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("secret %q not found", key)
	}
	return value, err
}

// SetSecret stores a secret.
func (s *EncryptedStore) SetSecret(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO secrets (key, value, created_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	return err
}

// Path returns the database file path.
func (s *EncryptedStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedStore implements all three interfaces.
var (
	_ domain.CounterStore = (*EncryptedStore)(nil)
	_ domain.StateStore   = (*EncryptedStore)(nil)
	_ domain.SecretStore  = (*EncryptedStore)(nil)
)
