package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/floater/internal/shared"
)

// Key is the fixed storage key of the refresh token.
const Key = "spotify_refresh_token"

const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendSQLite  = "sqlite"
	BackendMemory  = "memory"
)

// ErrEmptyToken is returned by Save when asked to persist an empty string.
var ErrEmptyToken = errors.New("refresh token is empty")

// Store is a single-slot refresh token store.
type Store interface {
	Save(refreshToken string) error
	Load() (token string, ok bool, err error)
	Clear() error
}

// Options selects and configures a backend for [New].
type Options struct {
	Backend string
	// Path is the credentials file for the file backend.
	Path   string
	DB     *sql.DB
	Logger *log.Logger
}

// New builds the configured backend. An empty backend selects the keyring, or the file backend when
// the keyring cannot be reached.
func New(opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendKeyring:
		keychain := NewKeyringStore(logger)
		if keychain.Available() {
			logger.Debug("using system keyring for credentials")
			return keychain, nil
		}
		logger.Info("system keyring not available, falling back to file storage", "path", opts.Path)
		return newFile(opts.Path, logger)
	case BackendFile:
		return newFile(opts.Path, logger)
	case BackendSQLite:
		if opts.DB == nil {
			return nil, errors.New("sqlite backend requires a database")
		}
		return NewSQLiteStore(opts.DB, logger), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Wrapf(shared.ErrInvalidConfig, "unknown storage backend %q", opts.Backend)
	}
}

func newFile(path string, logger *log.Logger) (Store, error) {
	if path == "" {
		def, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	s, err := NewFileStore(path, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultPath returns credentials.json under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve user config directory")
	}
	return filepath.Join(dir, "floater", "credentials.json"), nil
}

// record is the serialized form shared by the keyring and file backends.
type record struct {
	RefreshToken string    `json:"refresh_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func encodeRecord(token string) ([]byte, error) {
	data, err := json.Marshal(record{RefreshToken: token, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode token record")
	}
	return data, nil
}

// decodeRecord reports ok=false for anything that is not a record with a token.
func decodeRecord(data []byte) (string, bool) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil || r.RefreshToken == "" {
		return "", false
	}
	return r.RefreshToken, true
}
