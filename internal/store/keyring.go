package store

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
)

const keyringService = "floater"

// KeyringStore keeps the refresh token in the OS keychain.
type KeyringStore struct {
	service string
	logger  *log.Logger
}

var _ Store = (*KeyringStore)(nil)

func NewKeyringStore(logger *log.Logger) *KeyringStore {
	return &KeyringStore{service: keyringService, logger: logger.With("component", "keyring_store")}
}

// Available reports whether the keychain can be reached. A missing entry counts as available.
func (s *KeyringStore) Available() bool {
	_, err := keyring.Get(s.service, Key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.logger.Warn("keyring is not accessible", "error", err)
		return false
	}
	return true
}

func (s *KeyringStore) Save(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	data, err := encodeRecord(token)
	if err != nil {
		return err
	}

	if err := keyring.Set(s.service, Key, string(data)); err != nil {
		return errors.Wrap(err, "failed to save token to system keyring")
	}
	s.logger.Debug("saved refresh token")
	return nil
}

func (s *KeyringStore) Load() (string, bool, error) {
	data, err := keyring.Get(s.service, Key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "failed to load token from system keyring")
	}

	token, ok := decodeRecord([]byte(data))
	if !ok {
		s.logger.Warn("stored token is corrupted, removing it")
		_ = s.Clear()
		return "", false, nil
	}
	return token, true, nil
}

func (s *KeyringStore) Clear() error {
	if err := keyring.Delete(s.service, Key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "failed to delete token from system keyring")
	}
	return nil
}
