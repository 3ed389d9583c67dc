package storage

import (
	"echoes/errors"
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// KeyValueStore is the device-local storage used for the signature.
// Keys are namespaced under "device:" so the store can share a database with EchoGateway.
type KeyValueStore struct {
	db *badger.DB
}

func NewKeyValueStore(db *badger.DB) *KeyValueStore {
	return &KeyValueStore{db: db}
}

func (s *KeyValueStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		value, err = valueOf(txn, deviceKey(key))
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("key %q: %w", key, errors.ErrNotFound)
	}
	return value, err
}

func (s *KeyValueStore) Set(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(deviceKey(key), value)
	})
}

func (s *KeyValueStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(deviceKey(key))
	})
}

const devicePrefix = "device:"

func deviceKey(key string) []byte {
	return []byte(devicePrefix + key)
}

// UnavailableStore stands in for a device store that could not be opened.
// Every call fails with ErrSignatureUnavailable, so only signature features degrade.
type UnavailableStore struct {
	Cause error
}

func (s UnavailableStore) Get(string) ([]byte, error) { return nil, s.err() }
func (s UnavailableStore) Set(string, []byte) error   { return s.err() }
func (s UnavailableStore) Delete(string) error        { return s.err() }

func (s UnavailableStore) err() error {
	return fmt.Errorf("%w: %w", errors.ErrSignatureUnavailable, s.Cause)
}
