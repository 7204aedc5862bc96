package throttle

import (
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// BadgerStore is a fiber.Storage backed by badger. With an empty dir the
// database lives in memory only.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a BadgerStore; dir may be empty for an in-memory store
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(log.StandardLogger()).
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "could not open badger throttle store")
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the value for key or nil if it does not exist or has expired
func (s *BadgerStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	var value []byte
	err := s.db.View(
		func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return nil
				}
				return err
			}
			value, err = item.ValueCopy(nil)
			return err
		},
	)
	return value, errors.WithStack(err)
}

// Set stores val under key; exp == 0 means no expiry
func (s *BadgerStore) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	err := s.db.Update(
		func(txn *badger.Txn) error {
			e := badger.NewEntry([]byte(key), val)
			if exp > 0 {
				e = e.WithTTL(exp)
			}
			return txn.SetEntry(e)
		},
	)
	return errors.WithStack(err)
}

// Delete removes key
func (s *BadgerStore) Delete(key string) error {
	if key == "" {
		return nil
	}
	err := s.db.Update(
		func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		},
	)
	return errors.WithStack(err)
}

// Reset drops all keys
func (s *BadgerStore) Reset() error {
	return errors.WithStack(s.db.DropAll())
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return errors.WithStack(s.db.Close())
}
