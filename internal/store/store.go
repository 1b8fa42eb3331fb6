package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// Store provides KV storage using Pebble
type Store struct {
	db *pebble.DB
}

// New creates a new Store instance
func New(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open pebble db")
	}

	return &Store{
		db: db,
	}, nil
}

// Set stores a key-value pair
func (s *Store) Set(key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

// Get retrieves a value by key. A missing key returns nil, nil.
func (s *Store) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	// Copy value since it's only valid until closer is called
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Delete removes a key
func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// DeletePrefix removes every key starting with prefix in one batch
func (s *Store) DeletePrefix(prefix []byte) error {
	end := prefixUpperBound(prefix)
	if end == nil {
		return errors.New("cannot delete an unbounded prefix")
	}
	return s.db.DeleteRange(prefix, end, pebble.Sync)
}

// Scan iterates over keys with a prefix
func (s *Store) Scan(prefix []byte, callback func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		// Copy key and value
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())

		if err := callback(key, value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// SetJSON stores v encoded as JSON
func (s *Store) SetJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode value")
	}
	return s.Set(key, data)
}

// GetJSON decodes the value at key into v. It reports whether the key exists.
func (s *Store) GetJSON(key []byte, v interface{}) (bool, error) {
	data, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "failed to decode value at %q", key)
	}
	return true, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// prefixUpperBound returns the upper bound for a prefix scan
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
