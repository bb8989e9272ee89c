// Package storage provides persistent storage of labeled training examples.
// It uses BoltDB as the underlying storage engine so a serving process can fit
// its model from data collected out of band instead of synthetic samples.
//
// Examples are kept in insertion order under monotonically increasing keys.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	examplesBucket = "examples" // Bucket name for labeled training examples
	dbFileName     = "training-data.db"
)

// Example is a single labeled observation.
type Example struct {
	Features  []float64 `json:"features"`
	Label     float64   `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

// Store provides persistent storage for training examples using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens (or creates) the example database under dataPath.
// Returns an error if the database cannot be opened or the bucket cannot be created.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dbPath := filepath.Join(dataPath, dbFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(examplesBucket)); err != nil {
			return fmt.Errorf("create examples bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StoreExample appends one labeled example.
func (s *Store) StoreExample(ex Example) error {
	return s.StoreExamples([]Example{ex})
}

// StoreExamples appends examples in a single transaction, preserving their order.
func (s *Store) StoreExamples(examples []Example) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(examplesBucket))

		for _, ex := range examples {
			if ex.Timestamp.IsZero() {
				ex.Timestamp = time.Now().UTC()
			}
			data, err := json.Marshal(ex)
			if err != nil {
				return fmt.Errorf("marshal example: %w", err)
			}

			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			if err := b.Put(sequenceKey(seq), data); err != nil {
				return fmt.Errorf("put example %d: %w", seq, err)
			}
		}
		return nil
	})
}

// LoadExamples returns every stored example in insertion order. A record that
// fails to decode aborts the load.
func (s *Store) LoadExamples() ([]Example, error) {
	var examples []Example

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(examplesBucket))
		return b.ForEach(func(k, v []byte) error {
			var ex Example
			if err := json.Unmarshal(v, &ex); err != nil {
				return fmt.Errorf("decode example %x: %w", k, err)
			}
			examples = append(examples, ex)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}
	return examples, nil
}

// Count returns the number of stored examples.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(examplesBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// sequenceKey encodes seq big-endian so cursor order equals insertion order.
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
