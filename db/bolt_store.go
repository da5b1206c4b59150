package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

var assessmentsBucket = []byte("Assessments")

// BoltStore keeps records in a single bbolt bucket
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database file and its bucket
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(assessmentsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	log.Info().Str("path", path).Msg("using bolt storage")
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(assessmentsBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *BoltStore) Put(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(assessmentsBucket).Put([]byte(key), value)
	})
}

func (s *BoltStore) List(_ context.Context) ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(assessmentsBucket).ForEach(func(k, v []byte) error {
			records = append(records, Record{Key: string(k), Value: append([]byte(nil), v...)})
			return nil
		})
	})
	return records, err
}

func (s *BoltStore) Delete(_ context.Context, key string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(assessmentsBucket)
		if b.Get([]byte(key)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(key))
	})
	return existed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
