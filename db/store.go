package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"provas-server-go/models"
)

var (
	ErrNotFound        = errors.New("assessment not found")
	ErrInvalidDocument = errors.New("invalid assessment")
)

// Record is one raw entry of a key-value backend
type Record struct {
	Key   string
	Value []byte
}

// KVStore is the storage medium behind DocumentStore. Implementations overwrite on Put
// and report absent keys with ErrNotFound from Get and false from Delete.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, key string) (bool, error)
	Close() error
}

// DocumentStore reads and writes whole assessments on top of a KVStore
type DocumentStore struct {
	kv KVStore
}

// NewDocumentStore creates a DocumentStore over the given backend
func NewDocumentStore(kv KVStore) *DocumentStore {
	return &DocumentStore{kv: kv}
}

// Close releases the backend
func (s *DocumentStore) Close() error {
	return s.kv.Close()
}

// Load returns the assessment stored under id. Missing and unreadable records are both
// reported as ErrNotFound.
func (s *DocumentStore) Load(ctx context.Context, id string) (*models.Assessment, error) {
	if !models.ValidID(id) {
		return nil, fmt.Errorf("%w: bad id %q", ErrNotFound, id)
	}
	data, err := s.kv.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var a models.Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("stored assessment is not valid JSON")
		return nil, fmt.Errorf("%w: record %s is corrupt: %v", ErrNotFound, id, err)
	}
	if a.ID == "" {
		a.ID = id
	}
	a.Normalize()
	return &a, nil
}

// Save writes the full document, assigning a new ID first when it has none
func (s *DocumentStore) Save(ctx context.Context, a *models.Assessment) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	data, err := encodeDocument(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode assessment %s: %w", a.ID, err)
	}
	if err := s.kv.Put(ctx, a.ID, data); err != nil {
		return "", fmt.Errorf("failed to save assessment %s: %w", a.ID, err)
	}
	log.Debug().Str("id", a.ID).Int("questions", len(a.Questions)).Msg("saved assessment")
	return a.ID, nil
}

// List returns a summary of every readable record, in no particular order
func (s *DocumentStore) List(ctx context.Context) ([]models.Summary, error) {
	records, err := s.kv.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	summaries := make([]models.Summary, 0, len(records))
	for _, r := range records {
		var a models.Assessment
		if err := json.Unmarshal(r.Value, &a); err != nil {
			log.Debug().Err(err).Str("key", r.Key).Msg("skipping unreadable record")
			continue
		}
		if a.ID == "" {
			a.ID = r.Key
		}
		summaries = append(summaries, a.Summary())
	}
	return summaries, nil
}

// Delete removes the record for id and reports whether it existed
func (s *DocumentStore) Delete(ctx context.Context, id string) (bool, error) {
	if !models.ValidID(id) {
		return false, nil
	}
	deleted, err := s.kv.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete assessment %s: %w", id, err)
	}
	return deleted, nil
}
