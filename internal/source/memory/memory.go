package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"villaledger/internal/core"
	applog "villaledger/internal/log"
	"villaledger/internal/source"
)

// Store keeps the three collections in memory. Rows are handed out as copies
// so callers can never mutate the store through a returned record.
type Store struct {
	mu          sync.Mutex
	collections map[string][]source.Record
}

// Ensure interface conformance
var _ source.Store = (*Store)(nil)

func New() *Store {
	s := &Store{collections: make(map[string][]source.Record, len(core.Collections))}
	for _, c := range core.Collections {
		s.collections[c] = nil
	}
	return s
}

// NewFromFiles seeds the store from <base>/villas.json, payments.json and
// expenses.json. Missing files leave the collection empty; unreadable JSON is
// logged and skipped. logger may be nil.
func NewFromFiles(base string, logger *applog.Logger) *Store {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentBackend)

	s := New()
	for _, c := range core.Collections {
		rows, err := readJSON(filepath.Join(base, c+".json"))
		if err != nil {
			logger.Warn("Skipping seed file", applog.FieldCollection, c, applog.FieldError, err.Error())
			continue
		}
		for _, r := range rows {
			if _, err := s.insert(c, r); err != nil {
				logger.Warn("Skipping seed row", applog.FieldCollection, c, applog.FieldError, err.Error())
			}
		}
	}
	return s
}

// Seed replaces a collection's contents, used by tests and the report CLI.
func (s *Store) Seed(collection string, rows []source.Record) error {
	if err := source.ValidateCollection(collection); err != nil {
		return err
	}
	s.mu.Lock()
	s.collections[collection] = nil
	s.mu.Unlock()
	for _, r := range rows {
		if _, err := s.insert(collection, r); err != nil {
			return err
		}
	}
	return nil
}

// SelectAll returns copies of every row of the collection.
func (s *Store) SelectAll(_ context.Context, collection string) ([]source.Record, error) {
	if err := source.ValidateCollection(collection); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.collections[collection]
	out := make([]source.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Clone())
	}
	return out, nil
}

// Insert stores r and returns its id, generating one when r has none.
func (s *Store) Insert(_ context.Context, collection string, r source.Record) (string, error) {
	if err := source.ValidateCollection(collection); err != nil {
		return "", err
	}
	return s.insert(collection, r)
}

func (s *Store) insert(collection string, r source.Record) (string, error) {
	row := r.Clone()
	id := ""
	if v, ok := row["id"]; ok && v != nil {
		id = fmt.Sprint(v)
	}
	if id == "" {
		id = uuid.NewString()
		row["id"] = id
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], row)
	return id, nil
}

// Delete removes the row with the given id. Deleting an unknown id returns
// an error wrapping core.ErrNotFound.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	if err := source.ValidateCollection(collection); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.collections[collection]
	for i, r := range rows {
		if fmt.Sprint(r["id"]) == id {
			s.collections[collection] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s %s: %w", collection, id, core.ErrNotFound)
}

func readJSON(path string) ([]source.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var rows []source.Record
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rows, nil
}
