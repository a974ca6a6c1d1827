package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"sync"

	"github.com/pevans/listwatch/record"
)

// ErrNoState is returned by a Backend that has never been saved to. The
// store treats it as a cold start.
var ErrNoState = errors.New("no stored state")

// PersistenceError describes a failed load or save of the record set.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s records: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Backend is the durable side of the store. Save replaces the whole record
// set in one step: after it returns, Load yields exactly what was saved.
type Backend interface {
	Load(ctx context.Context) (map[string]record.Record, error)
	Save(ctx context.Context, records map[string]record.Record) error
	Close() error
}

// Store is the in-memory set of known records, keyed by ID. It is safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	logger  *log.Logger
	records map[string]record.Record
	existed bool
	dirty   bool
}

// New creates an empty store over backend. Call Load to populate it.
func New(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		backend: backend,
		logger:  logger,
		records: make(map[string]record.Record),
	}
}

// Load replaces the in-memory set with the backend's contents. A backend
// without state is a cold start and not an error. Any other failure leaves
// the store empty, logs a warning and returns a *PersistenceError so the
// caller can decide whether starting from scratch is acceptable.
func (s *Store) Load(ctx context.Context) error {
	records, err := s.backend.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]record.Record)
	s.existed = false
	s.dirty = false

	if errors.Is(err, ErrNoState) {
		s.logger.Printf("INFO: No stored records, starting fresh")
		return nil
	}
	if err != nil {
		s.logger.Printf("WARN: Failed to load stored records, starting empty: %v", err)
		return &PersistenceError{Op: "load", Err: err}
	}

	for id, r := range records {
		if r.ID == "" {
			r.ID = id
		}
		s.records[id] = r
	}
	s.existed = true
	s.logger.Printf("INFO: Loaded %d stored records", len(s.records))
	return nil
}

// Save writes the full record set to the backend. The dirty flag is cleared
// only when the write succeeds.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	snapshot := maps.Clone(s.records)
	s.mu.RUnlock()

	if err := s.backend.Save(ctx, snapshot); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	s.mu.Lock()
	s.dirty = false
	s.existed = true
	s.mu.Unlock()
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Existed reports whether the last Load found prior state.
func (s *Store) Existed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existed
}

// Dirty reports whether the set changed since the last Load or Save.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Contains reports whether id is known.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// Get returns a copy of the record stored under id.
func (s *Store) Get(id string) (record.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return record.Record{}, false
	}
	return r.Clone(), true
}

// Upsert inserts r or replaces the record with the same ID.
func (s *Store) Upsert(r record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r.Clone()
	s.dirty = true
}

// Delete removes id and reports whether it was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	s.dirty = true
	return true
}

// Len returns the number of known records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// List returns copies of all records ordered by ID.
func (s *Store) List() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(s.records))
	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id].Clone())
	}
	return out
}
