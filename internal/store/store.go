// Package store holds extracted documents in memory, in insertion order.
package store

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

var ErrDuplicateID = errors.New("document id already present")

// Store is safe for concurrent use. All structural mutations go through one
// mutex so completions landing together cannot lose updates.
type Store struct {
	mu     sync.RWMutex
	docs   []entity.Document
	index  map[string]int
	newID  func() string
	logger *slog.Logger
}

type Option func(*Store)

// WithIDGenerator replaces the uuid generator, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		index:  make(map[string]int),
		newID:  func() string { return uuid.NewString() },
		logger: logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add appends doc. An empty ID is filled with a fresh identifier; the stored
// copy is returned.
func (s *Store) Add(doc entity.Document) (entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = s.newID()
	}
	if _, dup := s.index[doc.ID]; dup {
		return entity.Document{}, ErrDuplicateID
	}
	doc = doc.Clone()
	s.index[doc.ID] = len(s.docs)
	s.docs = append(s.docs, doc)

	s.logger.Debug("store.add", "doc_id", doc.ID, "vendor", doc.Vendor, "size", len(s.docs))
	return doc.Clone(), nil
}

// Remove deletes the entry and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.docs); j++ {
		s.index[s.docs[j].ID] = j
	}

	s.logger.Debug("store.remove", "doc_id", id, "size", len(s.docs))
	return true
}

func (s *Store) Get(id string) (entity.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return entity.Document{}, false
	}
	return s.docs[i].Clone(), true
}

// List returns copies in insertion order.
func (s *Store) List() []entity.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Document, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
