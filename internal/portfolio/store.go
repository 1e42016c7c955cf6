package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"
)

var ErrNotFound = errors.New("portfolio record not found")

// Document is one stored record. Meta fields inside Body are ignored on read;
// the ID and timestamp columns are authoritative.
type Document struct {
	ID        string
	Kind      string
	Body      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentStore persists records of every kind. List returns documents in
// insertion order.
type DocumentStore interface {
	List(ctx context.Context, kind string) ([]Document, error)
	Get(ctx context.Context, kind, id string) (Document, error)
	Insert(ctx context.Context, doc Document) error
	Update(ctx context.Context, kind, id string, fn func(*Document) error) (Document, error)
	Delete(ctx context.Context, kind, id string) error
}

type MemoryStore struct {
	mu   sync.Mutex
	docs []Document
}

var _ DocumentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) List(_ context.Context, kind string) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Document, 0)
	for _, doc := range s.docs {
		if doc.Kind == kind {
			out = append(out, cloneDocument(doc))
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, kind, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(kind, id)
	if i < 0 {
		return Document{}, ErrNotFound
	}
	return cloneDocument(s.docs[i]), nil
}

func (s *MemoryStore) Insert(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.docs, func(d Document) bool { return d.ID == doc.ID }) {
		return errors.New("duplicate document id")
	}
	s.docs = append(s.docs, cloneDocument(doc))
	return nil
}

func (s *MemoryStore) Update(_ context.Context, kind, id string, fn func(*Document) error) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(kind, id)
	if i < 0 {
		return Document{}, ErrNotFound
	}

	next := cloneDocument(s.docs[i])
	if err := fn(&next); err != nil {
		return Document{}, err
	}
	next.ID, next.Kind, next.CreatedAt = s.docs[i].ID, s.docs[i].Kind, s.docs[i].CreatedAt
	s.docs[i] = next
	return cloneDocument(next), nil
}

func (s *MemoryStore) Delete(_ context.Context, kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(kind, id)
	if i < 0 {
		return ErrNotFound
	}
	s.docs = slices.Delete(s.docs, i, i+1)
	return nil
}

func (s *MemoryStore) index(kind, id string) int {
	return slices.IndexFunc(s.docs, func(d Document) bool { return d.Kind == kind && d.ID == id })
}

func cloneDocument(d Document) Document {
	d.Body = slices.Clone(d.Body)
	return d
}
