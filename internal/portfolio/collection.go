package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// recordPtr ties a record type to its pointer, which carries the methods.
type recordPtr[T any] interface {
	*T
	Record
}

// Collection is the typed view of one record kind over a DocumentStore.
type Collection[T any, P recordPtr[T]] struct {
	kind  string
	store DocumentStore
	now   func() time.Time
}

func NewCollection[T any, P recordPtr[T]](kind string, store DocumentStore) *Collection[T, P] {
	return &Collection[T, P]{kind: kind, store: store, now: time.Now}
}

func (c *Collection[T, P]) Kind() string { return c.kind }

func (c *Collection[T, P]) List(ctx context.Context) ([]T, error) {
	docs, err := c.store.List(ctx, c.kind)
	if err != nil {
		return nil, err
	}

	records := make([]T, 0, len(docs))
	for _, doc := range docs {
		record, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Collection[T, P]) Get(ctx context.Context, id string) (T, error) {
	doc, err := c.store.Get(ctx, c.kind, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(doc)
}

// Create assigns a fresh id and timestamps, then validates and stores record.
func (c *Collection[T, P]) Create(ctx context.Context, record T) (T, error) {
	var zero T

	id, err := uuid.NewV7()
	if err != nil {
		return zero, fmt.Errorf("generate uuid v7: %w", err)
	}

	p := P(&record)
	p.Normalize()
	if err := p.Validate(); err != nil {
		return zero, err
	}

	now := c.now().UTC()
	*p.Metadata() = Meta{ID: id.String(), CreatedAt: now, UpdatedAt: now}

	body, err := json.Marshal(record)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", c.kind, err)
	}

	if err := c.store.Insert(ctx, Document{ID: id.String(), Kind: c.kind, Body: body, CreatedAt: now, UpdatedAt: now}); err != nil {
		return zero, err
	}
	return record, nil
}

// Update loads the stored record, lets patch modify it, and saves the result
// if it still validates. Meta cannot be changed by patch.
func (c *Collection[T, P]) Update(ctx context.Context, id string, patch func(*T) error) (T, error) {
	var updated T

	_, err := c.store.Update(ctx, c.kind, id, func(doc *Document) error {
		current, err := c.decode(*doc)
		if err != nil {
			return err
		}
		meta := *P(&current).Metadata()

		if err := patch(&current); err != nil {
			return err
		}

		p := P(&current)
		p.Normalize()
		if err := p.Validate(); err != nil {
			return err
		}

		meta.UpdatedAt = c.now().UTC()
		*p.Metadata() = meta

		body, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.kind, err)
		}
		doc.Body = body
		doc.UpdatedAt = meta.UpdatedAt
		updated = current
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.kind, id)
}

func (c *Collection[T, P]) decode(doc Document) (T, error) {
	var record T
	if err := json.Unmarshal(doc.Body, &record); err != nil {
		return record, fmt.Errorf("decode %s %s: %w", c.kind, doc.ID, err)
	}
	*P(&record).Metadata() = Meta{ID: doc.ID, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt}
	return record, nil
}
