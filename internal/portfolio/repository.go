package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository stores documents in the portfolio_documents table. The seq
// column preserves insertion order.
type Repository struct {
	db *sql.DB
}

var _ DocumentStore = (*Repository)(nil)

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, kind string) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, body, created_at, updated_at
		FROM portfolio_documents
		WHERE kind = $1
		ORDER BY seq ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("query %s documents: %w", kind, err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s document: %w", kind, err)
		}
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s documents: %w", kind, err)
	}

	return docs, nil
}

func (r *Repository) Get(ctx context.Context, kind, id string) (Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, `
		SELECT id, kind, body, created_at, updated_at
		FROM portfolio_documents
		WHERE kind = $1 AND id = $2
	`, kind, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("query %s document: %w", kind, err)
	}
	return d, nil
}

func (r *Repository) Insert(ctx context.Context, doc Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO portfolio_documents (id, kind, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, doc.ID, doc.Kind, []byte(doc.Body), doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert %s document: %w", doc.Kind, err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, kind, id string, fn func(*Document) error) (Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, fmt.Errorf("begin %s update tx: %w", kind, err)
	}
	defer tx.Rollback()

	d, err := scanDocument(tx.QueryRowContext(ctx, `
		SELECT id, kind, body, created_at, updated_at
		FROM portfolio_documents
		WHERE kind = $1 AND id = $2
		FOR UPDATE
	`, kind, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("lock %s document: %w", kind, err)
	}

	if err := fn(&d); err != nil {
		return Document{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE portfolio_documents
		SET body = $3, updated_at = $4
		WHERE kind = $1 AND id = $2
	`, kind, id, []byte(d.Body), d.UpdatedAt.UTC()); err != nil {
		return Document{}, fmt.Errorf("update %s document: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return Document{}, fmt.Errorf("commit %s update tx: %w", kind, err)
	}
	return d, nil
}

func (r *Repository) Delete(ctx context.Context, kind, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM portfolio_documents WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return fmt.Errorf("delete %s document: %w", kind, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var body []byte
	if err := row.Scan(&d.ID, &d.Kind, &body, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Document{}, err
	}
	d.Body = body
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}
