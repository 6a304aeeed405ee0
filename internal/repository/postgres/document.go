package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/flashcards-server/internal/model"
)

var _ model.DocumentStore = (*DocumentRepository)(nil)

// DocumentRepository stores each user's document as one JSON row.
type DocumentRepository struct {
	db *Connection
}

func NewDocumentRepository(db *Connection) *DocumentRepository {
	return &DocumentRepository{
		db: db,
	}
}

func (r *DocumentRepository) Load(ctx context.Context, username string) (model.Document, error) {
	const query = `SELECT body::text FROM flashcard_documents WHERE username = $1`

	var body string
	err := r.db.QueryRow(ctx, query, username).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Document{}, model.ErrNotFound
		}
		return model.Document{}, fmt.Errorf("failed to load document: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return model.Document{}, fmt.Errorf("%w: %v", model.ErrCorruptDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return model.Document{}, fmt.Errorf("%w: %v", model.ErrCorruptDocument, err)
	}

	return doc, nil
}

func (r *DocumentRepository) Save(ctx context.Context, username string, doc model.Document) error {
	const query = `
        INSERT INTO flashcard_documents (username, body, updated_at)
        VALUES ($1, $2::json, NOW())
        ON CONFLICT (username) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
    `

	if err := doc.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid document: %w", err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, username, string(body)); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, username string) error {
	const query = `DELETE FROM flashcard_documents WHERE username = $1`

	if _, err := r.db.Exec(ctx, query, username); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
