package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dtroode/flashcards-server/internal/model"
)

var _ model.DocumentStore = (*DocumentRepository)(nil)

// DocumentRepository keeps one flashcards.json per user.
type DocumentRepository struct {
	root string
}

func NewDocumentRepository(root string) *DocumentRepository {
	return &DocumentRepository{
		root: root,
	}
}

func (r *DocumentRepository) path(username string) (string, error) {
	dir, err := userDir(r.root, username)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dataDir, documentsFile), nil
}

func (r *DocumentRepository) Load(ctx context.Context, username string) (model.Document, error) {
	path, err := r.path(username)
	if err != nil {
		return model.Document{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Document{}, model.ErrNotFound
		}
		return model.Document{}, fmt.Errorf("failed to read document: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, fmt.Errorf("%w: %s: %v", model.ErrCorruptDocument, path, err)
	}
	if err := doc.Validate(); err != nil {
		return model.Document{}, fmt.Errorf("%w: %s: %v", model.ErrCorruptDocument, path, err)
	}

	return doc, nil
}

func (r *DocumentRepository) Save(ctx context.Context, username string, doc model.Document) error {
	path, err := r.path(username)
	if err != nil {
		return err
	}

	if err := doc.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid document: %w", err)
	}

	data, err := marshalIndent(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, username string) error {
	dir, err := userDir(r.root, username)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(filepath.Join(dir, dataDir)); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
