package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// errUnchanged lets an update callback skip the save.
var errUnchanged = errors.New("document unchanged")

// Documents loads and saves per-user flashcard documents. Read-modify-write
// cycles of one user run one at a time.
type Documents struct {
	store    model.DocumentStore
	defaults []string
	logger   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDocuments(store model.DocumentStore, defaults []string, logger *logger.Logger) *Documents {
	return &Documents{
		store:    store,
		defaults: defaults,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (d *Documents) lock(username string) func() {
	d.mu.Lock()
	l, ok := d.locks[username]
	if !ok {
		l = &sync.Mutex{}
		d.locks[username] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// load returns the stored document, creating it with the default domains
// when missing. Caller holds the user lock.
func (d *Documents) load(ctx context.Context, username string) (model.Document, error) {
	doc, err := d.store.Load(ctx, username)
	if err == nil {
		return doc, nil
	}

	if errors.Is(err, model.ErrCorruptDocument) {
		d.logger.Error("Documents service: stored document is corrupted",
			"username", username,
			"error", err.Error())
		return model.Document{}, apperrors.NewErrCorruptDocument()
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Document{}, fmt.Errorf("failed to load document: %w", err)
	}

	doc = model.NewDocument(d.defaults)
	if err := d.store.Save(ctx, username, doc); err != nil {
		return model.Document{}, fmt.Errorf("failed to save default document: %w", err)
	}

	d.logger.Info("Documents service: default document created",
		"username", username,
		"domains", len(doc.Domains))

	return doc, nil
}

// Read returns the document of username.
func (d *Documents) Read(ctx context.Context, username string) (model.Document, error) {
	unlock := d.lock(username)
	defer unlock()

	return d.load(ctx, username)
}

// Init makes sure username has a document.
func (d *Documents) Init(ctx context.Context, username string) error {
	_, err := d.Read(ctx, username)
	return err
}

// Update loads the document, applies fn and saves the result. When fn
// returns errUnchanged nothing is written and no error is reported.
func (d *Documents) Update(ctx context.Context, username string, fn func(doc *model.Document) error) (model.Document, error) {
	unlock := d.lock(username)
	defer unlock()

	doc, err := d.load(ctx, username)
	if err != nil {
		return model.Document{}, err
	}

	if err := fn(&doc); err != nil {
		if errors.Is(err, errUnchanged) {
			return doc, nil
		}
		return model.Document{}, err
	}

	if err := d.store.Save(ctx, username, doc); err != nil {
		d.logger.Error("Documents service: failed to save document",
			"username", username,
			"error", err.Error())
		return model.Document{}, fmt.Errorf("failed to save document: %w", err)
	}

	return doc, nil
}

// Delete removes the document of username.
func (d *Documents) Delete(ctx context.Context, username string) error {
	unlock := d.lock(username)
	defer unlock()

	if err := d.store.Delete(ctx, username); err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
