package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/flashcards-server/internal/imagepath"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// blobs wraps image storage with the key bookkeeping shared by the card
// services.
type blobs struct {
	storage model.Storage
	now     func() time.Time
	logger  *logger.Logger
}

func newBlobs(storage model.Storage, logger *logger.Logger) *blobs {
	return &blobs{storage: storage, now: time.Now, logger: logger}
}

// freeKey returns the first unused key for a new image of the topic,
// starting at sequence seq.
func (b *blobs) freeKey(ctx context.Context, username string, ref model.CardRef, seq int, ext string, taken map[string]int) (string, error) {
	at := b.now()
	for ; ; seq++ {
		key := imagepath.Key(username, ref.Domain, ref.Topic, at, seq, ext)
		if taken[key] > 0 {
			continue
		}
		exists, err := b.storage.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to check image key: %w", err)
		}
		if !exists {
			return key, nil
		}
	}
}

func (b *blobs) copy(ctx context.Context, src, dst string) error {
	rc, err := b.storage.Download(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", src, err)
	}
	defer rc.Close()

	if err := b.storage.Upload(ctx, dst, rc); err != nil {
		return fmt.Errorf("failed to upload %s: %w", dst, err)
	}
	return nil
}

// remove deletes keys, logging failures. The document is already saved at
// this point, so a leftover blob is only wasted space.
func (b *blobs) remove(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := b.storage.Delete(ctx, key); err != nil && !errors.Is(err, model.ErrNotFound) {
			b.logger.Warn("Image storage: failed to delete image",
				"key", key,
				"error", err.Error())
		}
	}
}

// release deletes the keys no card of doc references any more.
func (b *blobs) release(ctx context.Context, doc *model.Document, keys []string) {
	refs := doc.ImageRefCount()
	seen := make(map[string]struct{}, len(keys))
	var orphans []string
	for _, key := range keys {
		if _, ok := seen[key]; ok || refs[key] > 0 {
			continue
		}
		seen[key] = struct{}{}
		orphans = append(orphans, key)
	}
	b.remove(ctx, orphans)
}

// removePrefix deletes every object under prefix that no card of doc
// references.
func (b *blobs) removePrefix(ctx context.Context, doc *model.Document, prefix string) {
	objects, err := b.storage.List(ctx, prefix)
	if err != nil {
		b.logger.Warn("Image storage: failed to list images",
			"prefix", prefix,
			"error", err.Error())
		return
	}
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	b.release(ctx, doc, keys)
}

// relocation copies blobs to new keys. Commit drops the sources once the
// document pointing at the copies is saved; Rollback drops the copies.
type relocation struct {
	blobs  *blobs
	moved  map[string]string
	copies []string
}

func (b *blobs) newRelocation() *relocation {
	return &relocation{blobs: b, moved: make(map[string]string)}
}

func (r *relocation) move(ctx context.Context, src, dst string) error {
	if src == dst {
		return nil
	}
	if err := r.blobs.copy(ctx, src, dst); err != nil {
		return err
	}
	r.moved[src] = dst
	r.copies = append(r.copies, dst)
	return nil
}

// target returns the new key of src, or src when it was not moved.
func (r *relocation) target(src string) string {
	if dst, ok := r.moved[src]; ok {
		return dst
	}
	return src
}

func (r *relocation) Commit(ctx context.Context, doc *model.Document) {
	sources := make([]string, 0, len(r.moved))
	for src := range r.moved {
		sources = append(sources, src)
	}
	r.blobs.release(ctx, doc, sources)
}

func (r *relocation) Rollback(ctx context.Context) {
	r.blobs.remove(ctx, r.copies)
}
