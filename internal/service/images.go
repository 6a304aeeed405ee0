package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/imagepath"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// Upload is one uploaded image file.
type Upload struct {
	Filename string
	Body     io.Reader
}

// ImageInfo describes an image of a card by its position.
type ImageInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Images manages the ordered images of cards.
type Images struct {
	documents *Documents
	blobs     *blobs
	logger    *logger.Logger
}

func NewImages(documents *Documents, storage model.Storage, logger *logger.Logger) *Images {
	return &Images{
		documents: documents,
		blobs:     newBlobs(storage, logger),
		logger:    logger,
	}
}

func imageInfos(keys []string) []ImageInfo {
	infos := make([]ImageInfo, len(keys))
	for i, key := range keys {
		infos[i] = ImageInfo{Index: i, Name: path.Base(key)}
	}
	return infos
}

// List returns the images of a card in order.
func (s *Images) List(ctx context.Context, username string, ref model.CardRef) ([]ImageInfo, error) {
	doc, err := s.documents.Read(ctx, username)
	if err != nil {
		return nil, err
	}
	card, err := requireCard(&doc, ref)
	if err != nil {
		return nil, err
	}
	return imageInfos(card.Images), nil
}

// Add stores uploads after the existing images of a card. Nothing is stored
// when any upload has an unsupported type.
func (s *Images) Add(ctx context.Context, username string, ref model.CardRef, uploads []Upload) ([]ImageInfo, error) {
	if len(uploads) == 0 {
		return nil, apperrors.NewErrRequiredField("images")
	}

	exts := make([]string, len(uploads))
	for i, upload := range uploads {
		ext, err := imagepath.Extension(upload.Filename)
		if errors.Is(err, imagepath.ErrUnsupportedType) {
			return nil, apperrors.NewErrInvalidImageType(path.Ext(upload.Filename))
		}
		if err != nil {
			return nil, err
		}
		exts[i] = ext
	}

	var stored []string
	doc, err := s.documents.Update(ctx, username, func(doc *model.Document) error {
		card, err := requireCard(doc, ref)
		if err != nil {
			return err
		}

		taken := doc.ImageRefCount()
		images := slices.Clone(card.Images)
		if images == nil {
			images = []string{}
		}
		for i, upload := range uploads {
			key, err := s.blobs.freeKey(ctx, username, ref, len(images)+1, exts[i], taken)
			if err != nil {
				return err
			}
			if err := s.blobs.storage.Upload(ctx, key, upload.Body); err != nil {
				return fmt.Errorf("failed to store image: %w", err)
			}
			stored = append(stored, key)
			taken[key]++
			images = append(images, key)
		}
		card.Images = images
		return nil
	})
	if err != nil {
		s.blobs.remove(ctx, stored)
		return nil, err
	}

	s.logger.Info("Images service: images added",
		"username", username,
		"card", ref.String(),
		"count", len(stored))

	card, _ := doc.Card(ref)
	return imageInfos(card.Images), nil
}

// Open returns the content of the image at index and its file name.
func (s *Images) Open(ctx context.Context, username string, ref model.CardRef, index int) (io.ReadCloser, string, error) {
	doc, err := s.documents.Read(ctx, username)
	if err != nil {
		return nil, "", err
	}
	card, err := requireCard(&doc, ref)
	if err != nil {
		return nil, "", err
	}
	if index < 0 || index >= len(card.Images) {
		return nil, "", apperrors.NewErrImageNotFound(index)
	}

	key := card.Images[index]
	rc, err := s.blobs.storage.Download(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("Images service: referenced image is missing",
			"username", username,
			"key", key)
		return nil, "", apperrors.NewErrImageNotFound(index)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	return rc, path.Base(key), nil
}

// isPermutation reports whether order holds each of 0..n-1 exactly once.
func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}

// Reorder rearranges the images of a card. order[i] is the current index of
// the image that moves to position i.
func (s *Images) Reorder(ctx context.Context, username string, ref model.CardRef, order []int) error {
	_, err := s.documents.Update(ctx, username, func(doc *model.Document) error {
		card, err := requireCard(doc, ref)
		if err != nil {
			return err
		}
		if !isPermutation(order, len(card.Images)) {
			return apperrors.NewErrInvalidImageOrder()
		}

		images := make([]string, len(order))
		for i, from := range order {
			images[i] = card.Images[from]
		}
		card.Images = images
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Images service: images reordered",
		"username", username,
		"card", ref.String())

	return nil
}

// Delete removes the image at index.
func (s *Images) Delete(ctx context.Context, username string, ref model.CardRef, index int) error {
	var removed string
	doc, err := s.documents.Update(ctx, username, func(doc *model.Document) error {
		card, err := requireCard(doc, ref)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(card.Images) {
			return apperrors.NewErrImageNotFound(index)
		}
		removed = card.Images[index]
		card.Images = slices.Delete(slices.Clone(card.Images), index, index+1)
		return nil
	})
	if err != nil {
		return err
	}

	s.blobs.release(ctx, &doc, []string{removed})

	s.logger.Info("Images service: image deleted",
		"username", username,
		"card", ref.String(),
		"index", index)

	return nil
}

// DeleteAll removes every image of a card and returns how many there were.
func (s *Images) DeleteAll(ctx context.Context, username string, ref model.CardRef) (int, error) {
	var removed []string
	doc, err := s.documents.Update(ctx, username, func(doc *model.Document) error {
		card, err := requireCard(doc, ref)
		if err != nil {
			return err
		}
		if len(card.Images) == 0 {
			return errUnchanged
		}
		removed = card.Images
		card.Images = []string{}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.blobs.release(ctx, &doc, removed)

	if len(removed) > 0 {
		s.logger.Info("Images service: all images deleted",
			"username", username,
			"card", ref.String(),
			"count", len(removed))
	}

	return len(removed), nil
}

// AdoptLegacy gives every card without an image list the images stored in
// its topic folder, in their recovered order. It returns the number of
// cards updated.
func (s *Images) AdoptLegacy(ctx context.Context, username string) (int, error) {
	adopted := 0
	_, err := s.documents.Update(ctx, username, func(doc *model.Document) error {
		adopted = 0
		for i := range doc.Domains {
			domain := &doc.Domains[i]
			for j := range domain.Topics {
				topic := &domain.Topics[j]
				if !slices.ContainsFunc(topic.Terms, func(t model.Term) bool { return t.Card.Images == nil }) {
					continue
				}

				keys, err := s.legacyKeys(ctx, username, domain.Name, topic.Name)
				if err != nil {
					return err
				}
				for k := range topic.Terms {
					if topic.Terms[k].Card.Images == nil {
						topic.Terms[k].Card.Images = slices.Clone(keys)
						adopted++
					}
				}
			}
		}
		if adopted == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return adopted, nil
}

func (s *Images) legacyKeys(ctx context.Context, username, domain, topic string) ([]string, error) {
	objects, err := s.blobs.storage.List(ctx, imagepath.TopicPrefix(username, domain, topic))
	if err != nil {
		return nil, fmt.Errorf("failed to list topic images: %w", err)
	}

	var found []model.ObjectInfo
	for _, obj := range objects {
		if imagepath.InTopic(obj.Key, username, domain, topic) && imagepath.IsImage(obj.Key) {
			found = append(found, obj)
		}
	}

	keys := make([]string, 0, len(found))
	for _, obj := range imagepath.SortLegacy(found) {
		keys = append(keys, obj.Key)
	}
	return keys, nil
}
