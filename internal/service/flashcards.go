package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/imagepath"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// DomainSummary is a domain with its sizes.
type DomainSummary struct {
	Name   string `json:"name"`
	Topics int    `json:"topics"`
	Cards  int    `json:"cards"`
}

// CardItem is a card together with its term.
type CardItem struct {
	Term string `json:"term"`
	model.Card
}

// TopicCards is a topic with its cards in order.
type TopicCards struct {
	Name  string     `json:"name"`
	Cards []CardItem `json:"cards"`
}

// CardInput holds the editable fields of a new card.
type CardInput struct {
	Keyword string
	Rhyming string
	Content string
}

// CardUpdate changes a card in place, or moves it when Topic or Term differ
// from the current ones. Empty Topic and Term keep the current values.
type CardUpdate struct {
	Topic   string
	Term    string
	Keyword string
	Rhyming string
	Content string
}

// Flashcards manages the domains, topics and cards of a user.
type Flashcards struct {
	documents *Documents
	blobs     *blobs
	logger    *logger.Logger
}

func NewFlashcards(documents *Documents, storage model.Storage, logger *logger.Logger) *Flashcards {
	return &Flashcards{
		documents: documents,
		blobs:     newBlobs(storage, logger),
		logger:    logger,
	}
}

func requireDomain(doc *model.Document, name string) (*model.Domain, error) {
	domain := doc.Domain(name)
	if domain == nil {
		return nil, apperrors.NewErrDomainNotFound(name)
	}
	return domain, nil
}

func requireCard(doc *model.Document, ref model.CardRef) (*model.Card, error) {
	domain, err := requireDomain(doc, ref.Domain)
	if err != nil {
		return nil, err
	}
	if domain.Topic(ref.Topic) == nil {
		return nil, apperrors.NewErrTopicNotFound(ref.Domain, ref.Topic)
	}
	card, err := doc.Card(ref)
	if err != nil {
		return nil, apperrors.NewErrCardNotFound(ref.Domain, ref.Topic, ref.Term)
	}
	return card, nil
}

// folderOwner returns a domain of doc other than name and except whose
// images live in the same folder as those of name.
func folderOwner(doc *model.Document, username, name, except string) string {
	prefix := imagepath.DomainPrefix(username, name)
	for i := range doc.Domains {
		other := doc.Domains[i].Name
		if other != name && other != except && imagepath.DomainPrefix(username, other) == prefix {
			return other
		}
	}
	return ""
}

// prefixInUse reports whether a domain or topic left in doc keeps its
// images under prefix.
func prefixInUse(doc *model.Document, username, prefix string) bool {
	for i := range doc.Domains {
		domain := &doc.Domains[i]
		if imagepath.DomainPrefix(username, domain.Name) == prefix {
			return true
		}
		for j := range domain.Topics {
			if imagepath.TopicPrefix(username, domain.Name, domain.Topics[j].Name) == prefix {
				return true
			}
		}
	}
	return false
}

// domainKeys returns the image keys to carry along when domain is renamed.
// A folder shared with another domain is never listed wholesale; only the
// keys the domain's own cards reference are returned then.
func (f *Flashcards) domainKeys(ctx context.Context, doc *model.Document, username string, domain *model.Domain) ([]string, error) {
	if folderOwner(doc, username, domain.Name, "") != "" {
		seen := make(map[string]struct{})
		var keys []string
		for _, key := range domain.Images() {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
		return keys, nil
	}

	objects, err := f.blobs.storage.List(ctx, imagepath.DomainPrefix(username, domain.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to list domain images: %w", err)
	}
	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}
	return keys, nil
}

// Domains lists the domains in document order.
func (f *Flashcards) Domains(ctx context.Context, username string) ([]DomainSummary, error) {
	doc, err := f.documents.Read(ctx, username)
	if err != nil {
		return nil, err
	}

	summaries := make([]DomainSummary, len(doc.Domains))
	for i := range doc.Domains {
		summaries[i] = DomainSummary{
			Name:   doc.Domains[i].Name,
			Topics: len(doc.Domains[i].Topics),
			Cards:  doc.Domains[i].CardCount(),
		}
	}
	return summaries, nil
}

// AddDomain appends an empty domain.
func (f *Flashcards) AddDomain(ctx context.Context, username, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewErrRequiredField("name")
	}

	_, err := f.documents.Update(ctx, username, func(doc *model.Document) error {
		if doc.Domain(name) == nil {
			if other := folderOwner(doc, username, name, ""); other != "" {
				return apperrors.NewErrDomainFolderTaken(name, other)
			}
		}
		if err := doc.AddDomain(name); errors.Is(err, model.ErrAlreadyExists) {
			return apperrors.NewErrDomainExists(name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	f.logger.Info("Flashcards service: domain added",
		"username", username,
		"domain", name)

	return nil
}

// RenameDomain renames a domain and moves its images to the new folder.
func (f *Flashcards) RenameDomain(ctx context.Context, username, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return apperrors.NewErrRequiredField("new_name")
	}
	if newName == oldName {
		return apperrors.NewErrSameName()
	}

	var reloc *relocation
	doc, err := f.documents.Update(ctx, username, func(doc *model.Document) error {
		domain, err := requireDomain(doc, oldName)
		if err != nil {
			return err
		}
		if doc.Domain(newName) != nil {
			return apperrors.NewErrDomainExists(newName)
		}
		if other := folderOwner(doc, username, newName, oldName); other != "" {
			return apperrors.NewErrDomainFolderTaken(newName, other)
		}

		keys, err := f.domainKeys(ctx, doc, username, domain)
		if err != nil {
			return err
		}

		reloc = f.blobs.newRelocation()
		for _, key := range keys {
			dst, ok := imagepath.Relocate(key, username, oldName, newName)
			if !ok || dst == key {
				continue
			}
			exists, err := f.blobs.storage.Exists(ctx, dst)
			if err != nil {
				return fmt.Errorf("failed to check image key: %w", err)
			}
			if exists {
				f.logger.Warn("Flashcards service: image key taken, keeping old location",
					"username", username,
					"key", key)
				continue
			}
			if err := reloc.move(ctx, key, dst); err != nil {
				return err
			}
		}

		for i := range domain.Topics {
			for j := range domain.Topics[i].Terms {
				images := domain.Topics[i].Terms[j].Card.Images
				for k := range images {
					images[k] = reloc.target(images[k])
				}
			}
		}

		return doc.RenameDomain(oldName, newName)
	})
	if err != nil {
		if reloc != nil {
			reloc.Rollback(ctx)
		}
		return err
	}
	reloc.Commit(ctx, &doc)

	f.logger.Info("Flashcards service: domain renamed",
		"username", username,
		"from", oldName,
		"to", newName,
		"images", len(reloc.moved))

	return nil
}

// DeleteDomain removes a domain with all of its cards and images.
func (f *Flashcards) DeleteDomain(ctx context.Context, username, name string) error {
	var removed model.Domain
	doc, err := f.documents.Update(ctx, username, func(doc *model.Document) error {
		var err error
		removed, err = doc.RemoveDomain(name)
		if errors.Is(err, model.ErrNotFound) {
			return apperrors.NewErrDomainNotFound(name)
		}
		return err
	})
	if err != nil {
		return err
	}

	f.blobs.release(ctx, &doc, removed.Images())
	if prefix := imagepath.DomainPrefix(username, name); !prefixInUse(&doc, username, prefix) {
		f.blobs.removePrefix(ctx, &doc, prefix)
	}

	f.logger.Info("Flashcards service: domain deleted",
		"username", username,
		"domain", name,
		"cards", removed.CardCount())

	return nil
}

// Topics returns the cards of a domain grouped by topic.
func (f *Flashcards) Topics(ctx context.Context, username, domainName string) ([]TopicCards, error) {
	doc, err := f.documents.Read(ctx, username)
	if err != nil {
		return nil, err
	}
	domain, err := requireDomain(&doc, domainName)
	if err != nil {
		return nil, err
	}

	topics := make([]TopicCards, len(domain.Topics))
	for i, topic := range domain.Topics {
		cards := make([]CardItem, len(topic.Terms))
		for j, term := range topic.Terms {
			cards[j] = CardItem{Term: term.Name, Card: term.Card}
		}
		topics[i] = TopicCards{Name: topic.Name, Cards: cards}
	}
	return topics, nil
}

// DeleteTopic removes a topic with its cards and images. The domain stays.
func (f *Flashcards) DeleteTopic(ctx context.Context, username, domainName, topicName string) error {
	var removed model.Topic
	doc, err := f.documents.Update(ctx, username, func(doc *model.Document) error {
		if _, err := requireDomain(doc, domainName); err != nil {
			return err
		}
		var err error
		removed, err = doc.RemoveTopic(domainName, topicName)
		if errors.Is(err, model.ErrNotFound) {
			return apperrors.NewErrTopicNotFound(domainName, topicName)
		}
		return err
	})
	if err != nil {
		return err
	}

	f.blobs.release(ctx, &doc, removed.Images())
	if prefix := imagepath.TopicPrefix(username, domainName, topicName); !prefixInUse(&doc, username, prefix) {
		f.blobs.removePrefix(ctx, &doc, prefix)
	}

	f.logger.Info("Flashcards service: topic deleted",
		"username", username,
		"domain", domainName,
		"topic", topicName,
		"cards", len(removed.Terms))

	return nil
}

// Card returns one card.
func (f *Flashcards) Card(ctx context.Context, username string, ref model.CardRef) (model.Card, error) {
	doc, err := f.documents.Read(ctx, username)
	if err != nil {
		return model.Card{}, err
	}
	card, err := requireCard(&doc, ref)
	if err != nil {
		return model.Card{}, err
	}
	return *card, nil
}

// AddCard creates a card whose subject is its term.
func (f *Flashcards) AddCard(ctx context.Context, username string, ref model.CardRef, input CardInput) (model.Card, error) {
	ref.Topic = strings.TrimSpace(ref.Topic)
	ref.Term = strings.TrimSpace(ref.Term)
	switch {
	case ref.Topic == "":
		return model.Card{}, apperrors.NewErrRequiredField("topic")
	case ref.Term == "":
		return model.Card{}, apperrors.NewErrRequiredField("term")
	case strings.TrimSpace(input.Content) == "":
		return model.Card{}, apperrors.NewErrRequiredField("content")
	}

	card := model.Card{
		Subject: ref.Term,
		Keyword: input.Keyword,
		Rhyming: input.Rhyming,
		Content: input.Content,
		Images:  []string{},
	}

	_, err := f.documents.Update(ctx, username, func(doc *model.Document) error {
		if _, err := requireDomain(doc, ref.Domain); err != nil {
			return err
		}
		if err := doc.InsertCard(ref, card); errors.Is(err, model.ErrAlreadyExists) {
			return apperrors.NewErrCardExists(ref.Topic, ref.Term)
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return model.Card{}, err
	}

	f.logger.Info("Flashcards service: card added",
		"username", username,
		"card", ref.String())

	return card, nil
}

// UpdateCard edits a card and returns its reference after the change.
// Moving a card to another topic gives its images fresh keys there.
func (f *Flashcards) UpdateCard(ctx context.Context, username string, ref model.CardRef, update CardUpdate) (model.CardRef, error) {
	target := model.CardRef{
		Domain: ref.Domain,
		Topic:  strings.TrimSpace(update.Topic),
		Term:   strings.TrimSpace(update.Term),
	}
	if target.Topic == "" {
		target.Topic = ref.Topic
	}
	if target.Term == "" {
		target.Term = ref.Term
	}

	var reloc *relocation
	doc, err := f.documents.Update(ctx, username, func(doc *model.Document) error {
		card, err := requireCard(doc, ref)
		if err != nil {
			return err
		}

		if target == ref {
			card.Keyword = update.Keyword
			card.Rhyming = update.Rhyming
			card.Content = update.Content
			return nil
		}

		if _, err := doc.Card(target); err == nil {
			return apperrors.NewErrCardExists(target.Topic, target.Term)
		}

		moved := model.Card{
			Subject: target.Term,
			Keyword: update.Keyword,
			Rhyming: update.Rhyming,
			Content: update.Content,
			Images:  card.Images,
		}

		if target.Topic != ref.Topic && len(card.Images) > 0 {
			reloc = f.blobs.newRelocation()
			taken := doc.ImageRefCount()
			moved.Images = make([]string, len(card.Images))
			for i, src := range card.Images {
				ext, err := imagepath.Extension(path.Base(src))
				if err != nil {
					ext = imagepath.DefaultExtension
				}
				dst, err := f.blobs.freeKey(ctx, username, target, i+1, ext, taken)
				if err != nil {
					return err
				}
				if err := reloc.move(ctx, src, dst); err != nil {
					return err
				}
				taken[dst]++
				moved.Images[i] = dst
			}
		}

		if err := doc.InsertCard(target, moved); err != nil {
			return fmt.Errorf("failed to insert moved card: %w", err)
		}
		if _, err := doc.RemoveCard(ref); err != nil {
			return fmt.Errorf("failed to remove moved card: %w", err)
		}
		return nil
	})
	if err != nil {
		if reloc != nil {
			reloc.Rollback(ctx)
		}
		return model.CardRef{}, err
	}
	if reloc != nil {
		reloc.Commit(ctx, &doc)
	}

	f.logger.Info("Flashcards service: card updated",
		"username", username,
		"from", ref.String(),
		"to", target.String())

	return target, nil
}

// DeleteCard removes a card and the images no other card uses.
func (f *Flashcards) DeleteCard(ctx context.Context, username string, ref model.CardRef) error {
	var removed model.Card
	doc, err := f.documents.Update(ctx, username, func(doc *model.Document) error {
		if _, err := requireCard(doc, ref); err != nil {
			return err
		}
		var err error
		removed, err = doc.RemoveCard(ref)
		return err
	})
	if err != nil {
		return err
	}

	f.blobs.release(ctx, &doc, removed.Images)

	f.logger.Info("Flashcards service: card deleted",
		"username", username,
		"card", ref.String())

	return nil
}
