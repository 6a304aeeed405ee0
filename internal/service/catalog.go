package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/imagepath"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// Catalog sort keys.
const (
	SortByDomain   = "domain"
	SortByTopic    = "topic"
	SortByCount    = "count"
	SortByModified = "modified"
)

// CatalogQuery filters and orders the topic list across domains.
type CatalogQuery struct {
	Domains []string
	SortBy  string
	Desc    bool
	Search  string
}

// CatalogEntry is one topic of the cross-domain list. Modified is the time
// of the newest image in the topic, nil when it has none.
type CatalogEntry struct {
	Domain   string     `json:"domain"`
	Topic    string     `json:"topic"`
	Cards    int        `json:"cards"`
	Modified *time.Time `json:"modified,omitempty"`
}

// Catalog lists topics across all domains.
type Catalog struct {
	documents *Documents
	storage   model.Storage
	logger    *logger.Logger
}

func NewCatalog(documents *Documents, storage model.Storage, logger *logger.Logger) *Catalog {
	return &Catalog{documents: documents, storage: storage, logger: logger}
}

func (c *Catalog) modified(ctx context.Context, username, domain, topic string) (*time.Time, error) {
	objects, err := c.storage.List(ctx, imagepath.TopicPrefix(username, domain, topic))
	if err != nil {
		return nil, fmt.Errorf("failed to list topic images: %w", err)
	}
	var newest time.Time
	for _, obj := range objects {
		if obj.LastModified.After(newest) {
			newest = obj.LastModified
		}
	}
	if newest.IsZero() {
		return nil, nil
	}
	return &newest, nil
}

func modifiedUnix(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

// Topics returns the topics of the selected domains, sorted and searched.
func (c *Catalog) Topics(ctx context.Context, username string, query CatalogQuery) ([]CatalogEntry, error) {
	if query.SortBy == "" {
		query.SortBy = SortByDomain
	}
	switch query.SortBy {
	case SortByDomain, SortByTopic, SortByCount, SortByModified:
	default:
		return nil, apperrors.NewErrBadRequest(fmt.Sprintf("unknown sort key %q", query.SortBy))
	}

	doc, err := c.documents.Read(ctx, username)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(query.Search)
	entries := []CatalogEntry{}
	for _, domain := range doc.Domains {
		if len(query.Domains) > 0 && !slices.Contains(query.Domains, domain.Name) {
			continue
		}
		for _, topic := range domain.Topics {
			if search != "" &&
				!strings.Contains(strings.ToLower(domain.Name), search) &&
				!strings.Contains(strings.ToLower(topic.Name), search) {
				continue
			}
			modified, err := c.modified(ctx, username, domain.Name, topic.Name)
			if err != nil {
				return nil, err
			}
			entries = append(entries, CatalogEntry{
				Domain:   domain.Name,
				Topic:    topic.Name,
				Cards:    len(topic.Terms),
				Modified: modified,
			})
		}
	}

	slices.SortStableFunc(entries, func(a, b CatalogEntry) int {
		var c int
		switch query.SortBy {
		case SortByTopic:
			c = cmp.Compare(a.Topic, b.Topic)
		case SortByCount:
			c = cmp.Compare(a.Cards, b.Cards)
		case SortByModified:
			c = cmp.Compare(modifiedUnix(a.Modified), modifiedUnix(b.Modified))
		default:
			c = cmp.Compare(a.Domain, b.Domain)
		}
		// ties keep document order in both directions
		if query.Desc {
			return -c
		}
		return c
	})

	return entries, nil
}
