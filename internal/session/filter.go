package session

import (
	"slices"

	"github.com/dtroode/flashcards-server/internal/model"
)

// TopicRef names a topic within a domain.
type TopicRef struct {
	Domain string `json:"domain"`
	Topic  string `json:"topic"`
}

// Filter selects the cards a session works on.
//
// With Domain set, the session covers that domain, limited to Topics when
// given. Otherwise it covers Domains (all when empty), limited to the
// DomainTopics pairs when given.
type Filter struct {
	Domain       string     `json:"domain,omitempty"`
	Topics       []string   `json:"topics,omitempty"`
	Domains      []string   `json:"domains,omitempty"`
	DomainTopics []TopicRef `json:"domain_topics,omitempty"`
}

// AllDomains reports whether the filter spans several domains.
func (f Filter) AllDomains() bool {
	return f.Domain == ""
}

// Select returns the matching cards in document order. A single-domain
// filter naming a missing domain yields model.ErrNotFound.
func (f Filter) Select(doc *model.Document) ([]Entry, error) {
	var entries []Entry

	if !f.AllDomains() {
		domain := doc.Domain(f.Domain)
		if domain == nil {
			return nil, model.ErrNotFound
		}
		for _, topic := range domain.Topics {
			if len(f.Topics) > 0 && !slices.Contains(f.Topics, topic.Name) {
				continue
			}
			entries = appendTopic(entries, domain.Name, topic)
		}
		return entries, nil
	}

	for _, domain := range doc.Domains {
		if len(f.Domains) > 0 && !slices.Contains(f.Domains, domain.Name) {
			continue
		}
		for _, topic := range domain.Topics {
			if len(f.DomainTopics) > 0 && !slices.Contains(f.DomainTopics, TopicRef{Domain: domain.Name, Topic: topic.Name}) {
				continue
			}
			entries = appendTopic(entries, domain.Name, topic)
		}
	}
	return entries, nil
}

func appendTopic(entries []Entry, domain string, topic model.Topic) []Entry {
	for _, term := range topic.Terms {
		entries = append(entries, Entry{
			Ref:  model.CardRef{Domain: domain, Topic: topic.Name, Term: term.Name},
			Card: term.Card,
		})
	}
	return entries
}
