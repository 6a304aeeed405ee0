package model

import (
	"context"
	"fmt"
	"slices"
)

// DocumentStore persists one flashcard document per user.
type DocumentStore interface {
	Load(ctx context.Context, username string) (Document, error)
	Save(ctx context.Context, username string, doc Document) error
	Delete(ctx context.Context, username string) error
}

// Card is a single flashcard keyed by its term.
type Card struct {
	Subject string   `json:"subject"`
	Keyword string   `json:"keyword"`
	Rhyming string   `json:"rhyming"`
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

// Term binds a term name to its card.
type Term struct {
	Name string
	Card Card
}

// Topic groups related terms within a domain.
type Topic struct {
	Name  string
	Terms []Term
}

// Domain is a top-level subject category.
type Domain struct {
	Name   string
	Topics []Topic
}

// Document is the whole flashcard collection of one user.
// Domains, topics and terms keep their insertion order.
type Document struct {
	Domains []Domain
}

// CardRef identifies a card by its primary key.
type CardRef struct {
	Domain string `json:"domain"`
	Topic  string `json:"topic"`
	Term   string `json:"term"`
}

func (r CardRef) String() string {
	return fmt.Sprintf("%s/%s/%s", r.Domain, r.Topic, r.Term)
}

// NewDocument creates a document holding the given empty domains.
func NewDocument(domains []string) Document {
	doc := Document{Domains: make([]Domain, 0, len(domains))}
	for _, name := range domains {
		if name == "" || doc.Domain(name) != nil {
			continue
		}
		doc.Domains = append(doc.Domains, Domain{Name: name})
	}
	return doc
}

// Validate checks the invariants expected at the store boundary.
func (d *Document) Validate() error {
	seenDomains := make(map[string]struct{}, len(d.Domains))
	for _, domain := range d.Domains {
		if domain.Name == "" {
			return fmt.Errorf("domain name is empty")
		}
		if _, ok := seenDomains[domain.Name]; ok {
			return fmt.Errorf("duplicate domain %q", domain.Name)
		}
		seenDomains[domain.Name] = struct{}{}

		seenTopics := make(map[string]struct{}, len(domain.Topics))
		for _, topic := range domain.Topics {
			if topic.Name == "" {
				return fmt.Errorf("topic name is empty in domain %q", domain.Name)
			}
			if _, ok := seenTopics[topic.Name]; ok {
				return fmt.Errorf("duplicate topic %q in domain %q", topic.Name, domain.Name)
			}
			seenTopics[topic.Name] = struct{}{}

			seenTerms := make(map[string]struct{}, len(topic.Terms))
			for _, term := range topic.Terms {
				if term.Name == "" {
					return fmt.Errorf("term name is empty in %s/%s", domain.Name, topic.Name)
				}
				if _, ok := seenTerms[term.Name]; ok {
					return fmt.Errorf("duplicate term %q in %s/%s", term.Name, domain.Name, topic.Name)
				}
				seenTerms[term.Name] = struct{}{}
			}
		}
	}
	return nil
}

// DomainNames returns domain names in document order.
func (d *Document) DomainNames() []string {
	names := make([]string, len(d.Domains))
	for i := range d.Domains {
		names[i] = d.Domains[i].Name
	}
	return names
}

// Domain returns the named domain or nil.
func (d *Document) Domain(name string) *Domain {
	for i := range d.Domains {
		if d.Domains[i].Name == name {
			return &d.Domains[i]
		}
	}
	return nil
}

// AddDomain appends an empty domain.
func (d *Document) AddDomain(name string) error {
	if d.Domain(name) != nil {
		return ErrAlreadyExists
	}
	d.Domains = append(d.Domains, Domain{Name: name})
	return nil
}

// RenameDomain renames a domain in place, keeping its position.
func (d *Document) RenameDomain(oldName, newName string) error {
	domain := d.Domain(oldName)
	if domain == nil {
		return ErrNotFound
	}
	if d.Domain(newName) != nil {
		return ErrAlreadyExists
	}
	domain.Name = newName
	return nil
}

// RemoveDomain deletes a domain and returns it.
func (d *Document) RemoveDomain(name string) (Domain, error) {
	idx := slices.IndexFunc(d.Domains, func(dm Domain) bool { return dm.Name == name })
	if idx < 0 {
		return Domain{}, ErrNotFound
	}
	removed := d.Domains[idx]
	d.Domains = slices.Delete(d.Domains, idx, idx+1)
	return removed, nil
}

// RemoveTopic deletes a topic from a domain and returns it. The domain stays,
// even when it becomes empty.
func (d *Document) RemoveTopic(domainName, topicName string) (Topic, error) {
	domain := d.Domain(domainName)
	if domain == nil {
		return Topic{}, ErrNotFound
	}
	idx := slices.IndexFunc(domain.Topics, func(t Topic) bool { return t.Name == topicName })
	if idx < 0 {
		return Topic{}, ErrNotFound
	}
	removed := domain.Topics[idx]
	domain.Topics = slices.Delete(domain.Topics, idx, idx+1)
	return removed, nil
}

// Topic returns the named topic or nil.
func (dm *Domain) Topic(name string) *Topic {
	for i := range dm.Topics {
		if dm.Topics[i].Name == name {
			return &dm.Topics[i]
		}
	}
	return nil
}

// TopicNames returns topic names in domain order.
func (dm *Domain) TopicNames() []string {
	names := make([]string, len(dm.Topics))
	for i := range dm.Topics {
		names[i] = dm.Topics[i].Name
	}
	return names
}

// CardCount returns the number of cards in the domain.
func (dm *Domain) CardCount() int {
	n := 0
	for i := range dm.Topics {
		n += len(dm.Topics[i].Terms)
	}
	return n
}

// Term returns the named term or nil.
func (t *Topic) Term(name string) *Term {
	for i := range t.Terms {
		if t.Terms[i].Name == name {
			return &t.Terms[i]
		}
	}
	return nil
}

// Card returns a pointer to the referenced card.
func (d *Document) Card(ref CardRef) (*Card, error) {
	domain := d.Domain(ref.Domain)
	if domain == nil {
		return nil, ErrNotFound
	}
	topic := domain.Topic(ref.Topic)
	if topic == nil {
		return nil, ErrNotFound
	}
	term := topic.Term(ref.Term)
	if term == nil {
		return nil, ErrNotFound
	}
	return &term.Card, nil
}

// InsertCard adds a card, creating its topic when needed. The document is
// left untouched when the domain is missing or the term already exists.
func (d *Document) InsertCard(ref CardRef, card Card) error {
	domain := d.Domain(ref.Domain)
	if domain == nil {
		return ErrNotFound
	}
	topic := domain.Topic(ref.Topic)
	if topic != nil && topic.Term(ref.Term) != nil {
		return ErrAlreadyExists
	}
	if topic == nil {
		domain.Topics = append(domain.Topics, Topic{Name: ref.Topic})
		topic = &domain.Topics[len(domain.Topics)-1]
	}
	topic.Terms = append(topic.Terms, Term{Name: ref.Term, Card: card})
	return nil
}

// RemoveCard deletes a card and returns it. A topic left without terms is
// removed as well.
func (d *Document) RemoveCard(ref CardRef) (Card, error) {
	domain := d.Domain(ref.Domain)
	if domain == nil {
		return Card{}, ErrNotFound
	}
	topicIdx := slices.IndexFunc(domain.Topics, func(t Topic) bool { return t.Name == ref.Topic })
	if topicIdx < 0 {
		return Card{}, ErrNotFound
	}
	topic := &domain.Topics[topicIdx]
	termIdx := slices.IndexFunc(topic.Terms, func(t Term) bool { return t.Name == ref.Term })
	if termIdx < 0 {
		return Card{}, ErrNotFound
	}
	removed := topic.Terms[termIdx].Card
	topic.Terms = slices.Delete(topic.Terms, termIdx, termIdx+1)
	if len(topic.Terms) == 0 {
		domain.Topics = slices.Delete(domain.Topics, topicIdx, topicIdx+1)
	}
	return removed, nil
}

// Walk visits every card in document order.
func (d *Document) Walk(fn func(ref CardRef, card *Card)) {
	for i := range d.Domains {
		domain := &d.Domains[i]
		for j := range domain.Topics {
			topic := &domain.Topics[j]
			for k := range topic.Terms {
				fn(CardRef{Domain: domain.Name, Topic: topic.Name, Term: topic.Terms[k].Name}, &topic.Terms[k].Card)
			}
		}
	}
}

// ImageRefCount counts how many cards reference each image key.
func (d *Document) ImageRefCount() map[string]int {
	refs := make(map[string]int)
	d.Walk(func(_ CardRef, card *Card) {
		for _, key := range card.Images {
			refs[key]++
		}
	})
	return refs
}

// Images returns every image key referenced by the cards of a domain.
func (dm *Domain) Images() []string {
	var keys []string
	for i := range dm.Topics {
		keys = append(keys, dm.Topics[i].Images()...)
	}
	return keys
}

// Images returns every image key referenced by the cards of a topic.
func (t *Topic) Images() []string {
	var keys []string
	for i := range t.Terms {
		keys = append(keys, t.Terms[i].Card.Images...)
	}
	return keys
}
