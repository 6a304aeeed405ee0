package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	doc := NewDocument([]string{"SW공학", "DB"})
	_ = doc.InsertCard(CardRef{Domain: "SW공학", Topic: "Testing", Term: "TDD"}, Card{Subject: "SW공학", Keyword: "test first", Rhyming: "red green", Content: "write tests first"})
	_ = doc.InsertCard(CardRef{Domain: "SW공학", Topic: "Testing", Term: "BDD"}, Card{Subject: "SW공학", Keyword: "behaviour"})
	_ = doc.InsertCard(CardRef{Domain: "DB", Topic: "Normalization", Term: "3NF"}, Card{Subject: "DB", Content: "no transitive deps", Images: []string{"a.png", "b.png"}})
	return doc
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument([]string{"A", "", "B", "A"})
	assert.Equal(t, []string{"A", "B"}, doc.DomainNames())
}

func TestDocument_InsertCard(t *testing.T) {
	tests := []struct {
		name    string
		ref     CardRef
		wantErr error
	}{
		{name: "new term in existing topic", ref: CardRef{Domain: "SW공학", Topic: "Testing", Term: "ATDD"}},
		{name: "new topic", ref: CardRef{Domain: "DB", Topic: "Index", Term: "B-Tree"}},
		{name: "same term other topic", ref: CardRef{Domain: "SW공학", Topic: "Agile", Term: "TDD"}},
		{name: "duplicate", ref: CardRef{Domain: "SW공학", Topic: "Testing", Term: "TDD"}, wantErr: ErrAlreadyExists},
		{name: "missing domain", ref: CardRef{Domain: "보안", Topic: "Crypto", Term: "AES"}, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleDocument()
			before, err := json.Marshal(doc)
			require.NoError(t, err)

			err = doc.InsertCard(tt.ref, Card{Keyword: "k"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				after, err := json.Marshal(doc)
				require.NoError(t, err)
				assert.JSONEq(t, string(before), string(after))
				return
			}
			require.NoError(t, err)
			card, err := doc.Card(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, "k", card.Keyword)
		})
	}
}

func TestDocument_RemoveCard(t *testing.T) {
	doc := sampleDocument()

	_, err := doc.RemoveCard(CardRef{Domain: "SW공학", Topic: "Testing", Term: "TDD"})
	require.NoError(t, err)
	require.NotNil(t, doc.Domain("SW공학").Topic("Testing"))

	_, err = doc.RemoveCard(CardRef{Domain: "SW공학", Topic: "Testing", Term: "BDD"})
	require.NoError(t, err)
	assert.Nil(t, doc.Domain("SW공학").Topic("Testing"), "empty topic is removed")
	assert.NotNil(t, doc.Domain("SW공학"), "domain survives")

	_, err = doc.RemoveCard(CardRef{Domain: "SW공학", Topic: "Testing", Term: "BDD"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocument_RemoveTopicKeepsDomain(t *testing.T) {
	doc := sampleDocument()

	removed, err := doc.RemoveTopic("DB", "Normalization")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, removed.Images())

	domain := doc.Domain("DB")
	require.NotNil(t, domain)
	assert.Empty(t, domain.Topics)

	_, err = doc.RemoveTopic("DB", "Normalization")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocument_Domains(t *testing.T) {
	doc := sampleDocument()

	assert.ErrorIs(t, doc.AddDomain("DB"), ErrAlreadyExists)
	require.NoError(t, doc.AddDomain("보안"))
	assert.Equal(t, []string{"SW공학", "DB", "보안"}, doc.DomainNames())

	assert.ErrorIs(t, doc.RenameDomain("DB", "보안"), ErrAlreadyExists)
	assert.ErrorIs(t, doc.RenameDomain("nope", "x"), ErrNotFound)
	require.NoError(t, doc.RenameDomain("DB", "Database"))
	assert.Equal(t, []string{"SW공학", "Database", "보안"}, doc.DomainNames())

	_, err := doc.Card(CardRef{Domain: "Database", Topic: "Normalization", Term: "3NF"})
	require.NoError(t, err)

	removed, err := doc.RemoveDomain("Database")
	require.NoError(t, err)
	assert.Equal(t, 1, removed.CardCount())
	assert.Equal(t, []string{"SW공학", "보안"}, doc.DomainNames())
}

func TestDocument_ImageRefCount(t *testing.T) {
	doc := sampleDocument()
	card, err := doc.Card(CardRef{Domain: "SW공학", Topic: "Testing", Term: "TDD"})
	require.NoError(t, err)
	card.Images = []string{"a.png"}

	refs := doc.ImageRefCount()
	assert.Equal(t, 2, refs["a.png"])
	assert.Equal(t, 1, refs["b.png"])
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	doc := sampleDocument()

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, doc, decoded)
}

func TestDocument_UnmarshalKeepsOrder(t *testing.T) {
	raw := `{
  "zeta": {"t2": {"b": {"subject": "s", "keyword": "k", "rhyming": "r", "content": "c"}, "a": {"subject": "", "keyword": "", "rhyming": "", "content": ""}}, "t1": {}},
  "alpha": {}
}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, []string{"zeta", "alpha"}, doc.DomainNames())
	assert.Equal(t, []string{"t2", "t1"}, doc.Domain("zeta").TopicNames())
	topic := doc.Domain("zeta").Topic("t2")
	assert.Equal(t, "b", topic.Terms[0].Name)
	assert.Equal(t, "a", topic.Terms[1].Name)
	assert.Nil(t, topic.Terms[0].Card.Images, "missing images field stays nil")
	assert.Equal(t, "r", topic.Terms[0].Card.Rhyming)
}

func TestDocument_UnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "truncated", raw: `{"DB": {"t": `},
		{name: "array root", raw: `[]`},
		{name: "card not object", raw: `{"DB": {"t": {"term": 5}}}`},
		{name: "trailing data", raw: `{} {}`},
		{name: "null", raw: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc Document
			assert.Error(t, json.Unmarshal([]byte(tt.raw), &doc))
		})
	}
}

func TestDocument_Validate(t *testing.T) {
	doc := sampleDocument()
	require.NoError(t, doc.Validate())

	doc.Domains = append(doc.Domains, Domain{Name: "DB"})
	assert.Error(t, doc.Validate())

	doc = sampleDocument()
	doc.Domains[0].Topics[0].Terms = append(doc.Domains[0].Topics[0].Terms, Term{Name: ""})
	assert.Error(t, doc.Validate())
}
