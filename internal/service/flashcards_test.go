package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/flashcards-server/internal/model"
	"github.com/dtroode/flashcards-server/internal/testutil"
)

func newTestFlashcards(t *testing.T) (*Flashcards, *memDocuments, *memStorage) {
	t.Helper()
	docs := newMemDocuments()
	storage := newMemStorage()
	f := NewFlashcards(newTestDocuments(docs), storage, testutil.MakeNoopLogger())
	f.blobs.now = fixedClock
	return f, docs, storage
}

func cardWithImages(term string, images ...string) model.Card {
	if images == nil {
		images = []string{}
	}
	return model.Card{Subject: term, Content: term + " content", Images: images}
}

func loadDoc(t *testing.T, docs *memDocuments, username string) *model.Document {
	t.Helper()
	doc, err := docs.Load(context.Background(), username)
	require.NoError(t, err)
	return &doc
}

func TestFlashcards_Domains(t *testing.T) {
	ctx := context.Background()
	f, docs, _ := newTestFlashcards(t)

	doc := model.NewDocument([]string{"DB", "보안"})
	require.NoError(t, doc.InsertCard(model.CardRef{Domain: "DB", Topic: "정규화", Term: "1NF"}, cardWithImages("1NF")))
	require.NoError(t, doc.InsertCard(model.CardRef{Domain: "DB", Topic: "정규화", Term: "2NF"}, cardWithImages("2NF")))
	seed(t, docs, "alice", doc)

	summaries, err := f.Domains(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []DomainSummary{
		{Name: "DB", Topics: 1, Cards: 2},
		{Name: "보안", Topics: 0, Cards: 0},
	}, summaries)
}

func TestFlashcards_AddDomain(t *testing.T) {
	ctx := context.Background()
	f, docs, _ := newTestFlashcards(t)

	require.NoError(t, f.AddDomain(ctx, "alice", "  신기술 "))
	assert.Equal(t, []string{"DB", "보안", "신기술"}, loadDoc(t, docs, "alice").DomainNames())

	requireAPIError(t, f.AddDomain(ctx, "alice", "DB"), http.StatusConflict)
	requireAPIError(t, f.AddDomain(ctx, "alice", "   "), http.StatusBadRequest)

	// "D/B" would keep its images under the folder of "DB"
	requireAPIError(t, f.AddDomain(ctx, "alice", "D/B"), http.StatusConflict)
	assert.Equal(t, []string{"DB", "보안", "신기술"}, loadDoc(t, docs, "alice").DomainNames())
}

func TestFlashcards_RenameDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("moves images", func(t *testing.T) {
		f, docs, storage := newTestFlashcards(t)
		oldKey := "alice/images/DB/정규화/정규화_20240101_000000_1.png"
		orphan := "alice/images/DB/정규화/legacy.png"
		storage.put(oldKey, "img", fixedClock())
		storage.put(orphan, "old", fixedClock())

		doc := model.NewDocument([]string{"DB", "보안"})
		ref := model.CardRef{Domain: "DB", Topic: "정규화", Term: "1NF"}
		require.NoError(t, doc.InsertCard(ref, cardWithImages("1NF", oldKey)))
		seed(t, docs, "alice", doc)

		require.NoError(t, f.RenameDomain(ctx, "alice", "DB", "데이터베이스"))

		doc = *loadDoc(t, docs, "alice")
		assert.Equal(t, []string{"데이터베이스", "보안"}, doc.DomainNames())
		card, err := doc.Card(model.CardRef{Domain: "데이터베이스", Topic: "정규화", Term: "1NF"})
		require.NoError(t, err)
		newKey := "alice/images/데이터베이스/정규화/정규화_20240101_000000_1.png"
		assert.Equal(t, []string{newKey}, card.Images)
		assert.Equal(t, []string{
			"alice/images/데이터베이스/정규화/legacy.png",
			newKey,
		}, storage.keys())
	})

	t.Run("errors", func(t *testing.T) {
		f, _, _ := newTestFlashcards(t)
		requireAPIError(t, f.RenameDomain(ctx, "alice", "DB", "DB"), http.StatusBadRequest)
		requireAPIError(t, f.RenameDomain(ctx, "alice", "DB", ""), http.StatusBadRequest)
		requireAPIError(t, f.RenameDomain(ctx, "alice", "nope", "X"), http.StatusNotFound)
		requireAPIError(t, f.RenameDomain(ctx, "alice", "DB", "보안"), http.StatusConflict)
		requireAPIError(t, f.RenameDomain(ctx, "alice", "DB", "보:안"), http.StatusConflict)
	})

	t.Run("same folder", func(t *testing.T) {
		f, docs, _ := newTestFlashcards(t)
		require.NoError(t, f.RenameDomain(ctx, "alice", "DB", "D:B"))
		assert.Equal(t, []string{"D:B", "보안"}, loadDoc(t, docs, "alice").DomainNames())
	})

	t.Run("shared folder moves only own images", func(t *testing.T) {
		f, docs, storage := newTestFlashcards(t)
		own := "alice/images/ab/T/T_20240101_000000_1.png"
		legacy := "alice/images/ab/T/legacy.png"
		storage.put(own, "img", fixedClock())
		storage.put(legacy, "old", fixedClock())

		doc := model.NewDocument([]string{"a/b", "ab"})
		require.NoError(t, doc.InsertCard(model.CardRef{Domain: "a/b", Topic: "T", Term: "x"}, cardWithImages("x", own)))
		seed(t, docs, "alice", doc)

		require.NoError(t, f.RenameDomain(ctx, "alice", "a/b", "c"))

		moved := "alice/images/c/T/T_20240101_000000_1.png"
		card, err := loadDoc(t, docs, "alice").Card(model.CardRef{Domain: "c", Topic: "T", Term: "x"})
		require.NoError(t, err)
		assert.Equal(t, []string{moved}, card.Images)
		assert.Equal(t, []string{legacy, moved}, storage.keys())
	})
}

func TestFlashcards_DeleteDomain(t *testing.T) {
	ctx := context.Background()
	f, docs, storage := newTestFlashcards(t)

	dbKey := "alice/images/DB/T/T_20240101_000000_1.png"
	keepKey := "alice/images/보안/T/T_20240101_000000_1.png"
	storage.put(dbKey, "a", fixedClock())
	storage.put(keepKey, "b", fixedClock())

	doc := model.NewDocument([]string{"DB", "보안"})
	require.NoError(t, doc.InsertCard(model.CardRef{Domain: "DB", Topic: "T", Term: "x"}, cardWithImages("x", dbKey)))
	require.NoError(t, doc.InsertCard(model.CardRef{Domain: "보안", Topic: "T", Term: "y"}, cardWithImages("y", keepKey)))
	seed(t, docs, "alice", doc)

	require.NoError(t, f.DeleteDomain(ctx, "alice", "DB"))
	assert.Equal(t, []string{"보안"}, loadDoc(t, docs, "alice").DomainNames())
	assert.Equal(t, []string{keepKey}, storage.keys())

	requireAPIError(t, f.DeleteDomain(ctx, "alice", "DB"), http.StatusNotFound)
}

func TestFlashcards_DeleteDomain_SharedFolder(t *testing.T) {
	ctx := context.Background()
	f, docs, storage := newTestFlashcards(t)

	own := "alice/images/ab/T/T_20240101_000000_1.png"
	legacy := "alice/images/ab/T/legacy.png"
	storage.put(own, "a", fixedClock())
	storage.put(legacy, "b", fixedClock())

	doc := model.NewDocument([]string{"a/b", "ab"})
	require.NoError(t, doc.InsertCard(model.CardRef{Domain: "a/b", Topic: "T", Term: "x"}, cardWithImages("x", own)))
	seed(t, docs, "alice", doc)

	require.NoError(t, f.DeleteDomain(ctx, "alice", "a/b"))
	assert.Equal(t, []string{"ab"}, loadDoc(t, docs, "alice").DomainNames())
	assert.Equal(t, []string{legacy}, storage.keys())
}

func TestFlashcards_DeleteTopic_KeepsDomain(t *testing.T) {
	ctx := context.Background()
	f, docs, storage := newTestFlashcards(t)

	key := "alice/images/DB/T/T_20240101_000000_1.png"
	storage.put(key, "a", fixedClock())
	doc := model.NewDocument([]string{"DB"})
	require.NoError(t, doc.InsertCard(model.CardRef{Domain: "DB", Topic: "T", Term: "x"}, cardWithImages("x", key)))
	seed(t, docs, "alice", doc)

	require.NoError(t, f.DeleteTopic(ctx, "alice", "DB", "T"))

	doc = *loadDoc(t, docs, "alice")
	require.NotNil(t, doc.Domain("DB"))
	assert.Empty(t, doc.Domain("DB").Topics)
	assert.Empty(t, storage.keys())

	requireAPIError(t, f.DeleteTopic(ctx, "alice", "DB", "T"), http.StatusNotFound)
	requireAPIError(t, f.DeleteTopic(ctx, "alice", "nope", "T"), http.StatusNotFound)
}

func TestFlashcards_AddCard(t *testing.T) {
	ctx := context.Background()
	f, docs, _ := newTestFlashcards(t)
	ref := model.CardRef{Domain: "DB", Topic: "정규화", Term: "1NF"}

	card, err := f.AddCard(ctx, "alice", ref, CardInput{Keyword: "원자값", Rhyming: "원", Content: "도메인이 원자값"})
	require.NoError(t, err)
	assert.Equal(t, model.Card{Subject: "1NF", Keyword: "원자값", Rhyming: "원", Content: "도메인이 원자값", Images: []string{}}, card)

	stored, err := f.Card(ctx, "alice", ref)
	require.NoError(t, err)
	assert.Equal(t, card, stored)

	t.Run("duplicate does not mutate", func(t *testing.T) {
		before := loadDoc(t, docs, "alice")
		_, err := f.AddCard(ctx, "alice", ref, CardInput{Content: "other"})
		requireAPIError(t, err, http.StatusConflict)
		assert.Equal(t, before, loadDoc(t, docs, "alice"))
	})

	t.Run("required fields", func(t *testing.T) {
		_, err := f.AddCard(ctx, "alice", model.CardRef{Domain: "DB", Term: "x"}, CardInput{Content: "c"})
		requireAPIError(t, err, http.StatusBadRequest)
		_, err = f.AddCard(ctx, "alice", model.CardRef{Domain: "DB", Topic: "t"}, CardInput{Content: "c"})
		requireAPIError(t, err, http.StatusBadRequest)
		_, err = f.AddCard(ctx, "alice", model.CardRef{Domain: "DB", Topic: "t", Term: "x"}, CardInput{})
		requireAPIError(t, err, http.StatusBadRequest)
	})

	t.Run("unknown domain", func(t *testing.T) {
		_, err := f.AddCard(ctx, "alice", model.CardRef{Domain: "nope", Topic: "t", Term: "x"}, CardInput{Content: "c"})
		requireAPIError(t, err, http.StatusNotFound)
	})
}

func TestFlashcards_UpdateCard(t *testing.T) {
	ctx := context.Background()
	ref := model.CardRef{Domain: "DB", Topic: "정규화", Term: "1NF"}

	setup := func(t *testing.T) (*Flashcards, *memDocuments, *memStorage, string) {
		f, docs, storage := newTestFlashcards(t)
		key := "alice/images/DB/정규화/정규화_20240101_000000_1.jpg"
		storage.put(key, "img", fixedClock())
		doc := model.NewDocument([]string{"DB"})
		require.NoError(t, doc.InsertCard(ref, cardWithImages("1NF", key)))
		require.NoError(t, doc.InsertCard(model.CardRef{Domain: "DB", Topic: "정규화", Term: "2NF"}, cardWithImages("2NF")))
		require.NoError(t, doc.InsertCard(model.CardRef{Domain: "DB", Topic: "트랜잭션", Term: "ACID"}, cardWithImages("ACID")))
		seed(t, docs, "alice", doc)
		return f, docs, storage, key
	}

	t.Run("in place", func(t *testing.T) {
		f, docs, _, key := setup(t)
		got, err := f.UpdateCard(ctx, "alice", ref, CardUpdate{Keyword: "k", Rhyming: "r", Content: "c"})
		require.NoError(t, err)
		assert.Equal(t, ref, got)

		card, err := loadDocCard(t, docs, ref)
		require.NoError(t, err)
		assert.Equal(t, model.Card{Subject: "1NF", Keyword: "k", Rhyming: "r", Content: "c", Images: []string{key}}, card)
	})

	t.Run("rename term keeps position of topic", func(t *testing.T) {
		f, docs, _, key := setup(t)
		got, err := f.UpdateCard(ctx, "alice", ref, CardUpdate{Term: "제1정규형", Content: "c"})
		require.NoError(t, err)

		doc := loadDoc(t, docs, "alice")
		assert.Equal(t, []string{"정규화", "트랜잭션"}, doc.Domain("DB").TopicNames())
		card, err := doc.Card(got)
		require.NoError(t, err)
		assert.Equal(t, "제1정규형", card.Subject)
		assert.Equal(t, []string{key}, card.Images)
	})

	t.Run("move to other topic relocates images", func(t *testing.T) {
		f, docs, storage, key := setup(t)
		target := model.CardRef{Domain: "DB", Topic: "트랜잭션", Term: "1NF"}
		got, err := f.UpdateCard(ctx, "alice", ref, CardUpdate{Topic: "트랜잭션", Content: "c"})
		require.NoError(t, err)
		assert.Equal(t, target, got)

		card, err := loadDocCard(t, docs, target)
		require.NoError(t, err)
		newKey := "alice/images/DB/트랜잭션/트랜잭션_20240301_093000_1.jpg"
		assert.Equal(t, []string{newKey}, card.Images)

		_, ok := storage.content(key)
		assert.False(t, ok)
		content, ok := storage.content(newKey)
		require.True(t, ok)
		assert.Equal(t, "img", content)
	})

	t.Run("moving the last card removes the source topic", func(t *testing.T) {
		f, docs, _, _ := setup(t)
		acid := model.CardRef{Domain: "DB", Topic: "트랜잭션", Term: "ACID"}
		_, err := f.UpdateCard(ctx, "alice", acid, CardUpdate{Topic: "정규화", Content: "c"})
		require.NoError(t, err)
		assert.Equal(t, []string{"정규화"}, loadDoc(t, docs, "alice").Domain("DB").TopicNames())
	})

	t.Run("collision rejected", func(t *testing.T) {
		f, docs, storage, _ := setup(t)
		before := loadDoc(t, docs, "alice")
		keys := storage.keys()

		_, err := f.UpdateCard(ctx, "alice", ref, CardUpdate{Term: "2NF", Content: "c"})
		requireAPIError(t, err, http.StatusConflict)
		assert.Equal(t, before, loadDoc(t, docs, "alice"))
		assert.Equal(t, keys, storage.keys())
	})

	t.Run("missing card", func(t *testing.T) {
		f, _, _, _ := setup(t)
		_, err := f.UpdateCard(ctx, "alice", model.CardRef{Domain: "DB", Topic: "정규화", Term: "3NF"}, CardUpdate{})
		requireAPIError(t, err, http.StatusNotFound)
	})
}

func TestFlashcards_DeleteCard(t *testing.T) {
	ctx := context.Background()
	f, docs, storage := newTestFlashcards(t)

	shared := "alice/images/DB/T/T_20240101_000000_1.png"
	storage.put(shared, "a", fixedClock())
	doc := model.NewDocument([]string{"DB"})
	x := model.CardRef{Domain: "DB", Topic: "T", Term: "x"}
	y := model.CardRef{Domain: "DB", Topic: "T", Term: "y"}
	require.NoError(t, doc.InsertCard(x, cardWithImages("x", shared)))
	require.NoError(t, doc.InsertCard(y, cardWithImages("y", shared)))
	seed(t, docs, "alice", doc)

	require.NoError(t, f.DeleteCard(ctx, "alice", x))
	assert.Equal(t, []string{shared}, storage.keys(), "image still used by another card")

	require.NoError(t, f.DeleteCard(ctx, "alice", y))
	assert.Empty(t, storage.keys())
	assert.Empty(t, loadDoc(t, docs, "alice").Domain("DB").Topics)

	requireAPIError(t, f.DeleteCard(ctx, "alice", y), http.StatusNotFound)
}

func loadDocCard(t *testing.T, docs *memDocuments, ref model.CardRef) (model.Card, error) {
	t.Helper()
	doc := loadDoc(t, docs, "alice")
	card, err := doc.Card(ref)
	if err != nil {
		return model.Card{}, err
	}
	return *card, nil
}
