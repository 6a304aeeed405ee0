// Package session holds the per-session study and quiz state machines and
// the manager that owns them between requests.
package session

import (
	"errors"
	"math/rand"
	"slices"

	"github.com/dtroode/flashcards-server/internal/model"
)

var (
	// ErrNotChecked is returned when grading an answer that was not submitted.
	ErrNotChecked = errors.New("answer is not checked")
	// ErrCompleted is returned for actions on a finished quiz.
	ErrCompleted = errors.New("quiz is completed")
	// ErrUnknownField is returned for an unknown visibility or hint field.
	ErrUnknownField = errors.New("unknown field")
)

// Field names a part of a card that can be hidden.
type Field string

const (
	FieldSubject Field = "subject"
	FieldKeyword Field = "keyword"
	FieldRhyming Field = "rhyming"
	FieldContent Field = "content"
	FieldImage   Field = "image"
)

// Entry is one card of a deck together with its key.
type Entry struct {
	Ref  model.CardRef
	Card model.Card
}

// Shuffler permutes n elements using swap, like rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// RandomShuffler shuffles with the global math/rand source.
func RandomShuffler() Shuffler {
	return rand.Shuffle
}

func shuffled(entries []Entry, shuffle Shuffler) []Entry {
	deck := slices.Clone(entries)
	shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

func sameIdentities(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[model.CardRef]struct{}, len(a))
	for _, e := range a {
		set[e.Ref] = struct{}{}
	}
	for _, e := range b {
		if _, ok := set[e.Ref]; !ok {
			return false
		}
	}
	return true
}

// refresh copies the latest card contents into deck, keeping its order.
func refresh(deck, latest []Entry) {
	cards := make(map[model.CardRef]model.Card, len(latest))
	for _, e := range latest {
		cards[e.Ref] = e.Card
	}
	for i := range deck {
		deck[i].Card = cards[deck[i].Ref]
	}
}
