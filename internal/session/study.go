package session

// Visibility tells which study fields are shown.
type Visibility struct {
	Keyword bool `json:"keyword"`
	Rhyming bool `json:"rhyming"`
	Content bool `json:"content"`
}

var allVisible = Visibility{Keyword: true, Rhyming: true, Content: true}

// Study walks through a deck one card at a time.
type Study struct {
	deck    []Entry
	index   int
	visible Visibility
	shuffle Shuffler
}

// NewStudy starts a study over a shuffled copy of cards with every field shown.
func NewStudy(cards []Entry, shuffle Shuffler) *Study {
	return &Study{
		deck:    shuffled(cards, shuffle),
		visible: allVisible,
		shuffle: shuffle,
	}
}

// Sync reconciles the deck with the current card list. When the set of cards
// changed, the deck is rebuilt in list order, the index reset and every
// field shown again. It reports whether a rebuild happened.
func (s *Study) Sync(cards []Entry) bool {
	if sameIdentities(s.deck, cards) {
		refresh(s.deck, cards)
		return false
	}
	s.deck = append([]Entry(nil), cards...)
	s.index = 0
	s.visible = allVisible
	return true
}

func (s *Study) Len() int {
	return len(s.deck)
}

func (s *Study) Index() int {
	return s.index
}

func (s *Study) Visibility() Visibility {
	return s.visible
}

// Deck returns the cards in study order.
func (s *Study) Deck() []Entry {
	return append([]Entry(nil), s.deck...)
}

// Current returns the card at the index.
func (s *Study) Current() (Entry, bool) {
	if len(s.deck) == 0 {
		return Entry{}, false
	}
	return s.deck[s.index], true
}

// Next moves forward, wrapping to the first card.
func (s *Study) Next() {
	if len(s.deck) == 0 {
		return
	}
	s.index = (s.index + 1) % len(s.deck)
}

// Prev moves back, wrapping to the last card.
func (s *Study) Prev() {
	if len(s.deck) == 0 {
		return
	}
	s.index = (s.index - 1 + len(s.deck)) % len(s.deck)
}

// Shuffle reorders the deck and returns to the first card.
func (s *Study) Shuffle() {
	s.deck = shuffled(s.deck, s.shuffle)
	s.index = 0
}

func (s *Study) HideAll() {
	s.visible = Visibility{}
}

func (s *Study) ShowAll() {
	s.visible = allVisible
}

// Toggle flips the visibility of keyword, rhyming or content.
func (s *Study) Toggle(field Field) error {
	switch field {
	case FieldKeyword:
		s.visible.Keyword = !s.visible.Keyword
	case FieldRhyming:
		s.visible.Rhyming = !s.visible.Rhyming
	case FieldContent:
		s.visible.Content = !s.visible.Content
	default:
		return ErrUnknownField
	}
	return nil
}
