package session

const (
	defaultQuestions = 10
	maxQuestions     = 100
)

// Hints tells which quiz hints are revealed.
type Hints struct {
	Subject bool `json:"subject"`
	Keyword bool `json:"keyword"`
	Rhyming bool `json:"rhyming"`
	Content bool `json:"content"`
	Image   bool `json:"image"`
}

// ClampTotal returns the number of questions for a deck of n cards.
// A non-positive request means the default of min(10, n); otherwise the
// request is clamped to [1, min(100, n)].
func ClampTotal(requested, n int) int {
	if n <= 0 {
		return 0
	}
	upper := min(maxQuestions, n)
	if requested <= 0 {
		return min(defaultQuestions, upper)
	}
	return max(1, min(requested, upper))
}

// Quiz asks a fixed number of questions from a shuffled deck and keeps a
// self-graded score.
type Quiz struct {
	deck      []Entry
	requested int
	total     int
	index     int
	score     int
	answer    string
	checked   bool
	hints     Hints
	completed bool
	shuffle   Shuffler
}

// NewQuiz starts a quiz over cards. requested <= 0 selects the default count.
func NewQuiz(cards []Entry, requested int, shuffle Shuffler) *Quiz {
	q := &Quiz{
		deck:      append([]Entry(nil), cards...),
		requested: requested,
		shuffle:   shuffle,
	}
	q.Retry()
	return q
}

// Retry restarts the quiz on a new permutation of the deck.
func (q *Quiz) Retry() {
	q.deck = shuffled(q.deck, q.shuffle)
	q.total = ClampTotal(q.requested, len(q.deck))
	q.index = 0
	q.score = 0
	q.answer = ""
	q.checked = false
	q.hints = Hints{}
	q.completed = false
}

// Shuffle restarts the quiz like Retry.
func (q *Quiz) Shuffle() {
	q.Retry()
}

// Sync restarts the quiz when the set of cards changed, otherwise it only
// refreshes card contents. It reports whether a restart happened.
func (q *Quiz) Sync(cards []Entry) bool {
	if sameIdentities(q.deck, cards) {
		refresh(q.deck, cards)
		return false
	}
	q.deck = append([]Entry(nil), cards...)
	q.Retry()
	return true
}

// Submit records the answer and marks it checked.
func (q *Quiz) Submit(answer string) error {
	if q.completed {
		return ErrCompleted
	}
	q.answer = answer
	q.checked = true
	return nil
}

// Grade records a self-assessment of the checked answer and moves on, or
// completes the quiz after the last question.
func (q *Quiz) Grade(correct bool) error {
	if q.completed {
		return ErrCompleted
	}
	if !q.checked {
		return ErrNotChecked
	}
	if correct {
		q.score++
	}
	if q.index+1 < q.total {
		q.index++
		q.answer = ""
		q.checked = false
		q.hints = Hints{}
		return nil
	}
	q.completed = true
	return nil
}

// ToggleHint flips one hint.
func (q *Quiz) ToggleHint(field Field) error {
	if q.completed {
		return ErrCompleted
	}
	switch field {
	case FieldSubject:
		q.hints.Subject = !q.hints.Subject
	case FieldKeyword:
		q.hints.Keyword = !q.hints.Keyword
	case FieldRhyming:
		q.hints.Rhyming = !q.hints.Rhyming
	case FieldContent:
		q.hints.Content = !q.hints.Content
	case FieldImage:
		q.hints.Image = !q.hints.Image
	default:
		return ErrUnknownField
	}
	return nil
}

// Current returns the card being asked.
func (q *Quiz) Current() (Entry, bool) {
	if len(q.deck) == 0 || q.index >= len(q.deck) {
		return Entry{}, false
	}
	return q.deck[q.index], true
}

func (q *Quiz) Total() int      { return q.total }
func (q *Quiz) Index() int      { return q.index }
func (q *Quiz) Score() int      { return q.score }
func (q *Quiz) Answer() string  { return q.answer }
func (q *Quiz) Checked() bool   { return q.checked }
func (q *Quiz) Completed() bool { return q.completed }
func (q *Quiz) Hints() Hints    { return q.hints }
