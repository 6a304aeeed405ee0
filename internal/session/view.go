package session

// CardView is a card as shown to the user. Hidden fields are nil.
type CardView struct {
	Domain     string  `json:"domain"`
	Topic      string  `json:"topic"`
	Term       string  `json:"term"`
	Subject    *string `json:"subject,omitempty"`
	Keyword    *string `json:"keyword,omitempty"`
	Rhyming    *string `json:"rhyming,omitempty"`
	Content    *string `json:"content,omitempty"`
	ImageCount *int    `json:"image_count,omitempty"`
}

// StudyView is the client-facing state of a study session.
type StudyView struct {
	ID         string     `json:"id"`
	Filter     Filter     `json:"filter"`
	Index      int        `json:"index"`
	Size       int        `json:"size"`
	Visibility Visibility `json:"visibility"`
	Card       *CardView  `json:"card,omitempty"`
}

// QuizView is the client-facing state of a quiz session.
type QuizView struct {
	ID        string    `json:"id"`
	Filter    Filter    `json:"filter"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Score     int       `json:"score"`
	Answer    string    `json:"answer"`
	Checked   bool      `json:"checked"`
	Completed bool      `json:"completed"`
	Hints     Hints     `json:"hints"`
	Card      *CardView `json:"card,omitempty"`
}

func reveal(show bool, value string) *string {
	if !show {
		return nil
	}
	return &value
}

// View renders the study state. Subject and image count are always shown.
func (s *Study) View(id string, filter Filter) StudyView {
	view := StudyView{
		ID:         id,
		Filter:     filter,
		Index:      s.index,
		Size:       len(s.deck),
		Visibility: s.visible,
	}
	if entry, ok := s.Current(); ok {
		count := len(entry.Card.Images)
		view.Card = &CardView{
			Domain:     entry.Ref.Domain,
			Topic:      entry.Ref.Topic,
			Term:       entry.Ref.Term,
			Subject:    reveal(true, entry.Card.Subject),
			Keyword:    reveal(s.visible.Keyword, entry.Card.Keyword),
			Rhyming:    reveal(s.visible.Rhyming, entry.Card.Rhyming),
			Content:    reveal(s.visible.Content, entry.Card.Content),
			ImageCount: &count,
		}
	}
	return view
}

// View renders the quiz state. Fields are revealed by their hint or once
// the answer is checked.
func (q *Quiz) View(id string, filter Filter) QuizView {
	view := QuizView{
		ID:        id,
		Filter:    filter,
		Index:     q.index,
		Total:     q.total,
		Score:     q.score,
		Answer:    q.answer,
		Checked:   q.checked,
		Completed: q.completed,
		Hints:     q.hints,
	}
	if q.completed {
		return view
	}
	if entry, ok := q.Current(); ok {
		card := &CardView{
			Domain:  entry.Ref.Domain,
			Topic:   entry.Ref.Topic,
			Term:    entry.Ref.Term,
			Subject: reveal(q.checked || q.hints.Subject, entry.Card.Subject),
			Keyword: reveal(q.checked || q.hints.Keyword, entry.Card.Keyword),
			Rhyming: reveal(q.checked || q.hints.Rhyming, entry.Card.Rhyming),
			Content: reveal(q.checked || q.hints.Content, entry.Card.Content),
		}
		if q.checked || q.hints.Image {
			count := len(entry.Card.Images)
			card.ImageCount = &count
		}
		view.Card = card
	}
	return view
}
