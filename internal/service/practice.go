package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
	"github.com/dtroode/flashcards-server/internal/session"
)

// Study actions.
const (
	ActionNext          = "next"
	ActionPrev          = "prev"
	ActionShuffle       = "shuffle"
	ActionHideAll       = "hide-all"
	ActionShowAll       = "show-all"
	ActionToggleKeyword = "toggle-keyword"
	ActionToggleRhyming = "toggle-rhyming"
	ActionToggleContent = "toggle-content"
)

// Practice runs study and quiz sessions over the cards of a user. Each call
// first reconciles the session with the stored cards.
type Practice struct {
	documents *Documents
	sessions  *session.Manager
	shuffle   session.Shuffler
	logger    *logger.Logger
}

func NewPractice(documents *Documents, sessions *session.Manager, shuffle session.Shuffler, logger *logger.Logger) *Practice {
	return &Practice{
		documents: documents,
		sessions:  sessions,
		shuffle:   shuffle,
		logger:    logger,
	}
}

// selectCards returns the cards matching filter. A single-domain filter on
// a missing domain fails when strict, and yields no cards otherwise.
func (p *Practice) selectCards(ctx context.Context, username string, filter session.Filter, strict bool) ([]session.Entry, error) {
	doc, err := p.documents.Read(ctx, username)
	if err != nil {
		return nil, err
	}
	entries, err := filter.Select(&doc)
	if errors.Is(err, model.ErrNotFound) {
		if strict {
			return nil, apperrors.NewErrDomainNotFound(filter.Domain)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select cards: %w", err)
	}
	return entries, nil
}

func (p *Practice) open(ctx context.Context, username, id string, kind session.Kind) (*session.Session, []session.Entry, error) {
	s, err := p.sessions.Get(username, id, kind)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil, apperrors.NewErrSessionNotFound(id)
	}
	if err != nil {
		return nil, nil, err
	}
	entries, err := p.selectCards(ctx, username, s.Filter, false)
	if err != nil {
		return nil, nil, err
	}
	return s, entries, nil
}

func sessionError(err error, action string) error {
	switch {
	case errors.Is(err, session.ErrNotChecked):
		return apperrors.NewErrAnswerNotChecked()
	case errors.Is(err, session.ErrCompleted):
		return apperrors.NewErrQuizCompleted()
	case errors.Is(err, session.ErrUnknownField):
		return apperrors.NewErrUnknownAction(action)
	}
	return err
}

// StartStudy opens a study session on a shuffled deck.
func (p *Practice) StartStudy(ctx context.Context, username string, filter session.Filter) (session.StudyView, error) {
	entries, err := p.selectCards(ctx, username, filter, true)
	if err != nil {
		return session.StudyView{}, err
	}
	if len(entries) == 0 {
		return session.StudyView{}, apperrors.NewErrNoCards()
	}

	s, err := p.sessions.Create(username, session.KindStudy, filter, session.NewStudy(entries, p.shuffle), nil)
	if err != nil {
		return session.StudyView{}, err
	}

	p.logger.Info("Practice service: study started",
		"username", username,
		"session_id", s.ID,
		"cards", len(entries))

	return s.Study.View(s.ID, s.Filter), nil
}

// Study returns the current state of a study session.
func (p *Practice) Study(ctx context.Context, username, id string) (session.StudyView, error) {
	return p.StudyAction(ctx, username, id, "")
}

// StudyAction applies an action to a study session. An empty action only
// refreshes the state.
func (p *Practice) StudyAction(ctx context.Context, username, id, action string) (session.StudyView, error) {
	s, entries, err := p.open(ctx, username, id, session.KindStudy)
	if err != nil {
		return session.StudyView{}, err
	}

	s.Lock()
	defer s.Unlock()

	if s.Study.Sync(entries) {
		p.logger.Debug("Practice service: study deck rebuilt",
			"session_id", id,
			"cards", len(entries))
	}

	switch action {
	case "":
	case ActionNext:
		s.Study.Next()
	case ActionPrev:
		s.Study.Prev()
	case ActionShuffle:
		s.Study.Shuffle()
	case ActionHideAll:
		s.Study.HideAll()
	case ActionShowAll:
		s.Study.ShowAll()
	case ActionToggleKeyword:
		err = s.Study.Toggle(session.FieldKeyword)
	case ActionToggleRhyming:
		err = s.Study.Toggle(session.FieldRhyming)
	case ActionToggleContent:
		err = s.Study.Toggle(session.FieldContent)
	default:
		return session.StudyView{}, apperrors.NewErrUnknownAction(action)
	}
	if err != nil {
		return session.StudyView{}, sessionError(err, action)
	}

	return s.Study.View(s.ID, s.Filter), nil
}

// StartQuiz opens a quiz session. total <= 0 picks the default count.
func (p *Practice) StartQuiz(ctx context.Context, username string, filter session.Filter, total int) (session.QuizView, error) {
	entries, err := p.selectCards(ctx, username, filter, true)
	if err != nil {
		return session.QuizView{}, err
	}
	if len(entries) == 0 {
		return session.QuizView{}, apperrors.NewErrNoCards()
	}

	s, err := p.sessions.Create(username, session.KindQuiz, filter, nil, session.NewQuiz(entries, total, p.shuffle))
	if err != nil {
		return session.QuizView{}, err
	}

	p.logger.Info("Practice service: quiz started",
		"username", username,
		"session_id", s.ID,
		"questions", s.Quiz.Total())

	return s.Quiz.View(s.ID, s.Filter), nil
}

func (p *Practice) quiz(ctx context.Context, username, id, action string, fn func(q *session.Quiz) error) (session.QuizView, error) {
	s, entries, err := p.open(ctx, username, id, session.KindQuiz)
	if err != nil {
		return session.QuizView{}, err
	}

	s.Lock()
	defer s.Unlock()

	if s.Quiz.Sync(entries) {
		p.logger.Debug("Practice service: quiz restarted after card changes",
			"session_id", id,
			"cards", len(entries))
	}

	if fn != nil {
		if err := fn(s.Quiz); err != nil {
			return session.QuizView{}, sessionError(err, action)
		}
	}

	return s.Quiz.View(s.ID, s.Filter), nil
}

// Quiz returns the current state of a quiz session.
func (p *Practice) Quiz(ctx context.Context, username, id string) (session.QuizView, error) {
	return p.quiz(ctx, username, id, "", nil)
}

// SubmitAnswer records the answer and reveals the card.
func (p *Practice) SubmitAnswer(ctx context.Context, username, id, answer string) (session.QuizView, error) {
	return p.quiz(ctx, username, id, "answer", func(q *session.Quiz) error {
		return q.Submit(answer)
	})
}

// Grade records whether the checked answer was right.
func (p *Practice) Grade(ctx context.Context, username, id string, correct bool) (session.QuizView, error) {
	return p.quiz(ctx, username, id, "grade", func(q *session.Quiz) error {
		return q.Grade(correct)
	})
}

// ToggleHint flips one hint of the current question.
func (p *Practice) ToggleHint(ctx context.Context, username, id, hint string) (session.QuizView, error) {
	return p.quiz(ctx, username, id, hint, func(q *session.Quiz) error {
		return q.ToggleHint(session.Field(hint))
	})
}

// RetryQuiz restarts the quiz with a new order.
func (p *Practice) RetryQuiz(ctx context.Context, username, id string) (session.QuizView, error) {
	return p.quiz(ctx, username, id, "retry", func(q *session.Quiz) error {
		q.Retry()
		return nil
	})
}

// ShuffleQuiz reshuffles and restarts the quiz.
func (p *Practice) ShuffleQuiz(ctx context.Context, username, id string) (session.QuizView, error) {
	return p.quiz(ctx, username, id, "shuffle", func(q *session.Quiz) error {
		q.Shuffle()
		return nil
	})
}

// End closes a session of either kind.
func (p *Practice) End(_ context.Context, username, id string) error {
	if err := p.sessions.Delete(username, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apperrors.NewErrSessionNotFound(id)
		}
		return err
	}
	return nil
}
