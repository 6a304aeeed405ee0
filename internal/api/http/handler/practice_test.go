package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpcontext "github.com/dtroode/flashcards-server/internal/api/http/context"
	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/session"
	"github.com/dtroode/flashcards-server/internal/testutil"
)

type MockPracticeService struct {
	mock.Mock
}

func (m *MockPracticeService) study(args mock.Arguments) (session.StudyView, error) {
	return args.Get(0).(session.StudyView), args.Error(1)
}

func (m *MockPracticeService) quiz(args mock.Arguments) (session.QuizView, error) {
	return args.Get(0).(session.QuizView), args.Error(1)
}

func (m *MockPracticeService) StartStudy(ctx context.Context, username string, filter session.Filter) (session.StudyView, error) {
	return m.study(m.Called(ctx, username, filter))
}

func (m *MockPracticeService) Study(ctx context.Context, username, id string) (session.StudyView, error) {
	return m.study(m.Called(ctx, username, id))
}

func (m *MockPracticeService) StudyAction(ctx context.Context, username, id, action string) (session.StudyView, error) {
	return m.study(m.Called(ctx, username, id, action))
}

func (m *MockPracticeService) StartQuiz(ctx context.Context, username string, filter session.Filter, total int) (session.QuizView, error) {
	return m.quiz(m.Called(ctx, username, filter, total))
}

func (m *MockPracticeService) Quiz(ctx context.Context, username, id string) (session.QuizView, error) {
	return m.quiz(m.Called(ctx, username, id))
}

func (m *MockPracticeService) SubmitAnswer(ctx context.Context, username, id, answer string) (session.QuizView, error) {
	return m.quiz(m.Called(ctx, username, id, answer))
}

func (m *MockPracticeService) Grade(ctx context.Context, username, id string, correct bool) (session.QuizView, error) {
	return m.quiz(m.Called(ctx, username, id, correct))
}

func (m *MockPracticeService) ToggleHint(ctx context.Context, username, id, hint string) (session.QuizView, error) {
	return m.quiz(m.Called(ctx, username, id, hint))
}

func (m *MockPracticeService) RetryQuiz(ctx context.Context, username, id string) (session.QuizView, error) {
	return m.quiz(m.Called(ctx, username, id))
}

func (m *MockPracticeService) ShuffleQuiz(ctx context.Context, username, id string) (session.QuizView, error) {
	return m.quiz(m.Called(ctx, username, id))
}

func (m *MockPracticeService) End(ctx context.Context, username, id string) error {
	return m.Called(ctx, username, id).Error(0)
}

func TestPractice_StartQuiz(t *testing.T) {
	e := newEcho()
	svc := &MockPracticeService{}
	h := NewPractice(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

	filter := session.Filter{
		Domains:      []string{"DB", "보안"},
		DomainTopics: []session.TopicRef{{Domain: "DB", Topic: "정규화"}},
	}
	svc.On("StartQuiz", mock.Anything, "alice", filter, 5).
		Return(session.QuizView{ID: "q1", Total: 5}, nil)

	c, rec := newContext(e, http.MethodPost, "/api/quiz",
		`{"domains":["DB","보안"],"domain_topics":[{"domain":"DB","topic":"정규화"}],"total":5}`)
	require.NoError(t, h.StartQuiz(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"q1"`)
	svc.AssertExpectations(t)
}

func TestPractice_Grade(t *testing.T) {
	e := newEcho()

	t.Run("correct is required", func(t *testing.T) {
		svc := &MockPracticeService{}
		h := NewPractice(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

		c, _ := newContext(e, http.MethodPost, "/api/quiz/q1/grade", `{}`)
		c.SetParamNames("id")
		c.SetParamValues("q1")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, h.Grade(c), &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		svc.AssertNotCalled(t, "Grade")
	})

	t.Run("grading before checking", func(t *testing.T) {
		svc := &MockPracticeService{}
		h := NewPractice(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())
		svc.On("Grade", mock.Anything, "alice", "q1", false).
			Return(session.QuizView{}, apperrors.NewErrAnswerNotChecked())

		c, _ := newContext(e, http.MethodPost, "/api/quiz/q1/grade", `{"correct":false}`)
		c.SetParamNames("id")
		c.SetParamValues("q1")

		var httpErr *echo.HTTPError
		require.ErrorAs(t, h.Grade(c), &httpErr)
		assert.Equal(t, http.StatusConflict, httpErr.Code)
	})
}

func TestPractice_StudyActionAndEnd(t *testing.T) {
	e := newEcho()
	svc := &MockPracticeService{}
	h := NewPractice(svc, httpcontext.NewManager(), testutil.MakeNoopLogger())

	svc.On("StudyAction", mock.Anything, "alice", "s1", "toggle-content").
		Return(session.StudyView{ID: "s1", Size: 3}, nil)
	c, rec := newContext(e, http.MethodPost, "/api/study/s1/toggle-content", "")
	c.SetParamNames("id", "action")
	c.SetParamValues("s1", "toggle-content")
	require.NoError(t, h.StudyAction(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.On("End", mock.Anything, "alice", "s1").Return(nil)
	c, rec = newContext(e, http.MethodDelete, "/api/study/s1", "")
	c.SetParamNames("id")
	c.SetParamValues("s1")
	require.NoError(t, h.End(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	svc.AssertExpectations(t)
}
