package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
	"github.com/dtroode/flashcards-server/internal/session"
)

// PracticeService defines study and quiz session operations.
type PracticeService interface {
	StartStudy(ctx context.Context, username string, filter session.Filter) (session.StudyView, error)
	Study(ctx context.Context, username, id string) (session.StudyView, error)
	StudyAction(ctx context.Context, username, id, action string) (session.StudyView, error)
	StartQuiz(ctx context.Context, username string, filter session.Filter, total int) (session.QuizView, error)
	Quiz(ctx context.Context, username, id string) (session.QuizView, error)
	SubmitAnswer(ctx context.Context, username, id, answer string) (session.QuizView, error)
	Grade(ctx context.Context, username, id string, correct bool) (session.QuizView, error)
	ToggleHint(ctx context.Context, username, id, hint string) (session.QuizView, error)
	RetryQuiz(ctx context.Context, username, id string) (session.QuizView, error)
	ShuffleQuiz(ctx context.Context, username, id string) (session.QuizView, error)
	End(ctx context.Context, username, id string) error
}

type studyRequest struct {
	session.Filter
}

type quizRequest struct {
	session.Filter
	Total int `json:"total" validate:"min=0"`
}

type sessionRequest struct {
	ID string `param:"id" validate:"required"`
}

type studyActionRequest struct {
	ID     string `param:"id" validate:"required"`
	Action string `param:"action" validate:"required"`
}

type answerRequest struct {
	ID     string `param:"id" validate:"required"`
	Answer string `json:"answer"`
}

type gradeRequest struct {
	ID      string `param:"id" validate:"required"`
	Correct *bool  `json:"correct" validate:"required"`
}

type hintRequest struct {
	ID   string `param:"id" validate:"required"`
	Hint string `param:"hint" validate:"required"`
}

// Practice handles study and quiz endpoints.
type Practice struct {
	practice       PracticeService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewPractice creates a new Practice handler.
func NewPractice(practice PracticeService, contextManager model.ContextManager, logger *logger.Logger) *Practice {
	return &Practice{practice: practice, contextManager: contextManager, logger: logger}
}

func (h *Practice) bind(c echo.Context, req any) (string, error) {
	username, err := currentUser(c, h.contextManager)
	if err != nil {
		return "", err
	}
	if err := BindAndValidate(c, req); err != nil {
		return "", err
	}
	return username, nil
}

func (h *Practice) StartStudy(c echo.Context) error {
	var req studyRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.StartStudy(c.Request().Context(), username, req.Filter)
	if err != nil {
		return handleError(err)
	}
	h.logger.Debug("Practice handler: study started",
		"username", username,
		"session", view.ID,
		"cards", view.Size)
	return c.JSON(http.StatusCreated, view)
}

func (h *Practice) Study(c echo.Context) error {
	var req sessionRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.Study(c.Request().Context(), username, req.ID)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// StudyAction applies a navigation or visibility action such as next or
// toggle-content.
func (h *Practice) StudyAction(c echo.Context) error {
	var req studyActionRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.StudyAction(c.Request().Context(), username, req.ID, req.Action)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Practice) StartQuiz(c echo.Context) error {
	var req quizRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.StartQuiz(c.Request().Context(), username, req.Filter, req.Total)
	if err != nil {
		return handleError(err)
	}
	h.logger.Debug("Practice handler: quiz started",
		"username", username,
		"session", view.ID,
		"total", view.Total)
	return c.JSON(http.StatusCreated, view)
}

func (h *Practice) Quiz(c echo.Context) error {
	var req sessionRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.Quiz(c.Request().Context(), username, req.ID)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Practice) SubmitAnswer(c echo.Context) error {
	var req answerRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.SubmitAnswer(c.Request().Context(), username, req.ID, req.Answer)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Practice) Grade(c echo.Context) error {
	var req gradeRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.Grade(c.Request().Context(), username, req.ID, *req.Correct)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Practice) ToggleHint(c echo.Context) error {
	var req hintRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.ToggleHint(c.Request().Context(), username, req.ID, req.Hint)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Practice) RetryQuiz(c echo.Context) error {
	var req sessionRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.RetryQuiz(c.Request().Context(), username, req.ID)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Practice) ShuffleQuiz(c echo.Context) error {
	var req sessionRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	view, err := h.practice.ShuffleQuiz(c.Request().Context(), username, req.ID)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// End discards a study or quiz session.
func (h *Practice) End(c echo.Context) error {
	var req sessionRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	if err := h.practice.End(c.Request().Context(), username, req.ID); err != nil {
		return handleError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
