package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
	"github.com/dtroode/flashcards-server/internal/service"
)

// FlashcardsService defines domain, topic and card operations.
type FlashcardsService interface {
	Domains(ctx context.Context, username string) ([]service.DomainSummary, error)
	AddDomain(ctx context.Context, username, name string) error
	RenameDomain(ctx context.Context, username, oldName, newName string) error
	DeleteDomain(ctx context.Context, username, name string) error
	Topics(ctx context.Context, username, domain string) ([]service.TopicCards, error)
	DeleteTopic(ctx context.Context, username, domain, topic string) error
	Card(ctx context.Context, username string, ref model.CardRef) (model.Card, error)
	AddCard(ctx context.Context, username string, ref model.CardRef, input service.CardInput) (model.Card, error)
	UpdateCard(ctx context.Context, username string, ref model.CardRef, update service.CardUpdate) (model.CardRef, error)
	DeleteCard(ctx context.Context, username string, ref model.CardRef) error
}

// CatalogService lists topics across domains.
type CatalogService interface {
	Topics(ctx context.Context, username string, query service.CatalogQuery) ([]service.CatalogEntry, error)
}

type domainRequest struct {
	Name string `json:"name" query:"name" validate:"required"`
}

type renameDomainRequest struct {
	Name    string `json:"name" validate:"required"`
	NewName string `json:"new_name" validate:"required"`
}

type topicsRequest struct {
	Domain string `query:"domain" validate:"required"`
}

type topicRequest struct {
	Domain string `query:"domain" validate:"required"`
	Topic  string `query:"topic" validate:"required"`
}

type catalogRequest struct {
	Domains []string `query:"domain"`
	Sort    string   `query:"sort" validate:"omitempty,oneof=domain topic count modified"`
	Order   string   `query:"order" validate:"omitempty,oneof=asc desc"`
	Search  string   `query:"q"`
}

// CardRequest identifies a card by query string, form or JSON body. It is
// exported so that echo binds its fields when embedded.
type CardRequest struct {
	Domain string `json:"domain" query:"domain" form:"domain" validate:"required"`
	Topic  string `json:"topic" query:"topic" form:"topic" validate:"required"`
	Term   string `json:"term" query:"term" form:"term" validate:"required"`
}

func (r CardRequest) ref() model.CardRef {
	return model.CardRef{Domain: r.Domain, Topic: r.Topic, Term: r.Term}
}

type addCardRequest struct {
	CardRequest
	Keyword string `json:"keyword"`
	Rhyming string `json:"rhyming"`
	Content string `json:"content" validate:"required"`
}

type updateCardRequest struct {
	CardRequest
	NewTopic string `json:"new_topic"`
	NewTerm  string `json:"new_term"`
	Keyword  string `json:"keyword"`
	Rhyming  string `json:"rhyming"`
	Content  string `json:"content"`
}

type cardResponse struct {
	model.CardRef
	model.Card
}

// Flashcards handles domain, topic, catalog and card endpoints.
type Flashcards struct {
	flashcards     FlashcardsService
	catalog        CatalogService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewFlashcards creates a new Flashcards handler.
func NewFlashcards(flashcards FlashcardsService, catalog CatalogService, contextManager model.ContextManager, logger *logger.Logger) *Flashcards {
	return &Flashcards{
		flashcards:     flashcards,
		catalog:        catalog,
		contextManager: contextManager,
		logger:         logger,
	}
}

// bind reads the current user and the request.
func (h *Flashcards) bind(c echo.Context, req any) (string, error) {
	username, err := currentUser(c, h.contextManager)
	if err != nil {
		return "", err
	}
	if req != nil {
		if err := BindAndValidate(c, req); err != nil {
			return "", err
		}
	}
	return username, nil
}

func (h *Flashcards) fail(username string, err error) error {
	h.logger.Debug("Flashcards handler: request failed",
		"username", username,
		"error", err.Error())
	return handleError(err)
}

func (h *Flashcards) ListDomains(c echo.Context) error {
	username, err := h.bind(c, nil)
	if err != nil {
		return err
	}
	domains, err := h.flashcards.Domains(c.Request().Context(), username)
	if err != nil {
		return h.fail(username, err)
	}
	return c.JSON(http.StatusOK, domains)
}

func (h *Flashcards) AddDomain(c echo.Context) error {
	var req domainRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	if err := h.flashcards.AddDomain(c.Request().Context(), username, req.Name); err != nil {
		return h.fail(username, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (h *Flashcards) RenameDomain(c echo.Context) error {
	var req renameDomainRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	if err := h.flashcards.RenameDomain(c.Request().Context(), username, req.Name, req.NewName); err != nil {
		return h.fail(username, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Flashcards) DeleteDomain(c echo.Context) error {
	var req domainRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	if err := h.flashcards.DeleteDomain(c.Request().Context(), username, req.Name); err != nil {
		return h.fail(username, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTopics returns the cards of a domain grouped by topic.
func (h *Flashcards) ListTopics(c echo.Context) error {
	var req topicsRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	topics, err := h.flashcards.Topics(c.Request().Context(), username, req.Domain)
	if err != nil {
		return h.fail(username, err)
	}
	return c.JSON(http.StatusOK, topics)
}

func (h *Flashcards) DeleteTopic(c echo.Context) error {
	var req topicRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	if err := h.flashcards.DeleteTopic(c.Request().Context(), username, req.Domain, req.Topic); err != nil {
		return h.fail(username, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Catalog lists topics across domains.
func (h *Flashcards) Catalog(c echo.Context) error {
	var req catalogRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	entries, err := h.catalog.Topics(c.Request().Context(), username, service.CatalogQuery{
		Domains: req.Domains,
		SortBy:  req.Sort,
		Desc:    req.Order == "desc",
		Search:  req.Search,
	})
	if err != nil {
		return h.fail(username, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Flashcards) GetCard(c echo.Context) error {
	var req CardRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	card, err := h.flashcards.Card(c.Request().Context(), username, req.ref())
	if err != nil {
		return h.fail(username, err)
	}
	return c.JSON(http.StatusOK, cardResponse{CardRef: req.ref(), Card: card})
}

func (h *Flashcards) AddCard(c echo.Context) error {
	var req addCardRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	card, err := h.flashcards.AddCard(c.Request().Context(), username, req.ref(), service.CardInput{
		Keyword: req.Keyword,
		Rhyming: req.Rhyming,
		Content: req.Content,
	})
	if err != nil {
		return h.fail(username, err)
	}
	return c.JSON(http.StatusCreated, cardResponse{CardRef: req.ref(), Card: card})
}

// UpdateCard edits a card, moving it when new_topic or new_term is given.
func (h *Flashcards) UpdateCard(c echo.Context) error {
	var req updateCardRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	ref, err := h.flashcards.UpdateCard(c.Request().Context(), username, req.ref(), service.CardUpdate{
		Topic:   req.NewTopic,
		Term:    req.NewTerm,
		Keyword: req.Keyword,
		Rhyming: req.Rhyming,
		Content: req.Content,
	})
	if err != nil {
		return h.fail(username, err)
	}
	card, err := h.flashcards.Card(c.Request().Context(), username, ref)
	if err != nil {
		return h.fail(username, err)
	}
	return c.JSON(http.StatusOK, cardResponse{CardRef: ref, Card: card})
}

func (h *Flashcards) DeleteCard(c echo.Context) error {
	var req CardRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	if err := h.flashcards.DeleteCard(c.Request().Context(), username, req.ref()); err != nil {
		return h.fail(username, err)
	}
	return c.NoContent(http.StatusNoContent)
}
