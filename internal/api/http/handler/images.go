package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
	"github.com/dtroode/flashcards-server/internal/service"
)

const imagesFormField = "images"

// ImagesService defines card image operations.
type ImagesService interface {
	List(ctx context.Context, username string, ref model.CardRef) ([]service.ImageInfo, error)
	Add(ctx context.Context, username string, ref model.CardRef, uploads []service.Upload) ([]service.ImageInfo, error)
	Open(ctx context.Context, username string, ref model.CardRef, index int) (io.ReadCloser, string, error)
	Reorder(ctx context.Context, username string, ref model.CardRef, order []int) error
	Delete(ctx context.Context, username string, ref model.CardRef, index int) error
	DeleteAll(ctx context.Context, username string, ref model.CardRef) (int, error)
}

type imageRequest struct {
	CardRequest
	Index string `query:"index" validate:"required,numeric"`
}

func (r imageRequest) index() (int, error) {
	i, err := strconv.Atoi(r.Index)
	if err != nil || i < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "index must be a non-negative integer")
	}
	return i, nil
}

type reorderRequest struct {
	CardRequest
	Order []int `json:"order" validate:"required"`
}

// Images handles card image endpoints.
type Images struct {
	images         ImagesService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewImages creates a new Images handler.
func NewImages(images ImagesService, contextManager model.ContextManager, logger *logger.Logger) *Images {
	return &Images{images: images, contextManager: contextManager, logger: logger}
}

func (h *Images) bind(c echo.Context, req any) (string, error) {
	username, err := currentUser(c, h.contextManager)
	if err != nil {
		return "", err
	}
	if err := BindAndValidate(c, req); err != nil {
		return "", err
	}
	return username, nil
}

func (h *Images) List(c echo.Context) error {
	var req CardRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	images, err := h.images.List(c.Request().Context(), username, req.ref())
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, images)
}

// Add stores the files of the multipart "images" field.
func (h *Images) Add(c echo.Context) error {
	var req CardRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form expected")
	}
	files := form.File[imagesFormField]

	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "failed to read upload")
		}
		defer f.Close()
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Body: f})
	}

	images, err := h.images.Add(c.Request().Context(), username, req.ref(), uploads)
	if err != nil {
		h.logger.Info("Images handler: upload failed",
			"username", username,
			"card", req.ref().String(),
			"error", err.Error())
		return handleError(err)
	}
	return c.JSON(http.StatusCreated, images)
}

// Content streams one image.
func (h *Images) Content(c echo.Context) error {
	var req imageRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}

	index, err := req.index()
	if err != nil {
		return err
	}

	rc, name, err := h.images.Open(c.Request().Context(), username, req.ref(), index)
	if err != nil {
		return handleError(err)
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, rc)
}

func (h *Images) Reorder(c echo.Context) error {
	var req reorderRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	if err := h.images.Reorder(c.Request().Context(), username, req.ref(), req.Order); err != nil {
		return handleError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Images) Delete(c echo.Context) error {
	var req imageRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	index, err := req.index()
	if err != nil {
		return err
	}
	if err := h.images.Delete(c.Request().Context(), username, req.ref(), index); err != nil {
		return handleError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Images) DeleteAll(c echo.Context) error {
	var req CardRequest
	username, err := h.bind(c, &req)
	if err != nil {
		return err
	}
	n, err := h.images.DeleteAll(c.Request().Context(), username, req.ref())
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": n})
}
