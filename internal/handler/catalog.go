package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/service"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/pkg/response"
)

type CatalogHandler struct {
	availability *service.AvailabilityService
	catalog      *service.CatalogService
	validator    *validator.Validate
	log          *zap.Logger
}

func NewCatalogHandler(availability *service.AvailabilityService, catalog *service.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		availability: availability,
		catalog:      catalog,
		validator:    newValidator(),
		log:          log,
	}
}

// ListCopies handles GET /exemplares?livro_id=
func (h *CatalogHandler) ListCopies(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("livro_id")
	if raw == "" {
		response.FromError(w, r, h.log, customError.WrapValidation("livro_id is required", nil))
		return
	}

	bookID, err := uuid.Parse(raw)
	if err != nil {
		response.FromError(w, r, h.log, customError.WrapValidation("livro_id must be a valid UUID", err))
		return
	}

	copies, err := h.availability.ListCopies(r.Context(), bookID)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	response.Success(w, copies)
}

// Availability handles GET /exemplares/{id}/disponibilidade
func (h *CatalogHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	available, err := h.availability.IsAvailable(r.Context(), id)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	response.Success(w, domain.AvailabilityResponse{CopyID: id, Available: available})
}

// CreateCopy handles POST /exemplares
func (h *CatalogHandler) CreateCopy(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCopyRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	c, err := h.catalog.CreateCopy(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	response.Created(w, c)
}

// UpdateCopy handles PUT /exemplares/{id}
func (h *CatalogHandler) UpdateCopy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	var req domain.UpdateCopyRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	c, err := h.catalog.UpdateCopy(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	response.Success(w, c)
}

// DeleteCopy handles DELETE /exemplares/{id}
func (h *CatalogHandler) DeleteCopy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	if err := h.catalog.DeleteCopy(r.Context(), id); err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	h.log.Info("copy deleted", zap.String("copy_id", id.String()))
	response.NoContent(w)
}

// CreateBook handles POST /livros
func (h *CatalogHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	book, err := h.catalog.CreateBook(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	response.Created(w, book)
}

// DeleteBook handles DELETE /livros/{id}
func (h *CatalogHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	if err := h.catalog.DeleteBook(r.Context(), id); err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	h.log.Info("book deleted with its copies and loans", zap.String("book_id", id.String()))
	response.NoContent(w)
}
