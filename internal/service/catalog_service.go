package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

// CatalogService covers the book and copy writes the loan engine depends on
type CatalogService struct {
	CatalogRepo repository.CatalogRepository
}

func NewCatalogService(catalogRepo repository.CatalogRepository) *CatalogService {
	return &CatalogService{CatalogRepo: catalogRepo}
}

func (s *CatalogService) CreateBook(ctx context.Context, request *domain.CreateBookRequest) (*domain.Book, error) {
	book := &domain.Book{
		ID:     uuid.New(),
		Title:  strings.TrimSpace(request.Title),
		Author: strings.TrimSpace(request.Author),
	}
	if book.Title == "" || book.Author == "" {
		return nil, customError.WrapValidation("titulo and autor are required", nil)
	}

	if err := s.CatalogRepo.CreateBook(ctx, book); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return book, nil
}

// DeleteBook removes the book together with its copies and their loans
func (s *CatalogService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	err := s.CatalogRepo.DeleteBook(ctx, id)
	if errors.Is(err, customError.ErrBookNotFound) {
		return customError.WrapBookNotFound(id.String())
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func (s *CatalogService) CreateCopy(ctx context.Context, request *domain.CreateCopyRequest) (*domain.Copy, error) {
	bookID, err := uuid.Parse(request.BookID)
	if err != nil {
		return nil, customError.WrapValidation("id_livro must be a valid UUID", err)
	}
	if request.Number <= 0 {
		return nil, customError.WrapValidation("num_exemplar must be positive", nil)
	}

	c := &domain.Copy{
		ID:     uuid.New(),
		BookID: bookID,
		Number: request.Number,
	}

	err = s.CatalogRepo.CreateCopy(ctx, c)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, customError.ErrBookNotFound):
		return nil, customError.WrapBookNotFound(bookID.String())
	case errors.Is(err, customError.ErrDuplicateCopyNumber):
		return nil, customError.WrapDuplicateCopyNumber(request.Number)
	default:
		return nil, customError.WrapDatabaseError(err)
	}
}

// UpdateCopy changes a copy's number within its book
func (s *CatalogService) UpdateCopy(ctx context.Context, id uuid.UUID, request *domain.UpdateCopyRequest) (*domain.Copy, error) {
	if request.Number <= 0 {
		return nil, customError.WrapValidation("num_exemplar must be positive", nil)
	}

	c, err := s.CatalogRepo.UpdateCopyNumber(ctx, id, request.Number)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, customError.ErrCopyNotFound):
		return nil, customError.WrapCopyNotFound(id.String())
	case errors.Is(err, customError.ErrDuplicateCopyNumber):
		return nil, customError.WrapDuplicateCopyNumber(request.Number)
	default:
		return nil, customError.WrapDatabaseError(err)
	}
}

// DeleteCopy removes a copy that is not on loan, with its closed loan history
func (s *CatalogService) DeleteCopy(ctx context.Context, id uuid.UUID) error {
	err := s.CatalogRepo.DeleteCopy(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, customError.ErrCopyNotFound):
		return customError.WrapCopyNotFound(id.String())
	case errors.Is(err, customError.ErrCopyOnLoan):
		return customError.WrapCopyOnLoan(id.String())
	default:
		return customError.WrapDatabaseError(err)
	}
}
