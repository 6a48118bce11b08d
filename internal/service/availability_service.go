package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

// AvailabilityService answers whether copies can be lent. Availability is
// derived from the loan ledger on every call and never stored.
type AvailabilityService struct {
	LoanRepo    repository.LoanRepository
	CatalogRepo repository.CatalogRepository
}

func NewAvailabilityService(loanRepo repository.LoanRepository, catalogRepo repository.CatalogRepository) *AvailabilityService {
	return &AvailabilityService{
		LoanRepo:    loanRepo,
		CatalogRepo: catalogRepo,
	}
}

// IsAvailable reports whether the copy has no open loan
func (s *AvailabilityService) IsAvailable(ctx context.Context, copyID uuid.UUID) (bool, error) {
	if _, err := s.CatalogRepo.GetCopy(ctx, copyID); err != nil {
		if errors.Is(err, customError.ErrCopyNotFound) {
			return false, customError.WrapCopyNotFound(copyID.String())
		}
		return false, customError.WrapDatabaseError(err)
	}

	open, err := s.LoanRepo.HasOpenLoan(ctx, copyID)
	if err != nil {
		return false, customError.WrapDatabaseError(err)
	}

	return !open, nil
}

// ListCopies returns the book's copies by number with their availability
func (s *AvailabilityService) ListCopies(ctx context.Context, bookID uuid.UUID) ([]*domain.CopyAvailability, error) {
	exists, err := s.CatalogRepo.BookExists(ctx, bookID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !exists {
		return nil, customError.WrapBookNotFound(bookID.String())
	}

	copies, err := s.CatalogRepo.ListCopiesWithAvailability(ctx, bookID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return copies, nil
}
