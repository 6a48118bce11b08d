package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/pkg/utils"
)

type LoanService struct {
	LoanRepo    repository.LoanRepository
	CatalogRepo repository.CatalogRepository
	location    *time.Location
	now         func() time.Time
}

// NewLoanService creates the loan ledger. Calendar dates supplied by clients
// and the overdue cut-off are interpreted in location.
func NewLoanService(
	loanRepo repository.LoanRepository,
	catalogRepo repository.CatalogRepository,
	location *time.Location,
) *LoanService {
	if location == nil {
		location = time.UTC
	}

	return &LoanService{
		LoanRepo:    loanRepo,
		CatalogRepo: catalogRepo,
		location:    location,
		now:         time.Now,
	}
}

// OverdueSweepResult counts what one MarkOverdue pass did
type OverdueSweepResult struct {
	Candidates int
	Marked     int
	Skipped    int
}

// CreateLoan opens a loan of the requested copy for userID
func (s *LoanService) CreateLoan(ctx context.Context, userID uuid.UUID, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	copyID, err := uuid.Parse(request.CopyID)
	if err != nil {
		return nil, customError.WrapValidation("exemplarId must be a valid UUID", err)
	}

	now := s.now()

	expectedReturn, err := utils.ParseDate(request.ExpectedReturnDate, s.location)
	if err != nil {
		return nil, customError.WrapValidation("data_devolucao_prevista must be YYYY-MM-DD or RFC 3339", err)
	}
	if utils.IsDateOverdue(expectedReturn.In(s.location), now) {
		return nil, customError.WrapValidation("data_devolucao_prevista cannot be before the loan date", customError.ErrInvalidReturnDate)
	}

	bookCopy, err := s.CatalogRepo.GetCopy(ctx, copyID)
	if errors.Is(err, customError.ErrCopyNotFound) {
		return nil, customError.WrapCopyNotFound(copyID.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	loan := domain.NewLoan(userID, bookCopy, expectedReturn, now)

	// Availability is decided by the repository at insert time, not here.
	if err := s.LoanRepo.CreateIfAvailable(ctx, loan); err != nil {
		switch {
		case errors.Is(err, customError.ErrCopyNotFound):
			return nil, customError.WrapCopyNotFound(copyID.String())
		case errors.Is(err, customError.ErrCopyUnavailable):
			return nil, customError.WrapCopyUnavailable(copyID.String())
		default:
			return nil, customError.WrapDatabaseError(err)
		}
	}

	return loan, nil
}

// ListMine returns the caller's loans, newest first
func (s *LoanService) ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.LoanView, error) {
	loans, err := s.LoanRepo.List(ctx, domain.LoanFilter{UserID: &userID})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// ListAll returns every loan matching the query, newest first
func (s *LoanService) ListAll(ctx context.Context, query domain.ListLoansQuery) ([]*domain.LoanView, error) {
	filter, err := buildLoanFilter(query)
	if err != nil {
		return nil, err
	}

	loans, err := s.LoanRepo.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

func buildLoanFilter(query domain.ListLoansQuery) (domain.LoanFilter, error) {
	var filter domain.LoanFilter

	if query.UserID != "" {
		id, err := uuid.Parse(query.UserID)
		if err != nil {
			return filter, customError.WrapValidation("usuario_id must be a valid UUID", err)
		}
		filter.UserID = &id
	}

	if query.CopyID != "" {
		id, err := uuid.Parse(query.CopyID)
		if err != nil {
			return filter, customError.WrapValidation("exemplarId must be a valid UUID", err)
		}
		filter.CopyID = &id
	}

	if query.Status != "" {
		status, err := domain.ParseLoanStatus(query.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

// UpdateStatus moves a loan to the requested status
func (s *LoanService) UpdateStatus(ctx context.Context, id uuid.UUID, request *domain.UpdateLoanRequest) (*domain.Loan, error) {
	next, err := domain.ParseLoanStatus(request.Status)
	if err != nil {
		return nil, err
	}

	var returnedAt *time.Time
	if request.ActualReturnDate != nil && *request.ActualReturnDate != "" {
		at, err := utils.ParseDate(*request.ActualReturnDate, s.location)
		if err != nil {
			return nil, customError.WrapValidation("data_devolucao_real must be YYYY-MM-DD or RFC 3339", err)
		}
		returnedAt = &at
	}

	loan, err := s.LoanRepo.GetByID(ctx, id)
	if errors.Is(err, customError.ErrLoanNotFound) {
		return nil, customError.WrapLoanNotFound(id.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	if err := s.transition(ctx, loan, next, returnedAt); err != nil {
		return nil, err
	}

	return loan, nil
}

// transition applies next to loan and persists it only if nobody changed
// the stored status in the meantime.
func (s *LoanService) transition(ctx context.Context, loan *domain.Loan, next domain.LoanStatus, returnedAt *time.Time) error {
	from := loan.Status
	if err := loan.Transition(next, returnedAt, s.now()); err != nil {
		return err
	}

	err := s.LoanRepo.UpdateStatus(ctx, loan, from)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, customError.ErrLoanNotFound):
		return customError.WrapLoanNotFound(loan.ID.String())
	case errors.Is(err, customError.ErrLoanStatusConflict):
		return customError.WrapLoanStatusConflict(loan.ID.String())
	default:
		return customError.WrapDatabaseError(err)
	}
}

// DeleteLoan hard-deletes a loan
func (s *LoanService) DeleteLoan(ctx context.Context, id uuid.UUID) error {
	err := s.LoanRepo.Delete(ctx, id)
	if errors.Is(err, customError.ErrLoanNotFound) {
		return customError.WrapLoanNotFound(id.String())
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

// MarkOverdue moves every active loan whose expected return day has passed
// to atrasado. Loans changed by another writer during the pass are skipped.
func (s *LoanService) MarkOverdue(ctx context.Context, now time.Time) (OverdueSweepResult, error) {
	var result OverdueSweepResult

	cutoff := utils.StartOfDay(now.In(s.location))

	loans, err := s.LoanRepo.ListPastDue(ctx, cutoff)
	if err != nil {
		return result, customError.WrapDatabaseError(err)
	}
	result.Candidates = len(loans)

	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := s.transition(ctx, loan, domain.LoanStatusOverdue, nil)
		switch {
		case err == nil:
			result.Marked++
		case errors.Is(err, customError.ErrLoanStatusConflict),
			errors.Is(err, customError.ErrLoanNotFound),
			errors.Is(err, customError.ErrInvalidTransition):
			result.Skipped++
		default:
			return result, err
		}
	}

	return result, nil
}
