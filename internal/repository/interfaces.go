package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/library-engine/internal/domain"
)

// LoanRepository defines the interface for loan ledger operations.
//
// Implementations must guarantee that at most one loan in an open status
// exists per copy, even under concurrent CreateIfAvailable calls.
type LoanRepository interface {
	// CreateIfAvailable inserts loan if its copy has no open loan. The loan's
	// BookID is overwritten with the copy's current owning book.
	// Returns ErrCopyNotFound or ErrCopyUnavailable.
	CreateIfAvailable(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan, or ErrLoanNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// List returns loans matching filter, newest loan date first, with display fields joined
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanView, error)

	// UpdateStatus persists loan's status and return date only if the stored
	// status still equals from. Returns ErrLoanStatusConflict otherwise.
	UpdateStatus(ctx context.Context, loan *domain.Loan, from domain.LoanStatus) error

	// Delete hard-deletes a loan, or returns ErrLoanNotFound
	Delete(ctx context.Context, id uuid.UUID) error

	// HasOpenLoan reports whether the copy currently has an open loan
	HasOpenLoan(ctx context.Context, copyID uuid.UUID) (bool, error)

	// ListPastDue returns active loans whose expected return date is before asOf
	ListPastDue(ctx context.Context, asOf time.Time) ([]*domain.Loan, error)
}

// CatalogRepository defines the read and guarded-delete operations the
// loan engine needs from the catalog.
type CatalogRepository interface {
	CreateBook(ctx context.Context, book *domain.Book) error

	// DeleteBook removes the book, its copies and every loan referencing it in one unit
	DeleteBook(ctx context.Context, id uuid.UUID) error

	CreateCopy(ctx context.Context, c *domain.Copy) error

	// GetCopy retrieves a copy, or ErrCopyNotFound
	GetCopy(ctx context.Context, id uuid.UUID) (*domain.Copy, error)

	UpdateCopyNumber(ctx context.Context, id uuid.UUID, number int) (*domain.Copy, error)

	// DeleteCopy removes a copy unless it has an open loan (ErrCopyOnLoan)
	DeleteCopy(ctx context.Context, id uuid.UUID) error

	// ListCopiesWithAvailability returns the book's copies by number ascending
	ListCopiesWithAvailability(ctx context.Context, bookID uuid.UUID) ([]*domain.CopyAvailability, error)

	BookExists(ctx context.Context, id uuid.UUID) (bool, error)
}
