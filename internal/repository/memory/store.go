// Package memory is an in-process implementation of the loan and catalog
// repositories. A single mutex serialises every write, so the
// check-then-insert of a loan is atomic.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/library-engine/internal/domain"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

// Store holds books, copies and loans in memory.
type Store struct {
	mu     sync.RWMutex
	books  map[uuid.UUID]domain.Book
	copies map[uuid.UUID]domain.Copy
	loans  map[uuid.UUID]domain.Loan

	// openByCopy maps a copy to its open loan, if any.
	openByCopy map[uuid.UUID]uuid.UUID
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		books:  make(map[uuid.UUID]domain.Book),
		copies: make(map[uuid.UUID]domain.Copy),
		loans:  make(map[uuid.UUID]domain.Loan),

		openByCopy: make(map[uuid.UUID]uuid.UUID),
	}
}

// The helpers below must be called with mu held.

func (s *Store) hasOpenLoanLocked(copyID uuid.UUID) bool {
	_, ok := s.openByCopy[copyID]
	return ok
}

// putLoanLocked stores loan and keeps openByCopy in step with its status.
func (s *Store) putLoanLocked(loan domain.Loan) {
	s.loans[loan.ID] = loan
	if loan.Status.IsOpen() {
		s.openByCopy[loan.CopyID] = loan.ID
		return
	}
	s.releaseLocked(loan)
}

func (s *Store) deleteLoanLocked(loan domain.Loan) {
	delete(s.loans, loan.ID)
	s.releaseLocked(loan)
}

func (s *Store) releaseLocked(loan domain.Loan) {
	if s.openByCopy[loan.CopyID] == loan.ID {
		delete(s.openByCopy, loan.CopyID)
	}
}

// Loan ledger

func (s *Store) CreateIfAvailable(ctx context.Context, loan *domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.copies[loan.CopyID]
	if !ok {
		return customError.ErrCopyNotFound
	}
	if s.hasOpenLoanLocked(loan.CopyID) {
		return customError.ErrCopyUnavailable
	}

	loan.BookID = c.BookID
	s.putLoanLocked(*loan)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, customError.ErrLoanNotFound
	}
	return &loan, nil
}

func (s *Store) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]*domain.LoanView, 0)
	for _, loan := range s.loans {
		if !filter.Matches(&loan) {
			continue
		}

		view := &domain.LoanView{Loan: loan}
		if book, ok := s.books[loan.BookID]; ok {
			view.Book = domain.LoanBookSummary{ID: book.ID, Title: book.Title, Author: book.Author}
		}
		if c, ok := s.copies[loan.CopyID]; ok {
			view.Copy = domain.LoanCopySummary{Number: c.Number}
		}
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].LoanDate.Equal(views[j].LoanDate) {
			return views[i].ID.String() > views[j].ID.String()
		}
		return views[i].LoanDate.After(views[j].LoanDate)
	})

	return views, nil
}

func (s *Store) UpdateStatus(ctx context.Context, loan *domain.Loan, from domain.LoanStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.loans[loan.ID]
	if !ok {
		return customError.ErrLoanNotFound
	}
	if stored.Status != from {
		return customError.ErrLoanStatusConflict
	}

	stored.Status = loan.Status
	stored.ActualReturnDate = loan.ActualReturnDate
	stored.UpdatedAt = loan.UpdatedAt
	s.putLoanLocked(stored)
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[id]
	if !ok {
		return customError.ErrLoanNotFound
	}
	s.deleteLoanLocked(loan)
	return nil
}

func (s *Store) HasOpenLoan(ctx context.Context, copyID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.hasOpenLoanLocked(copyID), nil
}

func (s *Store) ListPastDue(ctx context.Context, asOf time.Time) ([]*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var loans []*domain.Loan
	for _, loan := range s.loans {
		if loan.IsPastDue(asOf) {
			l := loan
			loans = append(loans, &l)
		}
	}

	sort.Slice(loans, func(i, j int) bool {
		return loans[i].ExpectedReturnDate.Before(loans[j].ExpectedReturnDate)
	})

	return loans, nil
}

// Catalog

func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[book.ID] = *book
	return nil
}

func (s *Store) BookExists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.books[id]
	return ok, nil
}

func (s *Store) DeleteBook(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return customError.ErrBookNotFound
	}

	for _, loan := range s.loans {
		c, ok := s.copies[loan.CopyID]
		if loan.BookID == id || (ok && c.BookID == id) {
			s.deleteLoanLocked(loan)
		}
	}
	for copyID, c := range s.copies {
		if c.BookID == id {
			delete(s.copies, copyID)
		}
	}
	delete(s.books, id)
	return nil
}

func (s *Store) numberTakenLocked(bookID uuid.UUID, number int, except uuid.UUID) bool {
	for id, c := range s.copies {
		if id != except && c.BookID == bookID && c.Number == number {
			return true
		}
	}
	return false
}

func (s *Store) CreateCopy(ctx context.Context, c *domain.Copy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[c.BookID]; !ok {
		return customError.ErrBookNotFound
	}
	if s.numberTakenLocked(c.BookID, c.Number, uuid.Nil) {
		return customError.ErrDuplicateCopyNumber
	}

	s.copies[c.ID] = *c
	return nil
}

func (s *Store) GetCopy(ctx context.Context, id uuid.UUID) (*domain.Copy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.copies[id]
	if !ok {
		return nil, customError.ErrCopyNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCopyNumber(ctx context.Context, id uuid.UUID, number int) (*domain.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.copies[id]
	if !ok {
		return nil, customError.ErrCopyNotFound
	}
	if s.numberTakenLocked(c.BookID, number, id) {
		return nil, customError.ErrDuplicateCopyNumber
	}

	c.Number = number
	s.copies[id] = c
	return &c, nil
}

func (s *Store) DeleteCopy(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.copies[id]; !ok {
		return customError.ErrCopyNotFound
	}
	if s.hasOpenLoanLocked(id) {
		return customError.ErrCopyOnLoan
	}

	for _, loan := range s.loans {
		if loan.CopyID == id {
			s.deleteLoanLocked(loan)
		}
	}
	delete(s.copies, id)
	return nil
}

func (s *Store) ListCopiesWithAvailability(ctx context.Context, bookID uuid.UUID) ([]*domain.CopyAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	title := s.books[bookID].Title
	copies := make([]*domain.CopyAvailability, 0)
	for _, c := range s.copies {
		if c.BookID != bookID {
			continue
		}
		copies = append(copies, &domain.CopyAvailability{
			Copy:      c,
			Book:      domain.CopyBookSummary{Title: title},
			Available: !s.hasOpenLoanLocked(c.ID),
		})
	}

	sort.Slice(copies, func(i, j int) bool {
		return copies[i].Number < copies[j].Number
	})

	return copies, nil
}
