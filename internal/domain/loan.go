package domain

import (
	"time"

	"github.com/google/uuid"
)

// Loan represents one borrowing of a physical copy.
//
// BookID is a snapshot of the copy's owning book taken when the loan was
// opened; it does not follow later changes to the copy.
type Loan struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	UserID             uuid.UUID  `json:"usuario_id" db:"usuario_id"`
	CopyID             uuid.UUID  `json:"exemplarId" db:"exemplar_id"`
	BookID             uuid.UUID  `json:"livro_id" db:"livro_id"`
	LoanDate           time.Time  `json:"data_emprestimo" db:"data_emprestimo"`
	ExpectedReturnDate time.Time  `json:"data_devolucao_prevista" db:"data_devolucao_prevista"`
	ActualReturnDate   *time.Time `json:"data_devolucao_real" db:"data_devolucao_real"`
	Status             LoanStatus `json:"status" db:"status"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// NewLoan opens an active loan of a copy at now.
func NewLoan(userID uuid.UUID, c *Copy, expectedReturn, now time.Time) *Loan {
	return &Loan{
		ID:                 uuid.New(),
		UserID:             userID,
		CopyID:             c.ID,
		BookID:             c.BookID,
		LoanDate:           now,
		ExpectedReturnDate: expectedReturn,
		Status:             LoanStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Transition moves the loan to next. Completing a loan stamps the actual
// return date with returnedAt, or now when returnedAt is nil.
func (l *Loan) Transition(next LoanStatus, returnedAt *time.Time, now time.Time) error {
	if err := l.Status.CheckTransition(next); err != nil {
		return err
	}

	l.Status = next
	l.UpdatedAt = now

	if next == LoanStatusCompleted {
		at := now
		if returnedAt != nil {
			at = *returnedAt
		}
		l.ActualReturnDate = &at
	}

	return nil
}

// IsPastDue reports whether an active loan has passed its expected return date.
func (l *Loan) IsPastDue(now time.Time) bool {
	return l.Status == LoanStatusActive && now.After(l.ExpectedReturnDate)
}

// LoanBookSummary is the book projection shown alongside a loan.
type LoanBookSummary struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Title  string    `json:"titulo" db:"titulo"`
	Author string    `json:"autor" db:"autor"`
}

// LoanCopySummary is the copy projection shown alongside a loan.
type LoanCopySummary struct {
	Number int `json:"num_exemplar" db:"num_exemplar"`
}

// LoanView is a loan with read-only display fields joined in.
type LoanView struct {
	Loan
	Book LoanBookSummary `json:"livro" db:"livro"`
	Copy LoanCopySummary `json:"exemplar" db:"exemplar"`
}

// LoanFilter narrows a loan listing. Nil fields do not constrain.
type LoanFilter struct {
	UserID *uuid.UUID
	CopyID *uuid.UUID
	Status *LoanStatus
}

// Matches reports whether loan satisfies every set field of the filter.
func (f LoanFilter) Matches(loan *Loan) bool {
	if f.UserID != nil && loan.UserID != *f.UserID {
		return false
	}
	if f.CopyID != nil && loan.CopyID != *f.CopyID {
		return false
	}
	if f.Status != nil && loan.Status != *f.Status {
		return false
	}
	return true
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	CopyID             string `json:"exemplarId" validate:"required,uuid"`
	ExpectedReturnDate string `json:"data_devolucao_prevista" validate:"required"`
}

type UpdateLoanRequest struct {
	Status           string  `json:"status" validate:"required"`
	ActualReturnDate *string `json:"data_devolucao_real,omitempty"`
}

// ListLoansQuery carries the raw admin listing filters
type ListLoansQuery struct {
	UserID string
	CopyID string
	Status string
}
