package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrCopyNotFound        = errors.New("copy not found")
	ErrBookNotFound        = errors.New("book not found")
	ErrCopyUnavailable     = errors.New("copy is not available for loan")
	ErrCopyOnLoan          = errors.New("copy is currently on loan")
	ErrDuplicateCopyNumber = errors.New("copy number already used for this book")
	ErrInvalidStatus       = errors.New("invalid loan status")
	ErrInvalidTransition   = errors.New("invalid loan status transition")
	ErrLoanStatusConflict  = errors.New("loan status changed concurrently")
	ErrInvalidReturnDate   = errors.New("invalid return date")
	ErrMissingCredentials  = errors.New("missing credentials")
	ErrInvalidCredentials  = errors.New("invalid or expired credentials")
	ErrInsufficientRole    = errors.New("insufficient role")
	ErrSweepAlreadyRunning = errors.New("overdue sweep already running")
)

// Kind classifies an error for the API boundary.
type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindBusinessRule
	KindUnauthorized
	KindForbidden
	KindNotFound
)

// BusinessError represents a classified error with a client-facing message.
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeLoanNotFound           = "LOAN_NOT_FOUND"
	ErrCodeCopyNotFound           = "COPY_NOT_FOUND"
	ErrCodeBookNotFound           = "BOOK_NOT_FOUND"
	ErrCodeCopyUnavailable        = "COPY_UNAVAILABLE"
	ErrCodeCopyOnLoan             = "COPY_ON_LOAN"
	ErrCodeDuplicateCopyNumber    = "DUPLICATE_COPY_NUMBER"
	ErrCodeInvalidStatus          = "INVALID_STATUS"
	ErrCodeInvalidTransition      = "INVALID_STATUS_TRANSITION"
	ErrCodeLoanStatusConflict     = "LOAN_STATUS_CONFLICT"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
	InternalServerErrorMessage    = "internal server error"
	genericDatabaseFailureMessage = "database operation failed"
)

func WrapValidation(message string, err error) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeValidation, message, err)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapCopyNotFound(copyID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeCopyNotFound,
		fmt.Sprintf("Copy with ID %s not found", copyID),
		ErrCopyNotFound,
	)
}

func WrapBookNotFound(bookID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeBookNotFound,
		fmt.Sprintf("Book with ID %s not found", bookID),
		ErrBookNotFound,
	)
}

func WrapCopyUnavailable(copyID string) *BusinessError {
	return NewBusinessError(
		KindBusinessRule,
		ErrCodeCopyUnavailable,
		fmt.Sprintf("Copy %s is not available for loan", copyID),
		ErrCopyUnavailable,
	)
}

func WrapCopyOnLoan(copyID string) *BusinessError {
	return NewBusinessError(
		KindBusinessRule,
		ErrCodeCopyOnLoan,
		fmt.Sprintf("Copy %s cannot be deleted while it is on loan", copyID),
		ErrCopyOnLoan,
	)
}

func WrapDuplicateCopyNumber(number int) *BusinessError {
	return NewBusinessError(
		KindBusinessRule,
		ErrCodeDuplicateCopyNumber,
		fmt.Sprintf("Copy number %d already exists for this book", number),
		ErrDuplicateCopyNumber,
	)
}

func WrapInvalidStatus(status string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidStatus,
		fmt.Sprintf("Invalid loan status: %q", status),
		ErrInvalidStatus,
	)
}

func WrapInvalidTransition(from, to string) *BusinessError {
	return NewBusinessError(
		KindBusinessRule,
		ErrCodeInvalidTransition,
		fmt.Sprintf("Loan status cannot change from %s to %s", from, to),
		ErrInvalidTransition,
	)
}

func WrapLoanStatusConflict(loanID string) *BusinessError {
	return NewBusinessError(
		KindBusinessRule,
		ErrCodeLoanStatusConflict,
		fmt.Sprintf("Loan %s was modified concurrently, retry the request", loanID),
		ErrLoanStatusConflict,
	)
}

func WrapUnauthorized(err error) *BusinessError {
	return NewBusinessError(KindUnauthorized, ErrCodeUnauthorized, "authentication required", err)
}

func WrapForbidden() *BusinessError {
	return NewBusinessError(KindForbidden, ErrCodeForbidden, "access restricted to administrators", ErrInsufficientRole)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindPersistence,
		ErrCodeDatabaseError,
		genericDatabaseFailureMessage,
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		KindPersistence,
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// HTTPStatus maps an error to the status code the API answers with.
// Unclassified errors are treated as persistence faults.
func HTTPStatus(err error) int {
	var be *BusinessError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}

	switch be.Kind {
	case KindValidation, KindBusinessRule:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show a client. Persistence
// faults never leak their cause.
func PublicMessage(err error) string {
	var be *BusinessError
	if !errors.As(err, &be) || be.Kind == KindPersistence {
		return InternalServerErrorMessage
	}
	return be.Message
}
