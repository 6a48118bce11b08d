package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/repository/memory"
	"github.com/segyhp/library-engine/internal/repository/mocks"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

func newMockLoanService() (*LoanService, *mocks.MockLoanRepository, *mocks.MockCatalogRepository) {
	mockLoanRepo := &mocks.MockLoanRepository{}
	mockCatalogRepo := &mocks.MockCatalogRepository{}

	service := NewLoanService(mockLoanRepo, mockCatalogRepo, time.UTC)
	service.now = func() time.Time { return fixedNow }

	return service, mockLoanRepo, mockCatalogRepo
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateLoan_Success(t *testing.T) {
	// Arrange
	service, mockLoanRepo, mockCatalogRepo := newMockLoanService()

	userID := uuid.New()
	bookCopy := &domain.Copy{ID: uuid.New(), BookID: uuid.New(), Number: 1}

	mockCatalogRepo.On("GetCopy", mock.Anything, bookCopy.ID).Return(bookCopy, nil)
	mockLoanRepo.On("CreateIfAvailable", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.CopyID == bookCopy.ID && loan.UserID == userID && loan.Status == domain.LoanStatusActive
	})).Return(nil)

	// Act
	loan, err := service.CreateLoan(context.Background(), userID, &domain.CreateLoanRequest{
		CopyID:             bookCopy.ID.String(),
		ExpectedReturnDate: "2024-03-24",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, bookCopy.BookID, loan.BookID)
	assert.Equal(t, fixedNow, loan.LoanDate)
	assert.Equal(t, time.Date(2024, 3, 24, 0, 0, 0, 0, time.UTC), loan.ExpectedReturnDate)
	assert.Nil(t, loan.ActualReturnDate)

	mockLoanRepo.AssertExpectations(t)
	mockCatalogRepo.AssertExpectations(t)
}

func TestCreateLoan_DueTodayIsAccepted(t *testing.T) {
	service, mockLoanRepo, mockCatalogRepo := newMockLoanService()

	bookCopy := &domain.Copy{ID: uuid.New(), BookID: uuid.New(), Number: 1}
	mockCatalogRepo.On("GetCopy", mock.Anything, bookCopy.ID).Return(bookCopy, nil)
	mockLoanRepo.On("CreateIfAvailable", mock.Anything, mock.Anything).Return(nil)

	_, err := service.CreateLoan(context.Background(), uuid.New(), &domain.CreateLoanRequest{
		CopyID:             bookCopy.ID.String(),
		ExpectedReturnDate: "2024-03-10",
	})

	assert.NoError(t, err)
}

func TestCreateLoan_InvalidRequest(t *testing.T) {
	tests := []struct {
		name    string
		request domain.CreateLoanRequest
	}{
		{name: "copy id not a uuid", request: domain.CreateLoanRequest{CopyID: "7", ExpectedReturnDate: "2024-03-24"}},
		{name: "unparseable date", request: domain.CreateLoanRequest{CopyID: uuid.NewString(), ExpectedReturnDate: "24/03/2024"}},
		{name: "due before loan date", request: domain.CreateLoanRequest{CopyID: uuid.NewString(), ExpectedReturnDate: "2024-03-09"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mockLoanRepo, mockCatalogRepo := newMockLoanService()

			_, err := service.CreateLoan(context.Background(), uuid.New(), &tt.request)

			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, customError.HTTPStatus(err))
			mockCatalogRepo.AssertNotCalled(t, "GetCopy", mock.Anything, mock.Anything)
			mockLoanRepo.AssertNotCalled(t, "CreateIfAvailable", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateLoan_RepositoryOutcomes(t *testing.T) {
	copyID := uuid.New()
	bookCopy := &domain.Copy{ID: copyID, BookID: uuid.New(), Number: 2}

	tests := []struct {
		name           string
		getCopyErr     error
		createErr      error
		expectedStatus int
		expectedErr    error
	}{
		{
			name:           "copy does not exist",
			getCopyErr:     customError.ErrCopyNotFound,
			expectedStatus: http.StatusNotFound,
			expectedErr:    customError.ErrCopyNotFound,
		},
		{
			name:           "copy deleted before insert",
			createErr:      customError.ErrCopyNotFound,
			expectedStatus: http.StatusNotFound,
			expectedErr:    customError.ErrCopyNotFound,
		},
		{
			name:           "copy already on loan",
			createErr:      customError.ErrCopyUnavailable,
			expectedStatus: http.StatusBadRequest,
			expectedErr:    customError.ErrCopyUnavailable,
		},
		{
			name:           "storage fault",
			createErr:      errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mockLoanRepo, mockCatalogRepo := newMockLoanService()

			if tt.getCopyErr != nil {
				mockCatalogRepo.On("GetCopy", mock.Anything, copyID).Return(nil, tt.getCopyErr)
			} else {
				mockCatalogRepo.On("GetCopy", mock.Anything, copyID).Return(bookCopy, nil)
				mockLoanRepo.On("CreateIfAvailable", mock.Anything, mock.Anything).Return(tt.createErr)
			}

			loan, err := service.CreateLoan(context.Background(), uuid.New(), &domain.CreateLoanRequest{
				CopyID:             copyID.String(),
				ExpectedReturnDate: "2024-04-01",
			})

			require.Error(t, err)
			assert.Nil(t, loan)
			assert.Equal(t, tt.expectedStatus, customError.HTTPStatus(err))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestListAll_Filters(t *testing.T) {
	userID := uuid.New()
	copyID := uuid.New()

	tests := []struct {
		name     string
		query    domain.ListLoansQuery
		expected domain.LoanFilter
		wantErr  bool
	}{
		{name: "no filter", query: domain.ListLoansQuery{}, expected: domain.LoanFilter{}},
		{
			name:     "all filters",
			query:    domain.ListLoansQuery{UserID: userID.String(), CopyID: copyID.String(), Status: "atrasado"},
			expected: domain.LoanFilter{UserID: &userID, CopyID: &copyID, Status: ptr(domain.LoanStatusOverdue)},
		},
		{name: "bad user id", query: domain.ListLoansQuery{UserID: "abc"}, wantErr: true},
		{name: "bad copy id", query: domain.ListLoansQuery{CopyID: "abc"}, wantErr: true},
		{name: "unknown status", query: domain.ListLoansQuery{Status: "perdido"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mockLoanRepo, _ := newMockLoanService()

			if !tt.wantErr {
				mockLoanRepo.On("List", mock.Anything, tt.expected).Return([]*domain.LoanView{}, nil)
			}

			loans, err := service.ListAll(context.Background(), tt.query)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, customError.HTTPStatus(err))
				mockLoanRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, loans)
			mockLoanRepo.AssertExpectations(t)
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	loanID := uuid.New()
	returned := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		stored         domain.LoanStatus
		request        domain.UpdateLoanRequest
		updateErr      error
		expectedStatus int
		expectedReturn *time.Time
	}{
		{
			name:           "complete without date uses now",
			stored:         domain.LoanStatusActive,
			request:        domain.UpdateLoanRequest{Status: "concluido"},
			expectedReturn: &fixedNow,
		},
		{
			name:           "complete with supplied date",
			stored:         domain.LoanStatusOverdue,
			request:        domain.UpdateLoanRequest{Status: "concluido", ActualReturnDate: ptr("2024-03-08")},
			expectedReturn: &returned,
		},
		{
			name:    "mark overdue leaves return date empty",
			stored:  domain.LoanStatusActive,
			request: domain.UpdateLoanRequest{Status: "atrasado", ActualReturnDate: ptr("2024-03-08")},
		},
		{
			name:           "reopening a completed loan",
			stored:         domain.LoanStatusCompleted,
			request:        domain.UpdateLoanRequest{Status: "ativo"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "same status",
			stored:         domain.LoanStatusOverdue,
			request:        domain.UpdateLoanRequest{Status: "atrasado"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "concurrent change",
			stored:         domain.LoanStatusActive,
			request:        domain.UpdateLoanRequest{Status: "concluido"},
			updateErr:      customError.ErrLoanStatusConflict,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "storage fault",
			stored:         domain.LoanStatusActive,
			request:        domain.UpdateLoanRequest{Status: "concluido"},
			updateErr:      errors.New("deadlock detected"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mockLoanRepo, _ := newMockLoanService()

			stored := &domain.Loan{ID: loanID, Status: tt.stored}
			mockLoanRepo.On("GetByID", mock.Anything, loanID).Return(stored, nil)
			mockLoanRepo.On("UpdateStatus", mock.Anything, mock.Anything, tt.stored).Return(tt.updateErr).Maybe()

			loan, err := service.UpdateStatus(context.Background(), loanID, &tt.request)

			if tt.expectedStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.expectedStatus, customError.HTTPStatus(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.LoanStatus(tt.request.Status), loan.Status)
			if tt.expectedReturn == nil {
				assert.Nil(t, loan.ActualReturnDate)
			} else {
				require.NotNil(t, loan.ActualReturnDate)
				assert.True(t, tt.expectedReturn.Equal(*loan.ActualReturnDate))
			}
			mockLoanRepo.AssertExpectations(t)
		})
	}
}

func TestUpdateStatus_RejectsBeforeLookup(t *testing.T) {
	service, mockLoanRepo, _ := newMockLoanService()

	_, err := service.UpdateStatus(context.Background(), uuid.New(), &domain.UpdateLoanRequest{Status: "perdido"})
	require.Error(t, err)
	assert.ErrorIs(t, err, customError.ErrInvalidStatus)

	_, err = service.UpdateStatus(context.Background(), uuid.New(), &domain.UpdateLoanRequest{
		Status:           "concluido",
		ActualReturnDate: ptr("yesterday"),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, customError.HTTPStatus(err))

	mockLoanRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	service, mockLoanRepo, _ := newMockLoanService()
	id := uuid.New()

	mockLoanRepo.On("GetByID", mock.Anything, id).Return(nil, customError.ErrLoanNotFound)

	_, err := service.UpdateStatus(context.Background(), id, &domain.UpdateLoanRequest{Status: "concluido"})

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, customError.HTTPStatus(err))
}

func TestDeleteLoan(t *testing.T) {
	service, mockLoanRepo, _ := newMockLoanService()
	existing, missing := uuid.New(), uuid.New()

	mockLoanRepo.On("Delete", mock.Anything, existing).Return(nil)
	mockLoanRepo.On("Delete", mock.Anything, missing).Return(customError.ErrLoanNotFound)

	assert.NoError(t, service.DeleteLoan(context.Background(), existing))

	err := service.DeleteLoan(context.Background(), missing)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, customError.HTTPStatus(err))
}

func TestMarkOverdue(t *testing.T) {
	service, mockLoanRepo, _ := newMockLoanService()

	loans := []*domain.Loan{
		{ID: uuid.New(), Status: domain.LoanStatusActive},
		{ID: uuid.New(), Status: domain.LoanStatusActive},
		{ID: uuid.New(), Status: domain.LoanStatusActive},
	}
	cutoff := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	mockLoanRepo.On("ListPastDue", mock.Anything, cutoff).Return(loans, nil)
	mockLoanRepo.On("UpdateStatus", mock.Anything, loans[0], domain.LoanStatusActive).Return(nil)
	mockLoanRepo.On("UpdateStatus", mock.Anything, loans[1], domain.LoanStatusActive).Return(customError.ErrLoanStatusConflict)
	mockLoanRepo.On("UpdateStatus", mock.Anything, loans[2], domain.LoanStatusActive).Return(nil)

	result, err := service.MarkOverdue(context.Background(), fixedNow)

	require.NoError(t, err)
	assert.Equal(t, OverdueSweepResult{Candidates: 3, Marked: 2, Skipped: 1}, result)
	assert.Equal(t, domain.LoanStatusOverdue, loans[0].Status)
	mockLoanRepo.AssertExpectations(t)
}

func TestMarkOverdue_StopsOnStorageFault(t *testing.T) {
	service, mockLoanRepo, _ := newMockLoanService()

	mockLoanRepo.On("ListPastDue", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := service.MarkOverdue(context.Background(), fixedNow)

	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, customError.HTTPStatus(err))
}

// Scenarios over the in-memory backend

type ledgerFixture struct {
	store        *memory.Store
	loans        *LoanService
	availability *AvailabilityService
	book         *domain.Book
	copies       []*domain.Copy
}

func newLedgerFixture(t *testing.T, copies int) *ledgerFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	fixture := &ledgerFixture{
		store:        store,
		loans:        NewLoanService(store, store, time.UTC),
		availability: NewAvailabilityService(store, store),
		book:         &domain.Book{ID: uuid.New(), Title: "Dom Casmurro", Author: "Machado de Assis"},
	}
	fixture.loans.now = func() time.Time { return fixedNow }

	require.NoError(t, store.CreateBook(ctx, fixture.book))
	for i := 1; i <= copies; i++ {
		c := &domain.Copy{ID: uuid.New(), BookID: fixture.book.ID, Number: i}
		require.NoError(t, store.CreateCopy(ctx, c))
		fixture.copies = append(fixture.copies, c)
	}

	return fixture
}

func (f *ledgerFixture) borrow(t *testing.T, userID uuid.UUID, c *domain.Copy) *domain.Loan {
	t.Helper()
	loan, err := f.loans.CreateLoan(context.Background(), userID, &domain.CreateLoanRequest{
		CopyID:             c.ID.String(),
		ExpectedReturnDate: "2024-03-24",
	})
	require.NoError(t, err)
	return loan
}

func (f *ledgerFixture) available(t *testing.T, c *domain.Copy) bool {
	t.Helper()
	ok, err := f.availability.IsAvailable(context.Background(), c.ID)
	require.NoError(t, err)
	return ok
}

func TestLoanLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 1)
	bookCopy := f.copies[0]
	alice, bob := uuid.New(), uuid.New()

	assert.True(t, f.available(t, bookCopy))

	loan := f.borrow(t, alice, bookCopy)
	assert.Equal(t, f.book.ID, loan.BookID)
	assert.False(t, f.available(t, bookCopy))

	_, err := f.loans.CreateLoan(ctx, bob, &domain.CreateLoanRequest{
		CopyID:             bookCopy.ID.String(),
		ExpectedReturnDate: "2024-03-24",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, customError.ErrCopyUnavailable)

	_, err = f.loans.UpdateStatus(ctx, loan.ID, &domain.UpdateLoanRequest{Status: "atrasado"})
	require.NoError(t, err)
	assert.False(t, f.available(t, bookCopy))

	completed, err := f.loans.UpdateStatus(ctx, loan.ID, &domain.UpdateLoanRequest{Status: "concluido"})
	require.NoError(t, err)
	require.NotNil(t, completed.ActualReturnDate)
	assert.Equal(t, fixedNow, *completed.ActualReturnDate)
	assert.True(t, f.available(t, bookCopy))

	second := f.borrow(t, bob, bookCopy)
	assert.NotEqual(t, loan.ID, second.ID)
	assert.False(t, f.available(t, bookCopy))
}

func TestCreateLoan_ConcurrentRequestsForOneCopy(t *testing.T) {
	f := newLedgerFixture(t, 1)
	bookCopy := f.copies[0]

	const workers = 50
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		successes   int
		unavailable int
	)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := f.loans.CreateLoan(context.Background(), uuid.New(), &domain.CreateLoanRequest{
				CopyID:             bookCopy.ID.String(),
				ExpectedReturnDate: "2024-03-24",
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, customError.ErrCopyUnavailable):
				unavailable++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, unavailable)

	open, err := f.loans.ListAll(context.Background(), domain.ListLoansQuery{CopyID: bookCopy.ID.String()})
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestListMine_NewestFirstAndRepeatable(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 3)
	reader, other := uuid.New(), uuid.New()

	for i, c := range f.copies {
		f.loans.now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Hour) }
		f.borrow(t, reader, c)
	}

	first, err := f.loans.ListMine(ctx, reader)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, 3, first[0].Copy.Number)
	assert.Equal(t, 1, first[2].Copy.Number)
	assert.Equal(t, "Dom Casmurro", first[0].Book.Title)
	assert.Equal(t, "Machado de Assis", first[0].Book.Author)

	second, err := f.loans.ListMine(ctx, reader)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	none, err := f.loans.ListMine(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMarkOverdue_OnlyPastDueActiveLoans(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 3)

	due := func(c *domain.Copy, date string) *domain.Loan {
		loan, err := f.loans.CreateLoan(ctx, uuid.New(), &domain.CreateLoanRequest{CopyID: c.ID.String(), ExpectedReturnDate: date})
		require.NoError(t, err)
		return loan
	}

	late := due(f.copies[0], "2024-03-11")
	today := due(f.copies[1], "2024-03-12")
	returned := due(f.copies[2], "2024-03-11")
	_, err := f.loans.UpdateStatus(ctx, returned.ID, &domain.UpdateLoanRequest{Status: "concluido"})
	require.NoError(t, err)

	result, err := f.loans.MarkOverdue(ctx, time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, OverdueSweepResult{Candidates: 1, Marked: 1}, result)

	for id, expected := range map[uuid.UUID]domain.LoanStatus{
		late.ID:     domain.LoanStatusOverdue,
		today.ID:    domain.LoanStatusActive,
		returned.ID: domain.LoanStatusCompleted,
	} {
		loan, err := f.store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, expected, loan.Status)
	}

	again, err := f.loans.MarkOverdue(ctx, time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, OverdueSweepResult{}, again)
}
