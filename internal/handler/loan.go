package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/middleware"
	"github.com/segyhp/library-engine/internal/service"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
	log       *zap.Logger
}

func NewLoanHandler(service *service.LoanService, log *zap.Logger) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: newValidator(),
		log:       log,
	}
}

// CreateLoan handles POST /emprestimos
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		response.FromError(w, r, h.log, customError.WrapUnauthorized(customError.ErrMissingCredentials))
		return
	}

	var req domain.CreateLoanRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), principal.UserID, &req)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	h.log.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("copy_id", loan.CopyID.String()),
		zap.String("user_id", loan.UserID.String()),
	)
	response.Created(w, loan)
}

// ListMine handles GET /emprestimos/meusEmprestimos
func (h *LoanHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		response.FromError(w, r, h.log, customError.WrapUnauthorized(customError.ErrMissingCredentials))
		return
	}

	loans, err := h.service.ListMine(r.Context(), principal.UserID)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	response.Success(w, loans)
}

// ListAll handles GET /emprestimos
func (h *LoanHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.ListLoansQuery{
		UserID: q.Get("usuario_id"),
		CopyID: q.Get("exemplarId"),
		Status: q.Get("status"),
	}

	loans, err := h.service.ListAll(r.Context(), query)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	response.Success(w, loans)
}

// UpdateLoan handles PUT /emprestimos/{id}
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	var req domain.UpdateLoanRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	loan, err := h.service.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	h.log.Info("loan status updated", zap.String("loan_id", id.String()), zap.Stringer("status", loan.Status))
	response.Success(w, loan)
}

// DeleteLoan handles DELETE /emprestimos/{id}
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	if err := h.service.DeleteLoan(r.Context(), id); err != nil {
		response.FromError(w, r, h.log, err)
		return
	}

	h.log.Info("loan deleted", zap.String("loan_id", id.String()))
	response.NoContent(w)
}
