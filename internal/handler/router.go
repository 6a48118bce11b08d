package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/auth"
	"github.com/segyhp/library-engine/internal/middleware"
	"github.com/segyhp/library-engine/pkg/response"
)

// Handlers groups what NewRouter mounts
type Handlers struct {
	Loans   *LoanHandler
	Catalog *CatalogHandler
	Health  *HealthHandler
}

// NewRouter wires every route with its access rule. Authentication is
// applied per route so routes sharing a path keep distinct roles.
func NewRouter(h Handlers, tokens middleware.TokenParser, log *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.RecoverMiddleware(log), response.LoggingMiddleware(log))

	authenticate := middleware.Authenticate(tokens, log)
	adminOnly := middleware.RequireRole(auth.RoleAdmin, log)

	user := func(fn http.HandlerFunc) http.Handler {
		return authenticate(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return authenticate(adminOnly(fn))
	}

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)

	// Loans
	router.Handle("/emprestimos/meusEmprestimos", user(h.Loans.ListMine)).Methods(http.MethodGet)
	router.Handle("/emprestimos", user(h.Loans.CreateLoan)).Methods(http.MethodPost)
	router.Handle("/emprestimos", admin(h.Loans.ListAll)).Methods(http.MethodGet)
	router.Handle("/emprestimos/{id}", admin(h.Loans.UpdateLoan)).Methods(http.MethodPut)
	router.Handle("/emprestimos/{id}", admin(h.Loans.DeleteLoan)).Methods(http.MethodDelete)

	// Copies
	router.Handle("/exemplares", user(h.Catalog.ListCopies)).Methods(http.MethodGet)
	router.Handle("/exemplares/{id}/disponibilidade", user(h.Catalog.Availability)).Methods(http.MethodGet)
	router.Handle("/exemplares", admin(h.Catalog.CreateCopy)).Methods(http.MethodPost)
	router.Handle("/exemplares/{id}", admin(h.Catalog.UpdateCopy)).Methods(http.MethodPut)
	router.Handle("/exemplares/{id}", admin(h.Catalog.DeleteCopy)).Methods(http.MethodDelete)

	// Books
	router.Handle("/livros", admin(h.Catalog.CreateBook)).Methods(http.MethodPost)
	router.Handle("/livros/{id}", admin(h.Catalog.DeleteBook)).Methods(http.MethodDelete)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}
