package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/library-engine/internal/domain"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

const (
	dialectPostgres = "postgres"

	// openLoanIndex is the partial unique index holding the one-open-loan-per-copy invariant.
	openLoanIndex = "emprestimos_exemplar_aberto_uidx"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

// loanViewRow is the flat shape of a joined loan listing row.
type loanViewRow struct {
	domain.Loan
	BookTitle  string `db:"livro_titulo"`
	BookAuthor string `db:"livro_autor"`
	CopyNumber int    `db:"exemplar_num"`
}

func (row *loanViewRow) toView() *domain.LoanView {
	return &domain.LoanView{
		Loan: row.Loan,
		Book: domain.LoanBookSummary{
			ID:     row.BookID,
			Title:  row.BookTitle,
			Author: row.BookAuthor,
		},
		Copy: domain.LoanCopySummary{Number: row.CopyNumber},
	}
}

func openStatuses() pq.StringArray {
	statuses := make(pq.StringArray, 0, len(domain.OpenLoanStatuses))
	for _, s := range domain.OpenLoanStatuses {
		statuses = append(statuses, string(s))
	}
	return statuses
}

func (r *loanRepository) CreateIfAvailable(ctx context.Context, loan *domain.Loan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create loan: %w", err)
	}
	defer tx.Rollback()

	// FOR SHARE keeps the copy from being deleted or moved until commit.
	var bookID uuid.UUID
	err = tx.GetContext(ctx, &bookID, `
		SELECT livro_id
		FROM exemplares
		WHERE id = $1
		FOR SHARE
	`, loan.CopyID)
	if errors.Is(err, sql.ErrNoRows) {
		return customError.ErrCopyNotFound
	}
	if err != nil {
		return fmt.Errorf("lock copy: %w", err)
	}

	loan.BookID = bookID

	query := `
		INSERT INTO emprestimos (id, usuario_id, exemplar_id, livro_id, data_emprestimo, data_devolucao_prevista, data_devolucao_real, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(ctx, query,
		loan.ID,
		loan.UserID,
		loan.CopyID,
		loan.BookID,
		loan.LoanDate,
		loan.ExpectedReturnDate,
		loan.ActualReturnDate,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, openLoanIndex) {
			return customError.ErrCopyUnavailable
		}
		return fmt.Errorf("insert loan: %w", err)
	}

	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, usuario_id, exemplar_id, livro_id, data_emprestimo, data_devolucao_prevista, data_devolucao_real, status, created_at, updated_at
		FROM emprestimos
		WHERE id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanView, error) {
	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, err
	}

	var rows []*loanViewRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	views := make([]*domain.LoanView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.toView())
	}

	return views, nil
}

func buildListQuery(filter domain.LoanFilter) (string, []interface{}, error) {
	where := goqu.Ex{}
	if filter.UserID != nil {
		where["e.usuario_id"] = filter.UserID.String()
	}
	if filter.CopyID != nil {
		where["e.exemplar_id"] = filter.CopyID.String()
	}
	if filter.Status != nil {
		where["e.status"] = string(*filter.Status)
	}

	ds := goqu.Dialect(dialectPostgres).
		From(goqu.T("emprestimos").As("e")).
		Join(goqu.T("livros").As("l"), goqu.On(goqu.I("l.id").Eq(goqu.I("e.livro_id")))).
		Join(goqu.T("exemplares").As("x"), goqu.On(goqu.I("x.id").Eq(goqu.I("e.exemplar_id")))).
		Select(
			goqu.I("e.id"),
			goqu.I("e.usuario_id"),
			goqu.I("e.exemplar_id"),
			goqu.I("e.livro_id"),
			goqu.I("e.data_emprestimo"),
			goqu.I("e.data_devolucao_prevista"),
			goqu.I("e.data_devolucao_real"),
			goqu.I("e.status"),
			goqu.I("e.created_at"),
			goqu.I("e.updated_at"),
			goqu.I("l.titulo").As("livro_titulo"),
			goqu.I("l.autor").As("livro_autor"),
			goqu.I("x.num_exemplar").As("exemplar_num"),
		).
		Where(where).
		Order(goqu.I("e.data_emprestimo").Desc(), goqu.I("e.id").Desc()).
		Prepared(true)

	query, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build loan list query: %w", err)
	}

	return query, args, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, loan *domain.Loan, from domain.LoanStatus) error {
	query := `
		UPDATE emprestimos
		SET status = $3, data_devolucao_real = $4, updated_at = $5
		WHERE id = $1 AND status = $2
	`

	res, err := r.db.ExecContext(ctx, query,
		loan.ID,
		from,
		loan.Status,
		loan.ActualReturnDate,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM emprestimos WHERE id = $1)`, loan.ID); err != nil {
		return err
	}
	if !exists {
		return customError.ErrLoanNotFound
	}

	return customError.ErrLoanStatusConflict
}

func (r *loanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM emprestimos WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return customError.ErrLoanNotFound
	}

	return nil
}

func (r *loanRepository) HasOpenLoan(ctx context.Context, copyID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM emprestimos
			WHERE exemplar_id = $1 AND status = ANY($2)
		)
	`

	var open bool
	err := r.db.GetContext(ctx, &open, query, copyID, openStatuses())
	return open, err
}

func (r *loanRepository) ListPastDue(ctx context.Context, asOf time.Time) ([]*domain.Loan, error) {
	query := `
		SELECT id, usuario_id, exemplar_id, livro_id, data_emprestimo, data_devolucao_prevista, data_devolucao_real, status, created_at, updated_at
		FROM emprestimos
		WHERE status = $1 AND data_devolucao_prevista < $2
		ORDER BY data_devolucao_prevista
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, domain.LoanStatusActive, asOf)
	if err != nil {
		return nil, err
	}

	return loans, nil
}
