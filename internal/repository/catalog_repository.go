package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-engine/internal/domain"
	customError "github.com/segyhp/library-engine/pkg/errors"
)

const copyNumberConstraint = "exemplares_livro_num_key"

type catalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateBook(ctx context.Context, book *domain.Book) error {
	query := `
		INSERT INTO livros (id, titulo, autor)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query, book.ID, book.Title, book.Author)
	return err
}

func (r *catalogRepository) BookExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM livros WHERE id = $1)`, id)
	return exists, err
}

func (r *catalogRepository) DeleteBook(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete book: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.GetContext(ctx, &locked, `SELECT id FROM livros WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return customError.ErrBookNotFound
	}
	if err != nil {
		return fmt.Errorf("lock book: %w", err)
	}

	// Locking the copies first makes a concurrent loan create wait on them,
	// then see them gone.
	if _, err = tx.ExecContext(ctx, `SELECT id FROM exemplares WHERE livro_id = $1 FOR UPDATE`, id); err != nil {
		return fmt.Errorf("lock copies: %w", err)
	}

	steps := []struct {
		name  string
		query string
	}{
		{"delete loans", `
			DELETE FROM emprestimos
			WHERE livro_id = $1
			   OR exemplar_id IN (SELECT id FROM exemplares WHERE livro_id = $1)
		`},
		{"delete copies", `DELETE FROM exemplares WHERE livro_id = $1`},
		{"delete book", `DELETE FROM livros WHERE id = $1`},
	}

	for _, step := range steps {
		if _, err = tx.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return tx.Commit()
}

func (r *catalogRepository) CreateCopy(ctx context.Context, c *domain.Copy) error {
	query := `
		INSERT INTO exemplares (id, livro_id, num_exemplar)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.BookID, c.Number)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, copyNumberConstraint):
		return customError.ErrDuplicateCopyNumber
	case isForeignKeyViolation(err):
		return customError.ErrBookNotFound
	default:
		return err
	}
}

func (r *catalogRepository) GetCopy(ctx context.Context, id uuid.UUID) (*domain.Copy, error) {
	var c domain.Copy
	err := r.db.GetContext(ctx, &c, `SELECT id, livro_id, num_exemplar FROM exemplares WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.ErrCopyNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *catalogRepository) UpdateCopyNumber(ctx context.Context, id uuid.UUID, number int) (*domain.Copy, error) {
	query := `
		UPDATE exemplares
		SET num_exemplar = $2
		WHERE id = $1
		RETURNING id, livro_id, num_exemplar
	`

	var c domain.Copy
	err := r.db.GetContext(ctx, &c, query, id, number)
	switch {
	case err == nil:
		return &c, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, customError.ErrCopyNotFound
	case isUniqueViolation(err, copyNumberConstraint):
		return nil, customError.ErrDuplicateCopyNumber
	default:
		return nil, err
	}
}

// DeleteCopy removes a copy and its closed loan history. The open-loan check
// and the delete share one transaction holding the copy row lock.
func (r *catalogRepository) DeleteCopy(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete copy: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.GetContext(ctx, &locked, `SELECT id FROM exemplares WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return customError.ErrCopyNotFound
	}
	if err != nil {
		return fmt.Errorf("lock copy: %w", err)
	}

	var open bool
	err = tx.GetContext(ctx, &open, `
		SELECT EXISTS (
			SELECT 1 FROM emprestimos WHERE exemplar_id = $1 AND status = ANY($2)
		)
	`, id, openStatuses())
	if err != nil {
		return fmt.Errorf("check open loans: %w", err)
	}
	if open {
		return customError.ErrCopyOnLoan
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM emprestimos WHERE exemplar_id = $1`, id); err != nil {
		return fmt.Errorf("delete loan history: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM exemplares WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete copy: %w", err)
	}

	return tx.Commit()
}

func (r *catalogRepository) ListCopiesWithAvailability(ctx context.Context, bookID uuid.UUID) ([]*domain.CopyAvailability, error) {
	query := `
		SELECT
			x.id,
			x.livro_id,
			x.num_exemplar,
			l.titulo AS "livro.titulo",
			NOT EXISTS (
				SELECT 1 FROM emprestimos e
				WHERE e.exemplar_id = x.id AND e.status = ANY($2)
			) AS disponivel
		FROM exemplares x
		JOIN livros l ON l.id = x.livro_id
		WHERE x.livro_id = $1
		ORDER BY x.num_exemplar ASC
	`

	copies := make([]*domain.CopyAvailability, 0)
	if err := r.db.SelectContext(ctx, &copies, query, bookID, openStatuses()); err != nil {
		return nil, err
	}

	return copies, nil
}
