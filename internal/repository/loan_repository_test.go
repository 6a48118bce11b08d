package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/library-engine/internal/domain"
)

func TestBuildListQuery(t *testing.T) {
	t.Run("no filter lists everything newest first", func(t *testing.T) {
		query, args, err := buildListQuery(domain.LoanFilter{})
		require.NoError(t, err)

		assert.Empty(t, args)
		assert.NotContains(t, query, "WHERE")
		assert.Contains(t, query, `FROM "emprestimos" AS "e"`)
		assert.Contains(t, query, `ORDER BY "e"."data_emprestimo" DESC, "e"."id" DESC`)
		assert.Contains(t, query, `"l"."titulo" AS "livro_titulo"`)
	})

	t.Run("every filter becomes a bound parameter", func(t *testing.T) {
		userID, copyID := uuid.New(), uuid.New()
		status := domain.LoanStatusOverdue

		query, args, err := buildListQuery(domain.LoanFilter{UserID: &userID, CopyID: &copyID, Status: &status})
		require.NoError(t, err)

		assert.Contains(t, query, `"e"."usuario_id" = $`)
		assert.Contains(t, query, `"e"."exemplar_id" = $`)
		assert.Contains(t, query, `"e"."status" = $`)
		assert.NotContains(t, query, userID.String())
		assert.ElementsMatch(t, []interface{}{userID.String(), copyID.String(), "atrasado"}, args)
	})
}
