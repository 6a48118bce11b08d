package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", "biblioteca", time.Hour)
	userID := uuid.New()

	token, err := issuer.Issue(userID, RoleAdmin)
	require.NoError(t, err)

	principal, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, RoleAdmin, principal.Role)
}

func TestIssuer_Parse_Rejects(t *testing.T) {
	issuer := NewIssuer("secret", "biblioteca", time.Hour)
	userID := uuid.New()

	expired := NewIssuer("secret", "biblioteca", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue(userID, "aluno")
	require.NoError(t, err)

	otherSecret, err := NewIssuer("other", "biblioteca", time.Hour).Issue(userID, "aluno")
	require.NoError(t, err)

	otherIssuer, err := NewIssuer("secret", "elsewhere", time.Hour).Issue(userID, "aluno")
	require.NoError(t, err)

	badID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:     "42",
		Perfil: "aluno",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "biblioteca",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: userID.String(), Perfil: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: expiredToken},
		{name: "wrong secret", token: otherSecret},
		{name: "wrong issuer", token: otherIssuer},
		{name: "non uuid id", token: badID},
		{name: "unsigned", token: noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token)
			assert.Error(t, err)
		})
	}
}
