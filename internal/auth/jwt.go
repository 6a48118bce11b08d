package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin is the perfil value granted administrative routes
const RoleAdmin = "admin"

// Claims mirrors the token shape issued by the user directory
type Claims struct {
	ID     string `json:"id"`
	Perfil string `json:"perfil"`
	jwt.RegisteredClaims
}

// Principal is the verified caller of a request
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the user with the given role
func (i *Issuer) Issue(userID uuid.UUID, role string) (string, error) {
	now := i.now()

	claims := Claims{
		ID:     userID.String(),
		Perfil: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies a raw token and returns the caller it identifies
func (i *Issuer) Parse(raw string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, err
	}
	if !token.Valid {
		return Principal{}, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.ID)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid id claim: %w", err)
	}
	if claims.Perfil == "" {
		return Principal{}, errors.New("missing perfil claim")
	}

	return Principal{UserID: userID, Role: claims.Perfil}, nil
}
