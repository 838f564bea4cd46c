package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier turns a bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// Claims is the token payload issued by the account service.
type Claims struct {
	ID    int64  `json:"id"`
	Name  string `json:"user_name"`
	Email string `json:"user_email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens and elevates configured emails to admin.
type JWTVerifier struct {
	secret      []byte
	adminEmails map[string]struct{}
}

func NewJWTVerifier(secret string, adminEmails []string) *JWTVerifier {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = struct{}{}
		}
	}

	return &JWTVerifier{secret: []byte(secret), adminEmails: admins}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingToken
	}

	claims := &Claims{}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.ID <= 0 {
		return Principal{}, fmt.Errorf("%w: missing subject id", ErrInvalidToken)
	}

	return Principal{
		ID:    claims.ID,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  v.roleFor(claims.Email, claims.Role),
	}, nil
}

// Sign issues a token for p. It exists for tooling and tests; the service never issues tokens.
func (v *JWTVerifier) Sign(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Role:  string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *JWTVerifier) roleFor(email, claimed string) Role {
	if _, ok := v.adminEmails[strings.ToLower(email)]; ok {
		return RoleAdmin
	}

	if Role(claimed) == RoleAdmin {
		return RoleAdmin
	}

	return RoleUser
}
