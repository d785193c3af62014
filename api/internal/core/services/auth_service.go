package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rebooked/api/internal/core/domain"
)

// IdentityClaims is the subset of the identity provider's token payload this
// service cares about. The subject carries the owner id.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer tokens minted by the identity provider
// using the shared HS256 secret. It is the authenticated request gate:
// 🛡️ every validation failure — expired, malformed, revoked, wrong
// algorithm — is normalized to ErrUnauthenticated so callers learn nothing
// about why a credential was rejected.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify implements domain.IdentityVerifier. An empty credential is rejected
// immediately, before any parsing work.
func (v *TokenVerifier) Verify(ctx context.Context, bearerToken string) (domain.Identity, error) {
	if bearerToken == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	token, err := jwt.ParseWithClaims(bearerToken, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 🛡️ Zero-Trust: force the signing method check
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	return domain.Identity{UserID: userID, Email: claims.Email}, nil
}
