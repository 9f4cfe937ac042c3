package authtoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
)

// Claims are the access-token claims. Subject carries the identity id;
// the role is always re-read from the directory, never trusted from the token.
type Claims struct {
	jwt.RegisteredClaims
}

// Service signs and validates HS256 access tokens.
type Service struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewService(signingKey, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// Issue mints a token for identityID valid for ttl.
func (s *Service) Issue(identityID uuid.UUID, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate checks signature, expiry and issuer and returns the identity id.
func (s *Service) Validate(tokenString string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, domainerr.New(domainerr.CodeUnauthorized, "token has expired")
		}
		return uuid.Nil, domainerr.New(domainerr.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return uuid.Nil, domainerr.New(domainerr.CodeUnauthorized, "invalid token claims")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domainerr.New(domainerr.CodeUnauthorized, "invalid token subject")
	}
	return id, nil
}
