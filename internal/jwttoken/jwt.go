// Package jwttoken issues and validates the HMAC bearer tokens the identity
// subsystem hands to landlords and tenants. The engine treats the token
// subject as the acting party; authorization beyond identity is checked by
// service preconditions.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rentledger/pkg/domain"
	dErrors "rentledger/pkg/domain-errors"
)

// Claims carried by engine access tokens.
type Claims struct {
	PartyID string `json:"party_id"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateToken mints a token for a party. Used by tests and the dev CLI; in
// production tokens arrive from the identity subsystem sharing the key.
func (s *Service) GenerateToken(party domain.PartyID, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PartyID: party.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses the token and returns the acting party.
func (s *Service) ValidateToken(tokenString string) (domain.PartyID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.PartyID{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.PartyID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.PartyID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	party, err := domain.ParsePartyID(claims.PartyID)
	if err != nil {
		return domain.PartyID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return party, nil
}
