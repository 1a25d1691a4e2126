package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Service issues and validates pairing tokens. The signing secret is
// generated fresh on every server start, so tokens never outlive the
// process that printed the QR code.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service with a random HS256 secret.
func NewService(ttl time.Duration) (*Service, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}
	return &Service{secret: secret, ttl: ttl}, nil
}

// IssueToken creates a signed pairing token embedded into the QR payload.
func (s *Service) IssueToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "sync",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign pairing token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature and expiry of a pairing token.
func (s *Service) ValidateToken(tokenString string) error {
	_, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("invalid pairing token: %w", err)
	}
	return nil
}
