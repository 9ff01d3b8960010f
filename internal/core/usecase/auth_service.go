package usecase

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

// AuthService checks API tokens presented to the mock change log. Only the
// token hash is kept in memory.
type AuthService struct {
	tokenHash string
}

func NewAuthService(token string) *AuthService {
	return &AuthService{tokenHash: HashToken(strings.TrimSpace(token))}
}

func (s *AuthService) Authenticate(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(s.tokenHash)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
