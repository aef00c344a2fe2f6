package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenSigner issues a bearer token for subject that expires after ttl.
type TokenSigner func(subject string, ttl time.Duration) (string, error)

// AuthService checks the single configured admin account. With no account
// configured it is disabled and question-mutating routes stay open.
type AuthService struct {
	username  string
	passHash  []byte
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token     string
	Username  string
	ExpiresIn time.Duration
}

func NewAuthService(username string, passHash []byte, signer TokenSigner, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		username:  strings.TrimSpace(username),
		passHash:  passHash,
		signToken: signer,
		tokenTTL:  ttl,
	}
}

// Enabled reports whether an admin account is configured.
func (s *AuthService) Enabled() bool {
	return s != nil && s.username != "" && len(s.passHash) > 0
}

func (s *AuthService) Login(username, password string) (*AuthResult, error) {
	if !s.Enabled() {
		return nil, newError(ErrorForbidden, "auth.not_configured")
	}
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("auth.required_fields")
	}
	// Compare even on a name mismatch so both failures cost the same.
	hashErr := bcrypt.CompareHashAndPassword(s.passHash, []byte(password))
	if username != s.username || hashErr != nil {
		return nil, NewUnauthorizedError("auth.invalid_credentials")
	}
	if s.signToken == nil {
		return nil, newError(ErrorUnavailable, "auth.signer_not_available")
	}
	token, err := s.signToken(s.username, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Username: s.username, ExpiresIn: s.tokenTTL}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
