package services

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewAuthService("admin", hash, func(subject string, ttl time.Duration) (string, error) {
		return "token:" + subject + ":" + ttl.String(), nil
	}, time.Hour)
}

func TestAuthLogin(t *testing.T) {
	svc := newTestAuth(t)
	if !svc.Enabled() {
		t.Fatalf("expected auth to be enabled")
	}
	res, err := svc.Login(" admin ", "Secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.Token != "token:admin:1h0m0s" || res.Username != "admin" || res.ExpiresIn != time.Hour {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := svc.Login("admin", "wrong"); err == nil {
		t.Fatalf("expected error for wrong password")
	}
	if _, err := svc.Login("root", "Secret123"); err == nil {
		t.Fatalf("expected error for wrong username")
	}
}

func TestAuthValidation(t *testing.T) {
	svc := newTestAuth(t)
	_, err := svc.Login("", "x")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid, got %v", err)
	}
	_, err = svc.Login("admin", "nope")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthDisabled(t *testing.T) {
	svc := NewAuthService("", nil, nil, 0)
	if svc.Enabled() {
		t.Fatalf("expected auth to be disabled")
	}
	if svc.TokenTTL() != 24*time.Hour {
		t.Fatalf("unexpected default ttl %s", svc.TokenTTL())
	}
	_, err := svc.Login("admin", "x")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	var nilSvc *AuthService
	if nilSvc.Enabled() {
		t.Fatalf("nil service must be disabled")
	}
}

func TestAuthWithoutSigner(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	svc := NewAuthService("admin", hash, nil, time.Minute)
	_, err := svc.Login("admin", "pw")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
