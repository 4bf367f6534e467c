package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/coursehub-lms/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
)

var testUser = types.User{
	ID:    42,
	Email: "jane@example.com",
	Role:  types.RoleStudent,
}

func TestTokenRoundTrip(t *testing.T) {
	manager, err := NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := manager.Issue(testUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != testUser.Email {
		t.Fatalf("email claim: got %q, want %q", claims.Email, testUser.Email)
	}
	if claims.Role != types.RoleStudent {
		t.Fatalf("role claim: got %q, want %q", claims.Role, types.RoleStudent)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if id != testUser.ID {
		t.Fatalf("subject: got %d, want %d", id, testUser.ID)
	}
}

func TestVerifyIsRepeatable(t *testing.T) {
	manager, err := NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := manager.Issue(testUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	first, err1 := manager.Verify(token)
	second, err2 := manager.Verify(token)
	if err1 != nil || err2 != nil {
		t.Fatalf("verify errors: %v, %v", err1, err2)
	}
	if first.Subject != second.Subject || first.Email != second.Email || first.Role != second.Role {
		t.Fatal("two verifications of the same token disagree")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager, err := NewTokenManager("test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := manager.Issue(testUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokenManager("issuer-secret", time.Hour)
	verifier, _ := NewTokenManager("other-secret", time.Hour)

	token, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyRejectsMalformedTokens(t *testing.T) {
	manager, _ := NewTokenManager("test-secret", time.Hour)

	for _, malformed := range []string{"", "garbage", "a.b.c", "ey.ey.ey"} {
		if _, err := manager.Verify(malformed); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", malformed, err)
		}
	}
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	manager, _ := NewTokenManager("test-secret", time.Hour)

	claims := Claims{
		Email: testUser.Email,
		Role:  testUser.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none token, got %v", err)
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("   ", time.Hour); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
