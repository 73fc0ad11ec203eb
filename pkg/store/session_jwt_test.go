package store

import (
	"errors"
	"testing"
	"time"

	"elib/pkg/domain"
	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-0123456789"

func newTestSessionStore(t *testing.T, revoker TokenRevoker, opts JWTOptions) *JWTSessionStore {
	t.Helper()
	s, err := NewJWTSessionStoreWithOptions(testSecret, time.Hour, revoker, opts)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	return s
}

func testUser() domain.User {
	return domain.User{ID: "user-1", Email: "a@x.io", Role: domain.RoleAuthor}
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{})
	token, err := s.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	sess, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sess.UserID != "user-1" || sess.Email != "a@x.io" || sess.Role != domain.RoleAuthor {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.TokenID == "" {
		t.Fatalf("expected token id")
	}
	if d := time.Until(sess.ExpiresAt); d <= 0 || d > time.Hour {
		t.Fatalf("unexpected expiry: %v", sess.ExpiresAt)
	}
}

func TestNewJWTSessionStoreRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Hour, nil); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}

func TestJWTSessionStoreEnforcesAudience(t *testing.T) {
	signing := newTestSessionStore(t, nil, JWTOptions{Issuer: "issuer-a", Audience: "aud-a", Leeway: time.Second})
	verify := newTestSessionStore(t, nil, JWTOptions{Issuer: "issuer-a", Audience: "aud-b", Leeway: time.Second})

	token, err := signing.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := verify.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected audience mismatch to be invalid, got %v", err)
	}
}

func TestJWTSessionStoreRejectsOtherSecret(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{})
	other, err := NewJWTSessionStore("another-secret-0123456789", time.Hour, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := other.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := s.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestJWTSessionStoreClassifiesExpired(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{Leeway: time.Second})
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Email: "a@x.io",
		Role:  "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-expired",
			Issuer:    defaultJWTIssuer,
			Audience:  jwt.ClaimStrings{defaultJWTAudience},
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			ID:        "jti-expired",
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := s.Verify(signed); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestJWTSessionStoreRejectsGarbage(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{})
	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := s.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: expected invalid, got %v", tok, err)
		}
	}
}

func TestJWTSessionStoreRequiresJTIClaim(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{})
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-missing-jti",
			Issuer:    defaultJWTIssuer,
			Audience:  jwt.ClaimStrings{defaultJWTAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := s.Verify(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected missing jti token to fail, got %v", err)
	}
}

func TestJWTSessionStoreRevokesByJTI(t *testing.T) {
	s := newTestSessionStore(t, NewMemoryTokenRevoker(), JWTOptions{})
	token, err := s.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.Verify(token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
}
