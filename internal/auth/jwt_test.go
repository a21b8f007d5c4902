package auth

import (
	"testing"
	"time"

	"github.com/dkeye/confcore/internal/domain"
)

func TestIssueParse_RoundTripsUserIdentity(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	u := &domain.User{ID: "user-1", IsGuest: true}

	token, err := ti.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" || !claims.IsGuest {
		t.Fatalf("claims = %+v, want matching user-1/guest", claims)
	}
}

func TestParse_RejectsExpiredToken(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	// NewTokenIssuer replaces a non-positive ttl with the default, so the
	// negative lifetime is set on the field directly.
	ti.ttl = -time.Hour
	token, err := ti.Issue(&domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := ti.Parse(token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken for an expired token", err)
	}
}

func TestParse_RejectsTokenSignedWithADifferentSecret(t *testing.T) {
	issuedBy := NewTokenIssuer("secret-a", time.Hour)
	verifiedBy := NewTokenIssuer("secret-b", time.Hour)

	token, err := issuedBy.Issue(&domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifiedBy.Parse(token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken for a mismatched signing secret", err)
	}
}

func TestParse_RejectsGarbageInput(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	if _, err := ti.Parse("not.a.jwt"); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestNewTokenIssuer_DefaultsTTLWhenNonPositive(t *testing.T) {
	ti := NewTokenIssuer("test-secret", 0)
	token, err := ti.Issue(&domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	exp := claims.ExpiresAt.Time
	if exp.Before(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("expiry %v should reflect the default multi-day TTL", exp)
	}
}
