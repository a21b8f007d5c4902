package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/confcore/internal/domain"
)

func TestToDomainFromDomain_RoundTripsEveryField(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	u := &domain.User{
		ID:           "user-1",
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		IsGuest:      true,
		Profile:      domain.UserProfile{DisplayName: "Ada"},
		IsActive:     true,
		LastSeenAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	row := fromDomain(u)
	back := toDomain(row)

	if back.ID != u.ID || back.Username != u.Username || back.Email != u.Email {
		t.Fatalf("round trip lost identity fields: %+v", back)
	}
	if back.PasswordHash != u.PasswordHash || back.IsGuest != u.IsGuest || back.IsActive != u.IsActive {
		t.Fatalf("round trip lost flag fields: %+v", back)
	}
	if back.Profile.DisplayName != "Ada" {
		t.Fatalf("round trip lost embedded profile: %+v", back.Profile)
	}
	if !back.CreatedAt.Equal(now) || !back.UpdatedAt.Equal(now) {
		t.Fatalf("round trip lost timestamps: %+v", back)
	}
}

func TestIsUniqueViolation_RecognizesKnownDriverMessages(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key"`), true},
		{errors.New("pq: duplicate key value"), true},
		{errors.New("SQLSTATE 23505"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := isUniqueViolation(c.err); got != c.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestContainsAny_MatchesAnySubstring(t *testing.T) {
	if !containsAny("hello world", "xyz", "world") {
		t.Fatal("expected a match on the second candidate substring")
	}
	if containsAny("hello world", "xyz", "abc") {
		t.Fatal("expected no match")
	}
}
