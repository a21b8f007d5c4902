package meeting

import (
	"context"
	"errors"
	"regexp"
	"testing"
)

var idPattern = regexp.MustCompile(`^[A-Z0-9]{3}-[A-Z0-9]{3}-[A-Z0-9]{3}$`)

func TestGenerateID_ProducesTheExpectedFormat(t *testing.T) {
	id, err := GenerateID(context.Background(), func(context.Context, string) (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	if !idPattern.MatchString(id) {
		t.Fatalf("id = %q, does not match expected format", id)
	}
}

func TestGenerateID_RetriesOnCollisionUntilAFreeCodeIsFound(t *testing.T) {
	calls := 0
	id, err := GenerateID(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	if calls != 3 {
		t.Fatalf("exists was called %d times, want exactly 3", calls)
	}
	if !idPattern.MatchString(id) {
		t.Fatalf("id = %q, does not match expected format", id)
	}
}

func TestGenerateID_GivesUpAfterExhaustingAttempts(t *testing.T) {
	_, err := GenerateID(context.Background(), func(context.Context, string) (bool, error) { return true, nil })
	if err == nil {
		t.Fatal("expected an error once id generation attempts are exhausted")
	}
}

func TestGenerateID_PropagatesExistsLookupError(t *testing.T) {
	wantErr := errors.New("db unreachable")
	_, err := GenerateID(context.Background(), func(context.Context, string) (bool, error) { return false, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}
