package auth

import (
	"context"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
)

// UserLookup is the minimal read contract the verifier needs from the user
// store, kept small so auth does not depend on the postgres package.
type UserLookup interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// Verifier implements spec §4.A: validate a bearer token (HTTP or socket
// handshake), resolve to a stable, active user identity.
type Verifier struct {
	issuer *TokenIssuer
	users  UserLookup
}

func NewVerifier(issuer *TokenIssuer, users UserLookup) *Verifier {
	return &Verifier{issuer: issuer, users: users}
}

// Verify returns the resolved user or an apperr.Unauthenticated/Forbidden.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperr.New(apperr.Unauthenticated, "missing bearer token")
	}
	claims, err := v.issuer.Parse(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid or expired token", err)
	}
	user, err := v.users.FindByID(ctx, domain.UserID(claims.UserID))
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "user not found", err)
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.Forbidden, "user is inactive")
	}
	return user, nil
}
