// Package user implements account creation, login, and profile management
// (spec §4.A/§3), sitting directly on top of the Postgres-backed
// UserRepository via a narrow local interface.
package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/auth"
	"github.com/dkeye/confcore/internal/domain"
)

// Repository is the persistence contract this service needs.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

type Service struct {
	repo   Repository
	tokens *auth.TokenIssuer
}

func NewService(repo Repository, tokens *auth.TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Profile  domain.UserProfile
}

func validateUsername(username string) error {
	if len(username) < domain.MinUsernameLen || len(username) > domain.MaxUsernameLen {
		return apperr.New(apperr.BadRequest, fmt.Sprintf("username must be between %d and %d characters", domain.MinUsernameLen, domain.MaxUsernameLen))
	}
	return nil
}

// Register creates a full (non-guest) account and issues a bearer token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	if err := validateUsername(in.Username); err != nil {
		return nil, "", err
	}
	if in.Email == "" || in.Password == "" {
		return nil, "", apperr.New(apperr.BadRequest, "email and password are required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, "hash password", err)
	}
	u := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Profile:      in.Profile,
		Preferences:  domain.UserPreferences{},
		IsActive:     true,
		LastSeenAt:   time.Now(),
	}
	if u.Profile.DisplayName == "" {
		u.Profile.DisplayName = in.Username
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, "issue token", err)
	}
	return u, token, nil
}

// Login validates credentials; per the guest invariant, guests always fail
// here since ComparePassword short-circuits on an empty hash.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", apperr.New(apperr.Unauthenticated, "invalid email or password")
	}
	if u.IsGuest || !auth.ComparePassword(u.PasswordHash, password) {
		return nil, "", apperr.New(apperr.Unauthenticated, "invalid email or password")
	}
	u.LastSeenAt = time.Now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, "issue token", err)
	}
	return u, token, nil
}

// Guest mints a synthesized unique guest-<random>/username-email pair with
// no password hash, honoring isGuest ⇒ comparePassword always false.
func (s *Service) Guest(ctx context.Context, username string) (*domain.User, string, error) {
	if username == "" {
		username = "guest"
	}
	suffix, err := randomHex(6)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, "generate guest id", err)
	}
	u := &domain.User{
		Username:   fmt.Sprintf("guest-%s", suffix),
		Email:      fmt.Sprintf("guest-%s@guests.local", suffix),
		IsGuest:    true,
		IsActive:   true,
		LastSeenAt: time.Now(),
		Profile:    domain.UserProfile{DisplayName: username},
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, "issue token", err)
	}
	return u, token, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// UpdateProfile merges the supplied profile/preferences into the stored
// user, leaving fields not present in the patch untouched.
func (s *Service) UpdateProfile(ctx context.Context, userID domain.UserID, profile *domain.UserProfile, prefs *domain.UserPreferences) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		if profile.DisplayName != "" {
			u.Profile.DisplayName = profile.DisplayName
		}
		if profile.AvatarURL != "" {
			u.Profile.AvatarURL = profile.AvatarURL
		}
	}
	if prefs != nil {
		u.Preferences = *prefs
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout only touches lastSeenAt; the JWT itself is stateless and not
// revoked server-side (spec §4.A carries no token-blacklist requirement).
func (s *Service) Logout(ctx context.Context, userID domain.UserID) error {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	u.LastSeenAt = time.Now()
	return s.repo.Update(ctx, u)
}

func (s *Service) Get(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}
