package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// userRow is the GORM row shape. Nested value objects are stored as JSONB
// via gorm's built-in json serializer, matching the document-shaped fields
// (profile/preferences/statistics) of domain.User without denormalizing
// them into a dozen relational columns the domain never queries on.
type userRow struct {
	ID           string `gorm:"type:varchar(64);primaryKey"`
	Username     string `gorm:"type:varchar(30);uniqueIndex;not null"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"type:varchar(255)"`
	IsGuest      bool   `gorm:"not null;default:false"`
	Profile      domain.UserProfile     `gorm:"serializer:json"`
	Preferences  domain.UserPreferences `gorm:"serializer:json"`
	Statistics   domain.UserStatistics  `gorm:"serializer:json"`
	IsActive     bool      `gorm:"not null;default:true"`
	LastSeenAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func toDomain(r *userRow) *domain.User {
	return &domain.User{
		ID:           domain.UserID(r.ID),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsGuest:      r.IsGuest,
		Profile:      r.Profile,
		Preferences:  r.Preferences,
		Statistics:   r.Statistics,
		IsActive:     r.IsActive,
		LastSeenAt:   r.LastSeenAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func fromDomain(u *domain.User) *userRow {
	return &userRow{
		ID:           string(u.ID),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsGuest:      u.IsGuest,
		Profile:      u.Profile,
		Preferences:  u.Preferences,
		Statistics:   u.Statistics,
		IsActive:     u.IsActive,
		LastSeenAt:   u.LastSeenAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// UserRepository is the User-facing persistence contract.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = domain.UserID(uuid.NewString())
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	row := fromDomain(u)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, "username or email already in use", err)
		}
		return apperr.Wrap(apperr.Internal, "create user", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find user", err)
	}
	return toDomain(&row), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find user", err)
	}
	return toDomain(&row), nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now()
	row := fromDomain(u)
	if err := r.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", row.ID).Updates(row).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "update user", err)
	}
	return nil
}

// isUniqueViolation is a narrow, driver-agnostic sniff since GORM does not
// wrap Postgres unique-violation errors in a portable sentinel.
func isUniqueViolation(err error) bool {
	return err != nil && (containsAny(err.Error(), "duplicate key", "unique constraint", "SQLSTATE 23505"))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
