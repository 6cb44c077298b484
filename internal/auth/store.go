package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users() UserStore
	RefreshTokens() RefreshTokenStore
	ResetTokens() ResetTokenStore
	Roles() RoleStore
}

// UserStore manages identity records. Create and Update return ErrConflict
// when the email is already taken by another user.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter ListFilter) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// RefreshTokenStore keeps at most one live token per user.
type RefreshTokenStore interface {
	Upsert(ctx context.Context, tok *RefreshToken) error
	FindByUser(ctx context.Context, userID string) (*RefreshToken, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// ResetTokenStore manages the OTP lifecycle.
type ResetTokenStore interface {
	Create(ctx context.Context, tok *ResetToken) error
	// FindValid returns the reset token matching user and code with expiry
	// still in the future, or ErrNotFound.
	FindValid(ctx context.Context, userID, otp string, now time.Time) (*ResetToken, error)
	// AnyValid reports whether any unexpired reset token exists for the user.
	AnyValid(ctx context.Context, userID string, now time.Time) (bool, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// RoleStore manages named permission roles.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
}
