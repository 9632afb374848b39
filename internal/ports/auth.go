package ports

import (
	"context"
	"errors"
	"time"

	"fixversity/internal/domain/identity"
)

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// AuthEvent names an authentication state transition.
type AuthEvent string

const (
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthStateListener receives every auth transition with the session that is
// current after it (nil when signed out).
type AuthStateListener func(event AuthEvent, session *identity.Session)

type SignUpRequest struct {
	Email    string
	Password string
	Metadata identity.SignUpMetadata
}

// AuthClient is the client-side view of the authentication backend.
type AuthClient interface {
	GetSession(ctx context.Context) (*identity.Session, error)
	SignUp(ctx context.Context, req SignUpRequest) error
	SignInWithPassword(ctx context.Context, email string, password string) (*identity.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(listener AuthStateListener) (unsubscribe func())
}

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AuthSessionRecord struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, account Account) error
	// GetAccountByEmail and GetAccountByID return ErrAccountNotFound when absent.
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccountByID(ctx context.Context, id string) (Account, error)
	CreateAuthSession(ctx context.Context, record AuthSessionRecord) error
	// GetAuthSessionByHash returns ErrInvalidSession when absent.
	GetAuthSessionByHash(ctx context.Context, refreshTokenHash string) (AuthSessionRecord, error)
	RevokeAuthSession(ctx context.Context, id string, revokedAt time.Time) error
	RevokeAuthSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) error
}
