package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

var ErrInvalidEmail = errors.New("invalid email address")

// Service is the authentication backend: accounts, password checks and
// refresh-token sessions. Sign-up metadata becomes the profile and role rows
// in the same transaction as the account.
type Service struct {
	accounts   ports.AccountRepository
	profiles   ports.ProfileRepository
	roles      ports.RoleRepository
	uow        ports.UnitOfWork
	tokens     *TokenIssuer
	refreshTTL time.Duration
	now        func() time.Time
	listeners  []ports.RoleListener
}

func NewService(
	accounts ports.AccountRepository,
	profiles ports.ProfileRepository,
	roles ports.RoleRepository,
	uow ports.UnitOfWork,
	tokens *TokenIssuer,
	refreshTTL time.Duration,
) *Service {
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		accounts:   accounts,
		profiles:   profiles,
		roles:      roles,
		uow:        uow,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AddRoleListener registers l for roles assigned at sign-up. Call it before
// the service starts serving requests.
func (s *Service) AddRoleListener(l ports.RoleListener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

func (s *Service) SignUp(ctx context.Context, req ports.SignUpRequest) (identity.User, error) {
	if ctx == nil {
		return identity.User{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return identity.User{}, errs.Wrap(err, "check context")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		return identity.User{}, fmt.Errorf("%w: %q", ErrInvalidEmail, req.Email)
	}
	role, err := identity.ParseSignUpRole(string(req.Metadata.Role))
	if err != nil {
		return identity.User{}, err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return identity.User{}, err
	}

	now := s.now()
	user := identity.User{ID: uuid.NewString(), Email: email}
	fullName := strings.TrimSpace(req.Metadata.FullName)
	if fullName == "" {
		fullName = email
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.accounts.CreateAccount(txCtx, ports.Account{
			ID:           user.ID,
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}
		if _, err := s.profiles.CreateProfile(txCtx, identity.Profile{
			UserID:      user.ID,
			FullName:    fullName,
			Email:       email,
			StudentCode: req.Metadata.StudentCode,
			FacultyID:   req.Metadata.FacultyID,
			WorkerID:    req.Metadata.WorkerID,
		}); err != nil {
			return err
		}
		return s.roles.SetRole(txCtx, user.ID, role)
	}); err != nil {
		return identity.User{}, err
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "auth.service"))
	logging.Info(logCtx, "account created", slog.String("user_id", user.ID), slog.String("role", string(role)))
	for _, l := range s.listeners {
		l.RoleChanged(ctx, user.ID, role)
	}
	return user, nil
}

func (s *Service) SignIn(ctx context.Context, email string, password string) (identity.Session, error) {
	if ctx == nil {
		return identity.Session{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return identity.Session{}, errs.Wrap(err, "check context")
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, ports.ErrAccountNotFound) {
		return identity.Session{}, ports.ErrInvalidCredentials
	}
	if err != nil {
		return identity.Session{}, err
	}
	if !CheckPassword(account.PasswordHash, password) {
		return identity.Session{}, ports.ErrInvalidCredentials
	}

	return s.openSession(ctx, identity.User{ID: account.ID, Email: account.Email})
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// session is returned.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (identity.Session, error) {
	if ctx == nil {
		return identity.Session{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return identity.Session{}, errs.Wrap(err, "check context")
	}

	var session identity.Session
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		record, err := s.activeSession(txCtx, refreshToken)
		if err != nil {
			return err
		}
		account, err := s.accounts.GetAccountByID(txCtx, record.UserID)
		if errors.Is(err, ports.ErrAccountNotFound) {
			return ports.ErrInvalidSession
		}
		if err != nil {
			return err
		}
		if err := s.accounts.RevokeAuthSession(txCtx, record.ID, s.now()); err != nil {
			return err
		}
		session, err = s.openSession(txCtx, identity.User{ID: account.ID, Email: account.Email})
		return err
	})
	if err != nil {
		return identity.Session{}, err
	}
	return session, nil
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	record, err := s.activeSession(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.accounts.RevokeAuthSession(ctx, record.ID, s.now())
}

// Authenticate validates an access token and returns its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (identity.User, error) {
	if ctx == nil {
		return identity.User{}, errors.New("context is required")
	}
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return identity.User{}, fmt.Errorf("%w: %v", ports.ErrInvalidSession, err)
	}
	return identity.User{ID: claims.Subject, Email: claims.Email}, nil
}

func (s *Service) activeSession(ctx context.Context, refreshToken string) (ports.AuthSessionRecord, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return ports.AuthSessionRecord{}, ports.ErrInvalidSession
	}
	record, err := s.accounts.GetAuthSessionByHash(ctx, hashToken(refreshToken))
	if err != nil {
		return ports.AuthSessionRecord{}, err
	}
	if record.RevokedAt != nil || !record.ExpiresAt.After(s.now()) {
		return ports.AuthSessionRecord{}, ports.ErrInvalidSession
	}
	return record, nil
}

func (s *Service) openSession(ctx context.Context, user identity.User) (identity.Session, error) {
	now := s.now()
	accessToken, expiresAt, err := s.tokens.Issue(user.ID, user.Email, now)
	if err != nil {
		return identity.Session{}, errs.Wrap(err, "sign access token")
	}
	refreshToken, err := newRefreshToken()
	if err != nil {
		return identity.Session{}, errs.Wrap(err, "generate refresh token")
	}
	if err := s.accounts.CreateAuthSession(ctx, ports.AuthSessionRecord{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RefreshTokenHash: hashToken(refreshToken),
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.refreshTTL),
	}); err != nil {
		return identity.Session{}, err
	}
	return identity.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}
