package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

// refreshLeeway refreshes access tokens shortly before they expire.
const refreshLeeway = 30 * time.Second

// Backend is the server side of authentication as seen by Client.
type Backend interface {
	SignUp(ctx context.Context, req ports.SignUpRequest) (identity.User, error)
	SignIn(ctx context.Context, email string, password string) (identity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (identity.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
}

// Client keeps the current session in a SessionStore and reports every
// transition to its listeners.
type Client struct {
	backend Backend
	store   SessionStore
	now     func() time.Time

	mu        sync.Mutex
	listeners map[int]ports.AuthStateListener
	nextID    int
}

var _ ports.AuthClient = (*Client)(nil)

func NewClient(backend Backend, store SessionStore) *Client {
	return &Client{
		backend:   backend,
		store:     store,
		now:       time.Now,
		listeners: make(map[int]ports.AuthStateListener),
	}
}

// GetSession returns the stored session, refreshing it when the access token
// is about to expire. No stored session is (nil, nil).
func (c *Client) GetSession(ctx context.Context) (*identity.Session, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	session, err := c.store.Load(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "load session")
	}
	if session == nil {
		return nil, nil
	}
	if !session.Expired(c.now().Add(refreshLeeway)) {
		return session, nil
	}

	refreshed, err := c.backend.Refresh(ctx, session.RefreshToken)
	if err != nil {
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			logCtx := logging.WithAttrs(ctx, slog.String("component", "auth.client"))
			logging.Warn(logCtx, "clear stale session failed", slog.Any("err", errs.Loggable(clearErr)))
		}
		c.emit(ports.AuthEventSignedOut, nil)
		return nil, errs.Wrap(err, "refresh session")
	}
	if err := c.store.Save(ctx, refreshed); err != nil {
		return nil, errs.Wrap(err, "save session")
	}
	c.emit(ports.AuthEventTokenRefreshed, &refreshed)
	return &refreshed, nil
}

// SignUp creates the account and signs it in.
func (c *Client) SignUp(ctx context.Context, req ports.SignUpRequest) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if _, err := c.backend.SignUp(ctx, req); err != nil {
		return err
	}
	_, err := c.SignInWithPassword(ctx, req.Email, req.Password)
	return err
}

func (c *Client) SignInWithPassword(ctx context.Context, email string, password string) (*identity.Session, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	session, err := c.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, session); err != nil {
		return nil, errs.Wrap(err, "save session")
	}
	c.emit(ports.AuthEventSignedIn, &session)
	return &session, nil
}

// SignOut revokes the remote session and always drops the local one. The
// revocation error, if any, is returned after local state is cleared.
func (c *Client) SignOut(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	var revokeErr error
	session, err := c.store.Load(ctx)
	if err != nil {
		revokeErr = errs.Wrap(err, "load session")
	} else if session != nil {
		revokeErr = c.backend.SignOut(ctx, session.RefreshToken)
	}

	if err := c.store.Clear(ctx); err != nil {
		return errs.Wrap(err, "clear session")
	}
	c.emit(ports.AuthEventSignedOut, nil)
	return revokeErr
}

func (c *Client) OnAuthStateChange(listener ports.AuthStateListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) emit(event ports.AuthEvent, session *identity.Session) {
	c.mu.Lock()
	listeners := make([]ports.AuthStateListener, 0, len(c.listeners))
	for _, listener := range c.listeners {
		listeners = append(listeners, listener)
	}
	c.mu.Unlock()

	for _, listener := range listeners {
		var snapshot *identity.Session
		if session != nil {
			copied := *session
			snapshot = &copied
		}
		listener(event, snapshot)
	}
}
