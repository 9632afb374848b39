package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

// Provider holds the current identity: session, user, profile and role.
// Auth events, Init, SignOut and RefreshProfile are its only mutators.
type Provider struct {
	auth     ports.AuthClient
	profiles ports.ProfileReader
	roles    ports.RoleReader

	mu          sync.Mutex
	state       Snapshot
	generation  uint64
	watchers    map[int]func(Snapshot)
	nextWatchID int
	unsubscribe func()
	loadCtx     context.Context
	inflight    sync.WaitGroup

	// deliverMu orders watcher calls by revision.
	deliverMu sync.Mutex
}

func NewProvider(auth ports.AuthClient, profiles ports.ProfileReader, roles ports.RoleReader) *Provider {
	return &Provider{
		auth:     auth,
		profiles: profiles,
		roles:    roles,
		state:    Snapshot{Loading: true},
		watchers: make(map[int]func(Snapshot)),
		loadCtx:  context.Background(),
	}
}

// Init subscribes to auth events and resolves the current session. A session
// lookup failure clears every identity field instead of surfacing a partial
// identity.
func (p *Provider) Init(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "session.provider"))

	p.mu.Lock()
	p.loadCtx = context.WithoutCancel(logCtx)
	if p.unsubscribe == nil {
		p.unsubscribe = p.auth.OnAuthStateChange(p.handleAuthEvent)
	}
	p.mu.Unlock()

	session, err := p.auth.GetSession(ctx)
	if err != nil {
		logging.Error(logCtx, "session lookup failed, clearing identity", slog.Any("err", errs.Loggable(err)))
		p.setSession(nil)
		return nil
	}
	p.setSession(session)
	return nil
}

// Close unsubscribes from auth events. In-flight loads still finish.
func (p *Provider) Close() {
	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (p *Provider) State() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}

// Viewer returns the identity of the current snapshot.
func (p *Provider) Viewer() Viewer {
	return p.State().Viewer()
}

// Watch calls fn with every new snapshot until the returned func is called.
// Calls never overlap and never go back to an older revision, so fn must not
// itself sign in, sign out or refresh the provider.
func (p *Provider) Watch(fn func(Snapshot)) func() {
	p.mu.Lock()
	id := p.nextWatchID
	p.nextWatchID++
	p.watchers[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.watchers, id)
			p.mu.Unlock()
		})
	}
}

// Wait blocks until in-flight profile and role loads finish or ctx is done.
func (p *Provider) Wait(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type SignUpInput struct {
	Email       string
	Password    string
	FullName    string
	Role        identity.Role
	StudentCode *string
	FacultyID   *string
	WorkerID    *string
}

// SignUp registers an account, forwarding the role and its identifiers as
// profile metadata. An empty role means student.
func (p *Provider) SignUp(ctx context.Context, input SignUpInput) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	role, err := identity.ParseSignUpRole(string(input.Role))
	if err != nil {
		return err
	}

	return p.auth.SignUp(ctx, ports.SignUpRequest{
		Email:    strings.TrimSpace(input.Email),
		Password: input.Password,
		Metadata: identity.SignUpMetadata{
			FullName:    strings.TrimSpace(input.FullName),
			Role:        role,
			StudentCode: blankToNil(input.StudentCode),
			FacultyID:   blankToNil(input.FacultyID),
			WorkerID:    blankToNil(input.WorkerID),
		},
	})
}

func (p *Provider) SignIn(ctx context.Context, email string, password string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	_, err := p.auth.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	return err
}

// SignOut revokes the remote session best effort and always clears local
// identity. A revocation failure is logged, not returned.
func (p *Provider) SignOut(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "session.provider"))

	if err := p.auth.SignOut(ctx); err != nil {
		logging.Warn(logCtx, "sign out failed, clearing local identity anyway", slog.Any("err", errs.Loggable(err)))
	}
	p.setSession(nil)
}

// RefreshProfile reloads profile and role for the current user and waits for both.
func (p *Provider) RefreshProfile(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	p.mu.Lock()
	if p.state.User == nil {
		p.mu.Unlock()
		return nil
	}
	userID := p.state.User.ID
	generation := p.generation
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.loadProfile(ctx, generation, userID)
	}()
	go func() {
		defer wg.Done()
		p.loadRole(ctx, generation, userID)
	}()
	wg.Wait()
	return nil
}

func (p *Provider) handleAuthEvent(event ports.AuthEvent, session *identity.Session) {
	p.mu.Lock()
	logCtx := p.loadCtx
	p.mu.Unlock()

	logging.Debug(logCtx, "auth state changed", slog.String("event", string(event)), slog.Bool("has_session", session != nil))
	p.setSession(session)
}

// setSession replaces {session, user} synchronously and starts independent
// asynchronous loads of profile and role. A nil session clears everything.
func (p *Provider) setSession(session *identity.Session) {
	p.mu.Lock()
	p.generation++
	generation := p.generation
	next := Snapshot{Loading: false}
	var userID string
	if session != nil {
		copied := *session
		user := copied.User
		next.Session = &copied
		next.User = &user
		userID = user.ID
		if p.state.User != nil && p.state.User.ID == userID {
			next.Profile = p.state.Profile
			next.Role = p.state.Role
		}
	}
	next.revision = p.state.revision + 1
	p.state = next
	loadCtx := p.loadCtx
	if userID != "" {
		p.inflight.Add(2)
	}
	p.mu.Unlock()

	p.publish()

	if userID == "" {
		return
	}
	go func() {
		defer p.inflight.Done()
		p.loadProfile(loadCtx, generation, userID)
	}()
	go func() {
		defer p.inflight.Done()
		p.loadRole(loadCtx, generation, userID)
	}()
}

func (p *Provider) loadProfile(ctx context.Context, generation uint64, userID string) {
	profile, err := p.profiles.GetProfile(ctx, userID)
	if err != nil {
		logging.Warn(ctx, "load profile failed", slog.String("user_id", userID), slog.Any("err", errs.Loggable(err)))
		profile = nil
	}
	p.apply(generation, userID, func(s *Snapshot) {
		s.Profile = profile
	})
}

func (p *Provider) loadRole(ctx context.Context, generation uint64, userID string) {
	role, err := p.roles.GetRole(ctx, userID)
	if err != nil {
		logging.Warn(ctx, "load role failed", slog.String("user_id", userID), slog.Any("err", errs.Loggable(err)))
		role = ""
	}
	p.apply(generation, userID, func(s *Snapshot) {
		s.Role = role
	})
}

// apply runs mutate unless the identity changed since the load started.
func (p *Provider) apply(generation uint64, userID string, mutate func(*Snapshot)) {
	p.mu.Lock()
	if p.generation != generation || p.state.User == nil || p.state.User.ID != userID {
		p.mu.Unlock()
		return
	}
	mutate(&p.state)
	p.state.revision++
	p.mu.Unlock()

	p.publish()
}

// publish hands the latest state to every watcher. The copy is taken under
// deliverMu, so a caller that lost the race delivers the newer state again
// rather than an older one.
func (p *Provider) publish() {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	snapshot := p.state.clone()
	watchers := make([]func(Snapshot), 0, len(p.watchers))
	for _, fn := range p.watchers {
		watchers = append(watchers, fn)
	}
	p.mu.Unlock()

	for _, fn := range watchers {
		fn(snapshot)
	}
}

func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
