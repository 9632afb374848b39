package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/usecase/session"
)

type principalKey struct{}

// principal is the authenticated caller of a request. The role is looked up
// per request, never read from the token.
type principal struct {
	User identity.User
	Role identity.Role
}

func (p principal) viewer() session.Viewer {
	return session.Viewer{UserID: p.User.ID, Role: p.Role}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" && r.URL.Path == "/ws" {
			// Browsers cannot set headers on websocket upgrades.
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := logging.WithAttrs(r.Context(), slog.String("user_id", user.ID))
		role, err := s.roles.GetRole(ctx, user.ID)
		if err != nil {
			logging.Error(ctx, "role lookup failed", slog.Any("err", errs.Loggable(err)))
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		ctx = context.WithValue(ctx, principalKey{}, principal{User: user, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFromContext(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}
