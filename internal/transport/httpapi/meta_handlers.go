package httpapi

import (
	"log/slog"
	"net/http"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
)

func (s *Server) handleLabels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, issue.Tables())
}

func (s *Server) handleBuildings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, issue.Buildings())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	if err := s.hub.ServeWS(w, r, p.User.ID); err != nil {
		logging.Warn(r.Context(), "websocket session failed", slog.Any("err", errs.Loggable(err)))
	}
}
