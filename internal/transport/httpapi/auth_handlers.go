package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/auth"
	"fixversity/internal/ports"
)

type signUpRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FullName    string  `json:"full_name"`
	Role        string  `json:"role"`
	StudentCode *string `json:"student_code"`
	FacultyID   *string `json:"faculty_id"`
	WorkerID    *string `json:"worker_id"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type meResponse struct {
	User      identity.User     `json:"user"`
	Profile   *identity.Profile `json:"profile"`
	Role      *identity.Role    `json:"role"`
	IsAdmin   bool              `json:"is_admin"`
	IsWorker  bool              `json:"is_worker"`
	IsStudent bool              `json:"is_student"`
	IsFaculty bool              `json:"is_faculty"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	role, err := identity.ParseSignUpRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, errs.Message(err))
		return
	}

	user, err := s.auth.SignUp(r.Context(), ports.SignUpRequest{
		Email:    req.Email,
		Password: req.Password,
		Metadata: identity.SignUpMetadata{
			FullName:    strings.TrimSpace(req.FullName),
			Role:        role,
			StudentCode: req.StudentCode,
			FacultyID:   req.FacultyID,
			WorkerID:    req.WorkerID,
		},
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	case errors.Is(err, ports.ErrAccountExists):
		writeError(w, http.StatusConflict, errs.Message(err))
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, identity.ErrInvalidRole), errors.Is(err, identity.ErrRoleNotSelfServed):
		writeError(w, http.StatusBadRequest, errs.Message(err))
	default:
		writeError(w, http.StatusInternalServerError, errs.Message(err))
	}
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	session, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, errs.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	session, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidSession) {
			writeError(w, http.StatusUnauthorized, "invalid_session")
			return
		}
		writeError(w, http.StatusInternalServerError, errs.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleSignOut always answers ok; clients clear local state regardless.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.RefreshToken) != "" {
		_ = s.auth.SignOut(r.Context(), req.RefreshToken)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	profile, err := s.profiles.GetProfile(r.Context(), p.User.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errs.Message(err))
		return
	}

	resp := meResponse{
		User:      p.User,
		Profile:   profile,
		IsAdmin:   p.Role == identity.RoleAdmin,
		IsWorker:  p.Role == identity.RoleWorker,
		IsStudent: p.Role == identity.RoleStudent,
		IsFaculty: p.Role == identity.RoleFaculty,
	}
	if p.Role != "" {
		role := p.Role
		resp.Role = &role
	}
	writeJSON(w, http.StatusOK, resp)
}
