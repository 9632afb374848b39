package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRole       = errors.New("invalid role")
	ErrRoleNotSelfServed = errors.New("role cannot be chosen at sign-up")
)

// Role is the single role a user holds. The zero value means "no role".
type Role string

const (
	RoleStudent Role = "student"
	RoleWorker  Role = "worker"
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
)

func AllRoles() []Role {
	return []Role{RoleStudent, RoleWorker, RoleAdmin, RoleFaculty}
}

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleStudent, RoleWorker, RoleAdmin, RoleFaculty:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// ParseSignUpRole resolves the role requested at sign-up. Empty means student;
// admin is granted out of band only.
func ParseSignUpRole(raw string) (Role, error) {
	if strings.TrimSpace(raw) == "" {
		return RoleStudent, nil
	}
	role, err := ParseRole(raw)
	if err != nil {
		return "", err
	}
	if role == RoleAdmin {
		return "", fmt.Errorf("%w: %q", ErrRoleNotSelfServed, raw)
	}
	return role, nil
}

// Submitter reports whether the role reports issues (own-issues view).
func (r Role) Submitter() bool {
	return r == RoleStudent || r == RoleFaculty
}

// User is the authenticated account as seen by clients.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated session handed out by the auth backend.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

type Profile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone"`
	StudentCode *string   `json:"student_code"`
	FacultyID   *string   `json:"faculty_id"`
	WorkerID    *string   `json:"worker_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SignUpMetadata is forwarded with a new account and materialises as the
// profile and role rows.
type SignUpMetadata struct {
	FullName    string  `json:"full_name"`
	Role        Role    `json:"role"`
	StudentCode *string `json:"student_code,omitempty"`
	FacultyID   *string `json:"faculty_id,omitempty"`
	WorkerID    *string `json:"worker_id,omitempty"`
}
