package session

import "fixversity/internal/domain/identity"

// Viewer is the identity the issue usecases scope reads and stamp writes with.
type Viewer struct {
	UserID string
	Role   identity.Role
}

func (v Viewer) Authenticated() bool {
	return v.UserID != ""
}

// Snapshot is an immutable copy of the provider state.
type Snapshot struct {
	Session *identity.Session
	User    *identity.User
	Profile *identity.Profile
	Role    identity.Role
	// Loading is true until the initial session check has finished.
	Loading bool

	// revision grows with every state change.
	revision uint64
}

func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

func (s Snapshot) IsAdmin() bool   { return s.Role == identity.RoleAdmin }
func (s Snapshot) IsWorker() bool  { return s.Role == identity.RoleWorker }
func (s Snapshot) IsStudent() bool { return s.Role == identity.RoleStudent }
func (s Snapshot) IsFaculty() bool { return s.Role == identity.RoleFaculty }

func (s Snapshot) Viewer() Viewer {
	if s.User == nil {
		return Viewer{}
	}
	return Viewer{UserID: s.User.ID, Role: s.Role}
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Role: s.Role, Loading: s.Loading, revision: s.revision}
	if s.Session != nil {
		session := *s.Session
		out.Session = &session
	}
	if s.User != nil {
		user := *s.User
		out.User = &user
	}
	if s.Profile != nil {
		profile := *s.Profile
		out.Profile = &profile
	}
	return out
}
