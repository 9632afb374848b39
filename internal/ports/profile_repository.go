package ports

import (
	"context"

	"fixversity/internal/domain/identity"
)

type ProfileReader interface {
	// GetProfile returns nil without error when the user has no profile yet.
	GetProfile(ctx context.Context, userID string) (*identity.Profile, error)
}

// ProfileBatchReader fetches profiles by an IN-list of user ids.
type ProfileBatchReader interface {
	ListProfilesByUserIDs(ctx context.Context, userIDs []string) ([]identity.Profile, error)
}

type ProfileRepository interface {
	ProfileReader
	ProfileBatchReader
	CreateProfile(ctx context.Context, profile identity.Profile) (identity.Profile, error)
}

type RoleReader interface {
	// GetRole returns the empty role without error when the user has no role row.
	GetRole(ctx context.Context, userID string) (identity.Role, error)
}

type RoleRepository interface {
	RoleReader
	ListUserIDsByRole(ctx context.Context, role identity.Role) ([]string, error)
	SetRole(ctx context.Context, userID string, role identity.Role) error
}

// RoleListener is told after a role row has been written.
type RoleListener interface {
	RoleChanged(ctx context.Context, userID string, role identity.Role)
}
