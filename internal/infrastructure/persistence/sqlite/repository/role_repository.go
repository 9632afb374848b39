package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/persistence/sqlite/model"
	"fixversity/internal/ports"
)

type RoleRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.RoleRepository = (*RoleRepository)(nil)

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db, now: utcNow}
}

func (r *RoleRepository) GetRole(ctx context.Context, userID string) (identity.Role, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return "", err
	}

	var row model.UserRole
	if err := db.Where("user_id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", errs.Wrap(err, "query user role")
	}
	return identity.Role(row.Role), nil
}

func (r *RoleRepository) ListUserIDsByRole(ctx context.Context, role identity.Role) ([]string, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var userIDs []string
	if err := db.Model(&model.UserRole{}).
		Where("role = ?", string(role)).
		Order("created_at asc").
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, errs.Wrap(err, "query user ids by role")
	}
	if userIDs == nil {
		userIDs = []string{}
	}
	return userIDs, nil
}

// SetRole upserts the single role row of userID.
func (r *RoleRepository) SetRole(ctx context.Context, userID string, role identity.Role) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	if _, err := identity.ParseRole(string(role)); err != nil {
		return err
	}

	row := model.UserRole{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      string(role),
		CreatedAt: r.now(),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"role": row.Role}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert user role")
	}
	return nil
}
