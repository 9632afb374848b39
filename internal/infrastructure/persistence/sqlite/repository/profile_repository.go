package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/persistence/sqlite/model"
	"fixversity/internal/ports"
)

type ProfileRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db, now: utcNow}
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*identity.Profile, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var row model.Profile
	if err := db.Where("user_id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "query profile")
	}
	profile := mapProfile(row)
	return &profile, nil
}

func (r *ProfileRepository) ListProfilesByUserIDs(ctx context.Context, userIDs []string) ([]identity.Profile, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return []identity.Profile{}, nil
	}

	var rows []model.Profile
	if err := db.Where("user_id IN ?", userIDs).Order("full_name asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query profiles by user ids")
	}

	items := make([]identity.Profile, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapProfile(row))
	}
	return items, nil
}

func (r *ProfileRepository) CreateProfile(ctx context.Context, profile identity.Profile) (identity.Profile, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return identity.Profile{}, err
	}
	if strings.TrimSpace(profile.UserID) == "" {
		return identity.Profile{}, errors.New("user id is required")
	}

	now := r.now()
	row := model.Profile{
		ID:          profile.ID,
		UserID:      profile.UserID,
		FullName:    strings.TrimSpace(profile.FullName),
		Email:       strings.TrimSpace(profile.Email),
		Phone:       profile.Phone,
		StudentCode: profile.StudentCode,
		FacultyID:   profile.FacultyID,
		WorkerID:    profile.WorkerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if err := db.Create(&row).Error; err != nil {
		return identity.Profile{}, errs.Wrap(err, "insert profile")
	}
	return mapProfile(row), nil
}

func mapProfile(row model.Profile) identity.Profile {
	return identity.Profile{
		ID:          row.ID,
		UserID:      row.UserID,
		FullName:    row.FullName,
		Email:       row.Email,
		Phone:       row.Phone,
		StudentCode: row.StudentCode,
		FacultyID:   row.FacultyID,
		WorkerID:    row.WorkerID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
