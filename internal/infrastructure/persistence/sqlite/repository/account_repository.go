package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/persistence/sqlite/model"
	"fixversity/internal/ports"
)

type AccountRepository struct {
	db *gorm.DB
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) CreateAccount(ctx context.Context, account ports.Account) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	email := normalizeEmail(account.Email)
	var count int64
	if err := db.Model(&model.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return errs.Wrap(err, "check account email")
	}
	if count > 0 {
		return ports.ErrAccountExists
	}

	row := model.Account{
		ID:           account.ID,
		Email:        email,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert account")
	}
	return nil
}

func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (ports.Account, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Account{}, err
	}
	return takeAccount(db.Where("email = ?", normalizeEmail(email)))
}

func (r *AccountRepository) GetAccountByID(ctx context.Context, id string) (ports.Account, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Account{}, err
	}
	return takeAccount(db.Where("id = ?", id))
}

func (r *AccountRepository) CreateAuthSession(ctx context.Context, record ports.AuthSessionRecord) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.AuthSession{
		ID:               record.ID,
		UserID:           record.UserID,
		RefreshTokenHash: record.RefreshTokenHash,
		CreatedAt:        record.CreatedAt,
		ExpiresAt:        record.ExpiresAt,
		RevokedAt:        record.RevokedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert auth session")
	}
	return nil
}

func (r *AccountRepository) GetAuthSessionByHash(ctx context.Context, refreshTokenHash string) (ports.AuthSessionRecord, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.AuthSessionRecord{}, err
	}

	var row model.AuthSession
	if err := db.Where("refresh_token_hash = ?", refreshTokenHash).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.AuthSessionRecord{}, ports.ErrInvalidSession
		}
		return ports.AuthSessionRecord{}, errs.Wrap(err, "query auth session")
	}
	return ports.AuthSessionRecord{
		ID:               row.ID,
		UserID:           row.UserID,
		RefreshTokenHash: row.RefreshTokenHash,
		CreatedAt:        row.CreatedAt,
		ExpiresAt:        row.ExpiresAt,
		RevokedAt:        row.RevokedAt,
	}, nil
}

func (r *AccountRepository) RevokeAuthSession(ctx context.Context, id string, revokedAt time.Time) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	if err := db.Model(&model.AuthSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", revokedAt.UTC()).Error; err != nil {
		return errs.Wrap(err, "revoke auth session")
	}
	return nil
}

func (r *AccountRepository) RevokeAuthSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	if err := db.Model(&model.AuthSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", revokedAt.UTC()).Error; err != nil {
		return errs.Wrap(err, "revoke user auth sessions")
	}
	return nil
}

func takeAccount(query *gorm.DB) (ports.Account, error) {
	var row model.Account
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Account{}, ports.ErrAccountNotFound
		}
		return ports.Account{}, errs.Wrap(err, "query account")
	}
	return ports.Account{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
