package model

import "time"

type Account struct {
	ID           string    `gorm:"column:id;type:text;primaryKey"`
	Email        string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (Account) TableName() string {
	return "accounts"
}

type AuthSession struct {
	ID               string     `gorm:"column:id;type:text;primaryKey"`
	UserID           string     `gorm:"column:user_id;type:text;not null;index"`
	RefreshTokenHash string     `gorm:"column:refresh_token_hash;type:text;not null;uniqueIndex"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null"`
	ExpiresAt        time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt        *time.Time `gorm:"column:revoked_at"`
}

func (AuthSession) TableName() string {
	return "auth_sessions"
}
