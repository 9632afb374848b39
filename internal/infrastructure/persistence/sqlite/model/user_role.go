package model

import "time"

type UserRole struct {
	ID        string    `gorm:"column:id;type:text;primaryKey"`
	UserID    string    `gorm:"column:user_id;type:text;not null;uniqueIndex"`
	Role      string    `gorm:"column:role;type:text;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
