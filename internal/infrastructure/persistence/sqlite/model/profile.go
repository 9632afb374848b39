package model

import "time"

type Profile struct {
	ID          string    `gorm:"column:id;type:text;primaryKey"`
	UserID      string    `gorm:"column:user_id;type:text;not null;uniqueIndex"`
	FullName    string    `gorm:"column:full_name;type:text;not null"`
	Email       string    `gorm:"column:email;type:text;not null"`
	Phone       *string   `gorm:"column:phone;type:text"`
	StudentCode *string   `gorm:"column:student_code;type:text"`
	FacultyID   *string   `gorm:"column:faculty_id;type:text"`
	WorkerID    *string   `gorm:"column:worker_id;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (Profile) TableName() string {
	return "profiles"
}
