package model

import "time"

type Issue struct {
	ID            string     `gorm:"column:id;type:text;primaryKey"`
	UserID        *string    `gorm:"column:user_id;type:text;index"`
	Title         string     `gorm:"column:title;type:text;not null"`
	Description   string     `gorm:"column:description;type:text;not null"`
	Category      string     `gorm:"column:category;type:text;not null"`
	Status        string     `gorm:"column:status;type:text;not null;default:open"`
	Priority      string     `gorm:"column:priority;type:text;not null;default:medium"`
	Building      string     `gorm:"column:building;type:text;not null"`
	RoomNumber    string     `gorm:"column:room_number;type:text;not null"`
	ImageURL      *string    `gorm:"column:image_url;type:text"`
	AssignedTo    *string    `gorm:"column:assigned_to;type:text;index"`
	ResolvedAt    *time.Time `gorm:"column:resolved_at"`
	AdminNotes    *string    `gorm:"column:admin_notes;type:text"`
	EstimatedTime *int       `gorm:"column:estimated_time"`
	Rating        *int       `gorm:"column:rating"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null;index"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
}

func (Issue) TableName() string {
	return "issues"
}
