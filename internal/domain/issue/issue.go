package issue

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Issue is a reported facilities problem. ResolvedAt is non-nil exactly when
// Status is resolved.
type Issue struct {
	ID            string     `json:"id"`
	UserID        *string    `json:"user_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      Category   `json:"category"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority"`
	Building      string     `json:"building"`
	RoomNumber    string     `json:"room_number"`
	ImageURL      *string    `json:"image_url"`
	AssignedTo    *string    `json:"assigned_to"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	AdminNotes    *string    `json:"admin_notes"`
	EstimatedTime *int       `json:"estimated_time"`
	Rating        *int       `json:"rating"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SubmittedBy reports whether userID is the original submitter.
func (i Issue) SubmittedBy(userID string) bool {
	return i.UserID != nil && userID != "" && *i.UserID == userID
}

// AssignedToUser reports whether userID is the assigned worker.
func (i Issue) AssignedToUser(userID string) bool {
	return i.AssignedTo != nil && userID != "" && *i.AssignedTo == userID
}

// Draft carries the submitter-provided fields of a new issue.
type Draft struct {
	Title       string
	Description string
	Category    Category
	Priority    Priority
	Building    string
	RoomNumber  string
	ImageURL    *string
}

// Normalize trims free-text fields and validates enums; it returns the cleaned draft.
func (d Draft) Normalize() (Draft, error) {
	out := Draft{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Category:    d.Category,
		Priority:    d.Priority,
		Building:    strings.TrimSpace(d.Building),
		RoomNumber:  strings.TrimSpace(d.RoomNumber),
	}
	if d.ImageURL != nil {
		if url := strings.TrimSpace(*d.ImageURL); url != "" {
			out.ImageURL = &url
		}
	}

	switch {
	case out.Title == "":
		return Draft{}, ErrTitleRequired
	case out.Description == "":
		return Draft{}, ErrDescriptionRequired
	case out.Building == "":
		return Draft{}, ErrBuildingRequired
	case out.RoomNumber == "":
		return Draft{}, ErrRoomRequired
	}
	if !out.Category.Valid() {
		return Draft{}, fmt.Errorf("%w: %q", ErrInvalidCategory, out.Category)
	}
	if out.Priority == "" {
		out.Priority = PriorityMedium
	}
	if !out.Priority.Valid() {
		return Draft{}, fmt.Errorf("%w: %q", ErrInvalidPriority, out.Priority)
	}
	return out, nil
}

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	return nil
}

func ValidateEstimatedTime(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidEstimatedTime, minutes)
	}
	return nil
}
