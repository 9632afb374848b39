package issue

import "errors"

var (
	ErrInvalidCategory      = errors.New("invalid issue category")
	ErrInvalidStatus        = errors.New("invalid issue status")
	ErrInvalidPriority      = errors.New("invalid issue priority")
	ErrTitleRequired        = errors.New("title is required")
	ErrDescriptionRequired  = errors.New("description is required")
	ErrBuildingRequired     = errors.New("building is required")
	ErrRoomRequired         = errors.New("room number is required")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrInvalidEstimatedTime = errors.New("estimated time must be a positive number of minutes")
	ErrIDRequired           = errors.New("issue id is required")
)
