package issue

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryElectrical Category = "electrical"
	CategoryPlumbing   Category = "plumbing"
	CategoryHVAC       Category = "hvac"
	CategoryCleaning   Category = "cleaning"
	CategoryIT         Category = "it"
	CategoryFurniture  Category = "furniture"
	CategorySafety     Category = "safety"
	CategoryOther      Category = "other"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func AllCategories() []Category {
	return []Category{
		CategoryElectrical,
		CategoryPlumbing,
		CategoryHVAC,
		CategoryCleaning,
		CategoryIT,
		CategoryFurniture,
		CategorySafety,
		CategoryOther,
	}
}

func AllStatuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusResolved}
}

func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

func ParseCategory(raw string) (Category, error) {
	value := Category(normalizeEnum(raw))
	if _, ok := categoryDescriptors[value]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
	}
	return value, nil
}

func ParseStatus(raw string) (Status, error) {
	value := Status(normalizeEnum(raw))
	if _, ok := statusDescriptors[value]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return value, nil
}

func ParsePriority(raw string) (Priority, error) {
	value := Priority(normalizeEnum(raw))
	if _, ok := priorityDescriptors[value]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
	return value, nil
}

func (c Category) Valid() bool {
	_, ok := categoryDescriptors[c]
	return ok
}

func (s Status) Valid() bool {
	_, ok := statusDescriptors[s]
	return ok
}

func (p Priority) Valid() bool {
	_, ok := priorityDescriptors[p]
	return ok
}

// normalizeEnum accepts "In Progress" and "in-progress" as well as the stored form.
func normalizeEnum(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	return strings.ReplaceAll(value, " ", "_")
}
