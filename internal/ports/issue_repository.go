package ports

import (
	"context"
	"errors"
	"time"

	"fixversity/internal/domain/issue"
)

var ErrIssueNotFound = errors.New("issue not found")

// IssueFilter narrows ListIssues. Empty fields do not filter.
type IssueFilter struct {
	UserID     string
	AssignedTo string
}

type NewIssue struct {
	UserID string
	Draft  issue.Draft
}

// IssuePatch is a single field-set update applied to one row.
type IssuePatch struct {
	Status        *issue.Status
	Priority      *issue.Priority
	AssignedTo    Nullable[string]
	AdminNotes    *string
	EstimatedTime Nullable[int]
	Rating        *int
	ResolvedAt    Nullable[time.Time]
}

func (p IssuePatch) Empty() bool {
	return p.Status == nil &&
		p.Priority == nil &&
		!p.AssignedTo.Set &&
		p.AdminNotes == nil &&
		!p.EstimatedTime.Set &&
		p.Rating == nil &&
		!p.ResolvedAt.Set
}

// RatedAssignment is the projection read by rating aggregation.
type RatedAssignment struct {
	AssignedTo *string
	Rating     *int
}

type IssueReadRepository interface {
	// ListIssues returns issues ordered by created_at descending.
	ListIssues(ctx context.Context, filter IssueFilter) ([]issue.Issue, error)
	// GetIssue returns nil without error when no row matches.
	GetIssue(ctx context.Context, id string) (*issue.Issue, error)
	// ListRatedAssignments returns rows where assigned_to and rating are both set.
	ListRatedAssignments(ctx context.Context) ([]RatedAssignment, error)
}

type IssueRepository interface {
	IssueReadRepository
	CreateIssue(ctx context.Context, input NewIssue) (issue.Issue, error)
	UpdateIssue(ctx context.Context, id string, patch IssuePatch) (issue.Issue, error)
}
