package issues

import (
	"context"

	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

type CreateIssueInput struct {
	Title       string
	Description string
	Category    issue.Category
	Priority    issue.Priority
	Building    string
	RoomNumber  string
	ImageURL    *string
}

// CreateIssue files a new open, unassigned issue owned by the viewer.
func (s *Service) CreateIssue(ctx context.Context, viewer Viewer, input CreateIssueInput) (issue.Issue, error) {
	if err := checkContext(ctx); err != nil {
		return issue.Issue{}, err
	}
	if s.issues == nil {
		return issue.Issue{}, errRepositoryRequired
	}
	if !viewer.Authenticated() {
		return issue.Issue{}, errViewerRequired
	}

	draft, err := issue.Draft{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		Building:    input.Building,
		RoomNumber:  input.RoomNumber,
		ImageURL:    input.ImageURL,
	}.Normalize()
	if err != nil {
		return issue.Issue{}, s.fail(ctx, viewer.UserID, err)
	}

	created, err := s.issues.CreateIssue(ctx, ports.NewIssue{UserID: viewer.UserID, Draft: draft})
	if err != nil {
		return issue.Issue{}, s.fail(ctx, viewer.UserID, errs.Wrap(err, "create issue"))
	}

	s.succeed(ctx, viewer.UserID, MsgIssueCreated, EventIssueCreated, created)
	return created, nil
}
