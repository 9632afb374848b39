package issues

import (
	"context"
	"errors"
	"slices"
	"strings"

	"fixversity/internal/domain/identity"
	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

var (
	ErrForbidden         = errors.New("not permitted for this role")
	ErrAssigneeNotWorker = errors.New("assigned user is not a worker")
)

// Fields a worker may change on an issue assigned to them.
var workerWritableFields = []string{"status", "admin_notes"}

// AuthorizeCreate allows students and faculty to report issues.
func AuthorizeCreate(viewer Viewer) error {
	if !viewer.Authenticated() {
		return errViewerRequired
	}
	if !viewer.Role.Submitter() {
		return ErrForbidden
	}
	return nil
}

// AuthorizeUpdate allows admins to change any field and workers to change
// status and notes of issues assigned to them. A new assignee must hold the
// worker role.
func (s *Service) AuthorizeUpdate(ctx context.Context, viewer Viewer, input UpdateIssueInput) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !viewer.Authenticated() {
		return errViewerRequired
	}

	switch viewer.Role {
	case identity.RoleAdmin:
		if input.AssignedTo.Set && input.AssignedTo.Value != nil {
			assignee := strings.TrimSpace(*input.AssignedTo.Value)
			if assignee == "" {
				return nil
			}
			role, err := s.roles.GetRole(ctx, assignee)
			if err != nil {
				return errs.Wrapf(err, "get role of %s", assignee)
			}
			if role != identity.RoleWorker {
				return ErrAssigneeNotWorker
			}
		}
		return nil
	case identity.RoleWorker:
		for _, field := range input.Fields() {
			if !slices.Contains(workerWritableFields, field) {
				return ErrForbidden
			}
		}
		current, err := s.lookup(ctx, input.ID)
		if err != nil {
			return err
		}
		if !current.AssignedToUser(viewer.UserID) {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// AuthorizeRate allows only the submitter to rate an issue.
func (s *Service) AuthorizeRate(ctx context.Context, viewer Viewer, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !viewer.Authenticated() {
		return errViewerRequired
	}
	current, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if !current.SubmittedBy(viewer.UserID) {
		return ErrForbidden
	}
	return nil
}

// lookup reads the row directly, bypassing the query cache.
func (s *Service) lookup(ctx context.Context, id string) (issue.Issue, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return issue.Issue{}, issue.ErrIDRequired
	}
	current, err := s.issues.GetIssue(ctx, id)
	if err != nil {
		return issue.Issue{}, errs.Wrapf(err, "get issue %s", id)
	}
	if current == nil {
		return issue.Issue{}, ports.ErrIssueNotFound
	}
	return *current, nil
}
