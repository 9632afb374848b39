package issues

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
	"fixversity/internal/query"
)

// UpdateIssueInput is a partial update. Nil pointers and unset Nullables
// leave the column unchanged.
type UpdateIssueInput struct {
	ID            string
	Status        *issue.Status
	Priority      *issue.Priority
	AssignedTo    ports.Nullable[string]
	AdminNotes    *string
	EstimatedTime ports.Nullable[int]
}

// Fields lists the columns the input writes, in a stable order.
func (in UpdateIssueInput) Fields() []string {
	fields := make([]string, 0, 5)
	if in.Status != nil {
		fields = append(fields, "status")
	}
	if in.Priority != nil {
		fields = append(fields, "priority")
	}
	if in.AssignedTo.Set {
		fields = append(fields, "assigned_to")
	}
	if in.AdminNotes != nil {
		fields = append(fields, "admin_notes")
	}
	if in.EstimatedTime.Set {
		fields = append(fields, "estimated_time")
	}
	return fields
}

// UpdateIssue applies input as one single-row update. Moving to resolved
// stamps resolved_at with the service clock; any other status clears it.
func (s *Service) UpdateIssue(ctx context.Context, viewer Viewer, input UpdateIssueInput) (issue.Issue, error) {
	if err := checkContext(ctx); err != nil {
		return issue.Issue{}, err
	}
	if s.issues == nil {
		return issue.Issue{}, errRepositoryRequired
	}

	id := strings.TrimSpace(input.ID)
	patch, err := s.buildPatch(input, s.now())
	if err == nil && id == "" {
		err = issue.ErrIDRequired
	}
	if err != nil {
		return issue.Issue{}, s.fail(ctx, viewer.UserID, err)
	}

	updated, err := s.issues.UpdateIssue(ctx, id, patch)
	if err != nil {
		return issue.Issue{}, s.fail(ctx, viewer.UserID, errs.Wrapf(err, "update issue %s", id))
	}

	var extra []query.Key
	if input.AssignedTo.Set {
		// Ratings are credited to the assignee.
		extra = append(extra, query.WorkerRatingsKey)
	}
	s.succeed(ctx, viewer.UserID, MsgIssueUpdated, EventIssueUpdated, updated, extra...)
	return updated, nil
}

func (s *Service) buildPatch(input UpdateIssueInput, now time.Time) (ports.IssuePatch, error) {
	patch := ports.IssuePatch{
		Priority:   input.Priority,
		AdminNotes: input.AdminNotes,
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return ports.IssuePatch{}, fmt.Errorf("%w: %q", issue.ErrInvalidStatus, *input.Status)
		}
		patch.Status = input.Status
		if *input.Status == issue.StatusResolved {
			patch.ResolvedAt = ports.SetTo(now)
		} else {
			patch.ResolvedAt = ports.Clear[time.Time]()
		}
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return ports.IssuePatch{}, fmt.Errorf("%w: %q", issue.ErrInvalidPriority, *input.Priority)
	}

	if input.AssignedTo.Set {
		patch.AssignedTo = input.AssignedTo
		if v := input.AssignedTo.Value; v != nil {
			trimmed := strings.TrimSpace(*v)
			if trimmed == "" {
				patch.AssignedTo = ports.Clear[string]()
			} else {
				patch.AssignedTo = ports.SetTo(trimmed)
			}
		}
	}

	if input.EstimatedTime.Set {
		if v := input.EstimatedTime.Value; v != nil {
			if err := issue.ValidateEstimatedTime(*v); err != nil {
				return ports.IssuePatch{}, err
			}
		}
		patch.EstimatedTime = input.EstimatedTime
	}
	return patch, nil
}
