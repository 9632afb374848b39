package issues

import (
	"context"
	"strings"

	"fixversity/internal/domain/identity"
	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
	"fixversity/internal/query"
)

// OwnIssues lists the viewer's submitted issues, newest first, each joined
// with the assigned worker's profile. A failed profile fetch degrades to nil
// workers. Enabled for students and faculty.
func (s *Service) OwnIssues(ctx context.Context, viewer Viewer) (query.Result[[]IssueWithWorker], error) {
	enabled := viewer.Authenticated() && viewer.Role.Submitter()
	return query.Fetch(ctx, s.queries, query.UserIssues(viewer.UserID), enabled, func(ctx context.Context) ([]IssueWithWorker, error) {
		items, err := s.issues.ListIssues(ctx, ports.IssueFilter{UserID: viewer.UserID})
		if err != nil {
			return nil, errs.Wrap(err, "list own issues")
		}
		joined, err := Enrich(ctx, items, assigneeOf, s.profiles, DegradeToNull)
		if err != nil {
			return nil, err
		}
		out := make([]IssueWithWorker, len(joined))
		for i, j := range joined {
			out[i] = IssueWithWorker{Issue: j.Item, Worker: j.Profile}
		}
		return out, nil
	})
}

// AssignedIssues lists issues assigned to the viewer. Enabled for workers.
func (s *Service) AssignedIssues(ctx context.Context, viewer Viewer) (query.Result[[]issue.Issue], error) {
	enabled := viewer.Authenticated() && viewer.Role == identity.RoleWorker
	return query.Fetch(ctx, s.queries, query.WorkerIssues(viewer.UserID), enabled, func(ctx context.Context) ([]issue.Issue, error) {
		items, err := s.issues.ListIssues(ctx, ports.IssueFilter{AssignedTo: viewer.UserID})
		if err != nil {
			return nil, errs.Wrap(err, "list assigned issues")
		}
		return items, nil
	})
}

// AllIssues lists every issue. Enabled for admins.
func (s *Service) AllIssues(ctx context.Context, viewer Viewer) (query.Result[[]issue.Issue], error) {
	enabled := viewer.Role == identity.RoleAdmin
	return query.Fetch(ctx, s.queries, query.AllIssuesKey, enabled, func(ctx context.Context) ([]issue.Issue, error) {
		items, err := s.issues.ListIssues(ctx, ports.IssueFilter{})
		if err != nil {
			return nil, errs.Wrap(err, "list all issues")
		}
		return items, nil
	})
}

// AllIssuesWithSubmitters lists every issue joined with its submitter's
// profile. A failed profile fetch fails the read. Enabled for admins.
func (s *Service) AllIssuesWithSubmitters(ctx context.Context, viewer Viewer) (query.Result[[]IssueWithSubmitter], error) {
	enabled := viewer.Role == identity.RoleAdmin
	return query.Fetch(ctx, s.queries, query.WithSubmittersKey, enabled, func(ctx context.Context) ([]IssueWithSubmitter, error) {
		items, err := s.issues.ListIssues(ctx, ports.IssueFilter{})
		if err != nil {
			return nil, errs.Wrap(err, "list all issues")
		}
		joined, err := Enrich(ctx, items, submitterOf, s.profiles, Propagate)
		if err != nil {
			return nil, err
		}
		out := make([]IssueWithSubmitter, len(joined))
		for i, j := range joined {
			out[i] = IssueWithSubmitter{Issue: j.Item, Submitter: j.Profile}
		}
		return out, nil
	})
}

// Issue returns one issue by id; Data is nil when no row matches.
func (s *Service) Issue(ctx context.Context, id string) (query.Result[*issue.Issue], error) {
	id = strings.TrimSpace(id)
	return query.Fetch(ctx, s.queries, query.IssueByID(id), id != "", func(ctx context.Context) (*issue.Issue, error) {
		found, err := s.issues.GetIssue(ctx, id)
		if err != nil {
			return nil, errs.Wrapf(err, "get issue %s", id)
		}
		return found, nil
	})
}

// WorkerRatings averages submitter ratings per worker. Enabled for any role.
func (s *Service) WorkerRatings(ctx context.Context, viewer Viewer) (query.Result[[]WorkerRating], error) {
	enabled := viewer.Role != ""
	return query.Fetch(ctx, s.queries, query.WorkerRatingsKey, enabled, func(ctx context.Context) ([]WorkerRating, error) {
		rows, err := s.issues.ListRatedAssignments(ctx)
		if err != nil {
			return nil, errs.Wrap(err, "list rated assignments")
		}
		return AggregateRatings(rows), nil
	})
}

// Workers lists the profiles of every user holding the worker role, for
// assignment. Enabled for admins.
func (s *Service) Workers(ctx context.Context, viewer Viewer) (query.Result[[]identity.Profile], error) {
	enabled := viewer.Role == identity.RoleAdmin
	return query.Fetch(ctx, s.queries, query.WorkersKey, enabled, func(ctx context.Context) ([]identity.Profile, error) {
		userIDs, err := s.roles.ListUserIDsByRole(ctx, identity.RoleWorker)
		if err != nil {
			return nil, errs.Wrap(err, "list worker ids")
		}
		if len(userIDs) == 0 {
			return []identity.Profile{}, nil
		}
		profiles, err := s.profiles.ListProfilesByUserIDs(ctx, userIDs)
		if err != nil {
			return nil, errs.Wrap(err, "list worker profiles")
		}
		return profiles, nil
	})
}

func assigneeOf(i issue.Issue) *string {
	return i.AssignedTo
}

func submitterOf(i issue.Issue) *string {
	return i.UserID
}
