package issues

import (
	"context"
	"strings"

	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
	"fixversity/internal/query"
)

// RateIssue writes only the rating of an issue. Besides the issues prefix it
// invalidates the worker ratings, which are derived from the same column.
func (s *Service) RateIssue(ctx context.Context, viewer Viewer, id string, rating int) (issue.Issue, error) {
	if err := checkContext(ctx); err != nil {
		return issue.Issue{}, err
	}
	if s.issues == nil {
		return issue.Issue{}, errRepositoryRequired
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return issue.Issue{}, s.fail(ctx, viewer.UserID, issue.ErrIDRequired)
	}
	if err := issue.ValidateRating(rating); err != nil {
		return issue.Issue{}, s.fail(ctx, viewer.UserID, err)
	}

	rated, err := s.issues.UpdateIssue(ctx, id, ports.IssuePatch{Rating: &rating})
	if err != nil {
		return issue.Issue{}, s.fail(ctx, viewer.UserID, errs.Wrapf(err, "rate issue %s", id))
	}

	s.succeed(ctx, viewer.UserID, MsgIssueRated, EventIssueRated, rated, query.WorkerRatingsKey)
	return rated, nil
}
