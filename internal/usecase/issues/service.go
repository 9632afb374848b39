package issues

import (
	"context"
	"errors"
	"time"

	"fixversity/internal/domain/identity"
	"fixversity/internal/domain/issue"
	"fixversity/internal/ports"
	"fixversity/internal/query"
	"fixversity/internal/usecase/session"
)

// Outcome messages shown to the user after a mutation.
const (
	MsgIssueCreated = "Issue reported successfully!"
	MsgIssueUpdated = "Issue updated successfully!"
	MsgIssueRated   = "Thank you for your feedback!"
)

// Domain event names.
const (
	EventIssueCreated = "issue.created"
	EventIssueUpdated = "issue.updated"
	EventIssueRated   = "issue.rated"
)

var (
	errRepositoryRequired = errors.New("issue repository is required")
	errViewerRequired     = errors.New("an authenticated user is required")
)

type Viewer = session.Viewer

type Service struct {
	issues   ports.IssueRepository
	profiles ports.ProfileBatchReader
	roles    ports.RoleRepository
	queries  *query.Client
	storage  ports.ObjectStorage
	notifier ports.Notifier
	events   ports.EventPublisher
	now      func() time.Time
}

type Deps struct {
	Issues   ports.IssueRepository
	Profiles ports.ProfileBatchReader
	Roles    ports.RoleRepository
	Queries  *query.Client
	Storage  ports.ObjectStorage
	Notifier ports.Notifier
	Events   ports.EventPublisher
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

// NewService wires issue reads and mutations. Notifier and Events are optional.
func NewService(deps Deps) *Service {
	s := &Service{
		issues:   deps.Issues,
		profiles: deps.Profiles,
		roles:    deps.Roles,
		queries:  deps.Queries,
		storage:  deps.Storage,
		notifier: deps.Notifier,
		events:   deps.Events,
		now:      deps.Now,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// IssueWithWorker is an own-issue joined with the assigned worker's profile.
type IssueWithWorker struct {
	issue.Issue
	Worker *identity.Profile `json:"worker"`
}

// IssueWithSubmitter is an issue joined with its submitter's profile.
type IssueWithSubmitter struct {
	issue.Issue
	Submitter *identity.Profile `json:"submitter"`
}

type WorkerRating struct {
	WorkerID      string  `json:"worker_id"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, ports.Notification) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }
