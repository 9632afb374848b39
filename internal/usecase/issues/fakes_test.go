package issues

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"fixversity/internal/domain/identity"
	"fixversity/internal/domain/issue"
	"fixversity/internal/infrastructure/cache"
	"fixversity/internal/infrastructure/notify"
	"fixversity/internal/ports"
	"fixversity/internal/query"
)

type fakeIssueRepo struct {
	mu          sync.Mutex
	items       []issue.Issue
	listErr     error
	listCalls   int
	getCalls    int
	ratedCalls  int
	createCalls int
	patches     []ports.IssuePatch
}

func (r *fakeIssueRepo) ListIssues(_ context.Context, filter ports.IssueFilter) ([]issue.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]issue.Issue, 0, len(r.items))
	for _, item := range r.items {
		if filter.UserID != "" && !item.SubmittedBy(filter.UserID) {
			continue
		}
		if filter.AssignedTo != "" && !item.AssignedToUser(filter.AssignedTo) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeIssueRepo) GetIssue(_ context.Context, id string) (*issue.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	for _, item := range r.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeIssueRepo) ListRatedAssignments(context.Context) ([]ports.RatedAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratedCalls++
	out := make([]ports.RatedAssignment, 0)
	for _, item := range r.items {
		if item.AssignedTo != nil && item.Rating != nil {
			out = append(out, ports.RatedAssignment{AssignedTo: item.AssignedTo, Rating: item.Rating})
		}
	}
	return out, nil
}

func (r *fakeIssueRepo) CreateIssue(_ context.Context, input ports.NewIssue) (issue.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	userID := input.UserID
	created := issue.Issue{
		ID:          "new-" + userID,
		UserID:      &userID,
		Title:       input.Draft.Title,
		Description: input.Draft.Description,
		Category:    input.Draft.Category,
		Status:      issue.StatusOpen,
		Priority:    input.Draft.Priority,
		Building:    input.Draft.Building,
		RoomNumber:  input.Draft.RoomNumber,
		ImageURL:    input.Draft.ImageURL,
	}
	r.items = append([]issue.Issue{created}, r.items...)
	return created, nil
}

func (r *fakeIssueRepo) UpdateIssue(_ context.Context, id string, patch ports.IssuePatch) (issue.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = append(r.patches, patch)
	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		item := &r.items[i]
		if patch.Status != nil {
			item.Status = *patch.Status
		}
		if patch.Priority != nil {
			item.Priority = *patch.Priority
		}
		if patch.AssignedTo.Set {
			item.AssignedTo = patch.AssignedTo.Value
		}
		if patch.AdminNotes != nil {
			item.AdminNotes = patch.AdminNotes
		}
		if patch.EstimatedTime.Set {
			item.EstimatedTime = patch.EstimatedTime.Value
		}
		if patch.Rating != nil {
			item.Rating = patch.Rating
		}
		if patch.ResolvedAt.Set {
			item.ResolvedAt = patch.ResolvedAt.Value
		}
		return *item, nil
	}
	return issue.Issue{}, ports.ErrIssueNotFound
}

func (r *fakeIssueRepo) lastPatch() ports.IssuePatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.patches[len(r.patches)-1]
}

type fakeProfiles struct {
	mu    sync.Mutex
	rows  []identity.Profile
	err   error
	calls [][]string
}

func (f *fakeProfiles) ListProfilesByUserIDs(_ context.Context, userIDs []string) ([]identity.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slices.Clone(userIDs))
	if f.err != nil {
		return nil, f.err
	}
	out := make([]identity.Profile, 0)
	for _, row := range f.rows {
		if slices.Contains(userIDs, row.UserID) {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeRoles struct {
	roles map[string]identity.Role
	calls int
}

func (f *fakeRoles) GetRole(_ context.Context, userID string) (identity.Role, error) {
	return f.roles[userID], nil
}

func (f *fakeRoles) ListUserIDsByRole(_ context.Context, role identity.Role) ([]string, error) {
	f.calls++
	out := make([]string, 0)
	for userID, r := range f.roles {
		if r == role {
			out = append(out, userID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (f *fakeRoles) SetRole(_ context.Context, userID string, role identity.Role) error {
	f.roles[userID] = role
	return nil
}

type fakeStorage struct {
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeStorage) Put(_ context.Context, key string, content io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return err
	}
	f.objects[key] = buf.Bytes()
	f.types[key] = contentType
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "http://files.test/issue-images/" + key
}

type recordedEvent struct {
	subject string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{subject: subject, payload: payload})
	return f.err
}

func (f *fakePublisher) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.subject
	}
	return out
}

type fixture struct {
	svc       *Service
	repo      *fakeIssueRepo
	profiles  *fakeProfiles
	roles     *fakeRoles
	storage   *fakeStorage
	notes     *notify.Recorder
	publisher *fakePublisher
	now       time.Time
}

func newFixture(items ...issue.Issue) *fixture {
	f := &fixture{
		repo:      &fakeIssueRepo{items: items},
		profiles:  &fakeProfiles{},
		roles:     &fakeRoles{roles: make(map[string]identity.Role)},
		storage:   &fakeStorage{objects: make(map[string][]byte), types: make(map[string]string)},
		notes:     &notify.Recorder{},
		publisher: &fakePublisher{},
		now:       time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		Issues:   f.repo,
		Profiles: f.profiles,
		Roles:    f.roles,
		Queries:  query.NewClient(cache.NewMemoryCache(), 0),
		Storage:  f.storage,
		Notifier: f.notes,
		Events:   f.publisher,
		Now:      func() time.Time { return f.now },
	})
	return f
}

func strPtr(v string) *string {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func sampleIssue(id string, submitter string, assignee *string) issue.Issue {
	return issue.Issue{
		ID:         id,
		UserID:     strPtr(submitter),
		Title:      "Issue " + id,
		Category:   issue.CategoryPlumbing,
		Status:     issue.StatusOpen,
		Priority:   issue.PriorityMedium,
		Building:   "Library",
		RoomNumber: "101",
		AssignedTo: assignee,
	}
}
