package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"fixversity/internal/domain/issue"
	"fixversity/internal/infrastructure/persistence/sqlite/model"
	"fixversity/internal/ports"
)

func setupIssueRepository(t *testing.T) *IssueRepository {
	t.Helper()

	repo := NewIssueRepository(setupDB(t))
	repo.now = steppingClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	return repo
}

func newDraft(title string) issue.Draft {
	return issue.Draft{
		Title:       title,
		Description: "desc",
		Category:    issue.CategoryPlumbing,
		Priority:    issue.PriorityHigh,
		Building:    "Library",
		RoomNumber:  "101",
	}
}

func TestIssueRepositoryCreateDefaults(t *testing.T) {
	repo := setupIssueRepository(t)
	ctx := context.Background()

	created, err := repo.CreateIssue(ctx, ports.NewIssue{UserID: "u1", Draft: newDraft("leak")})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if created.ID == "" {
		t.Fatalf("CreateIssue() id is empty")
	}
	if created.Status != issue.StatusOpen {
		t.Fatalf("status = %q, want open", created.Status)
	}
	if created.AssignedTo != nil || created.Rating != nil || created.ResolvedAt != nil {
		t.Fatalf("unexpected defaults: %+v", created)
	}
	if !created.SubmittedBy("u1") {
		t.Fatalf("user_id = %v, want u1", created.UserID)
	}

	if _, err := repo.CreateIssue(ctx, ports.NewIssue{Draft: newDraft("anon")}); err == nil {
		t.Fatalf("CreateIssue() expected error without user id")
	}
}

func TestIssueRepositoryListOrderAndFilters(t *testing.T) {
	repo := setupIssueRepository(t)
	ctx := context.Background()

	first, err := repo.CreateIssue(ctx, ports.NewIssue{UserID: "u1", Draft: newDraft("first")})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := repo.CreateIssue(ctx, ports.NewIssue{UserID: "u2", Draft: newDraft("second")})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	third, err := repo.CreateIssue(ctx, ports.NewIssue{UserID: "u1", Draft: newDraft("third")})
	if err != nil {
		t.Fatalf("create third: %v", err)
	}
	if _, err := repo.UpdateIssue(ctx, second.ID, ports.IssuePatch{AssignedTo: ports.SetTo("w1")}); err != nil {
		t.Fatalf("assign second: %v", err)
	}

	type testCase struct {
		name   string
		filter ports.IssueFilter
		want   []string
	}
	testCases := []testCase{
		{name: "all", filter: ports.IssueFilter{}, want: []string{third.ID, second.ID, first.ID}},
		{name: "by submitter", filter: ports.IssueFilter{UserID: "u1"}, want: []string{third.ID, first.ID}},
		{name: "by assignee", filter: ports.IssueFilter{AssignedTo: "w1"}, want: []string{second.ID}},
		{name: "no match", filter: ports.IssueFilter{UserID: "nobody"}, want: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := repo.ListIssues(ctx, tc.filter)
			if err != nil {
				t.Fatalf("ListIssues() error = %v", err)
			}
			if len(items) != len(tc.want) {
				t.Fatalf("ListIssues() len = %d, want %d", len(items), len(tc.want))
			}
			for i := range items {
				if items[i].ID != tc.want[i] {
					t.Fatalf("ListIssues()[%d] = %q (%s), want %q", i, items[i].ID, items[i].Title, tc.want[i])
				}
			}
		})
	}
}

func TestIssueRepositoryGetIssueAbsentIsNotError(t *testing.T) {
	repo := setupIssueRepository(t)

	item, err := repo.GetIssue(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetIssue() error = %v", err)
	}
	if item != nil {
		t.Fatalf("GetIssue() = %+v, want nil", item)
	}
}

func TestIssueRepositoryUpdateTriState(t *testing.T) {
	repo := setupIssueRepository(t)
	ctx := context.Background()

	created, err := repo.CreateIssue(ctx, ports.NewIssue{UserID: "u1", Draft: newDraft("door")})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	estimate := 45
	updated, err := repo.UpdateIssue(ctx, created.ID, ports.IssuePatch{
		AssignedTo:    ports.SetTo("w1"),
		EstimatedTime: ports.SetTo(estimate),
	})
	if err != nil {
		t.Fatalf("UpdateIssue(set) error = %v", err)
	}
	if !updated.AssignedToUser("w1") || updated.EstimatedTime == nil || *updated.EstimatedTime != 45 {
		t.Fatalf("after set: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updated_at not advanced: %s <= %s", updated.UpdatedAt, created.UpdatedAt)
	}

	notes := "parts ordered"
	updated, err = repo.UpdateIssue(ctx, created.ID, ports.IssuePatch{AdminNotes: &notes})
	if err != nil {
		t.Fatalf("UpdateIssue(unset) error = %v", err)
	}
	if !updated.AssignedToUser("w1") || updated.EstimatedTime == nil {
		t.Fatalf("unset fields changed: %+v", updated)
	}

	updated, err = repo.UpdateIssue(ctx, created.ID, ports.IssuePatch{
		AssignedTo:    ports.Clear[string](),
		EstimatedTime: ports.Clear[int](),
	})
	if err != nil {
		t.Fatalf("UpdateIssue(clear) error = %v", err)
	}
	if updated.AssignedTo != nil || updated.EstimatedTime != nil {
		t.Fatalf("after clear: %+v", updated)
	}
	if updated.AdminNotes == nil || *updated.AdminNotes != notes {
		t.Fatalf("admin_notes = %v", updated.AdminNotes)
	}
}

func TestIssueRepositoryUpdateResolvedAndRating(t *testing.T) {
	repo := setupIssueRepository(t)
	ctx := context.Background()

	created, err := repo.CreateIssue(ctx, ports.NewIssue{UserID: "u1", Draft: newDraft("light")})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	resolved := issue.StatusResolved
	resolvedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	updated, err := repo.UpdateIssue(ctx, created.ID, ports.IssuePatch{Status: &resolved, ResolvedAt: ports.SetTo(resolvedAt)})
	if err != nil {
		t.Fatalf("UpdateIssue() error = %v", err)
	}
	if updated.Status != issue.StatusResolved || updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(resolvedAt) {
		t.Fatalf("after resolve: status=%q resolved_at=%v", updated.Status, updated.ResolvedAt)
	}

	rating := 4
	updated, err = repo.UpdateIssue(ctx, created.ID, ports.IssuePatch{Rating: &rating})
	if err != nil {
		t.Fatalf("UpdateIssue(rating) error = %v", err)
	}
	if updated.Rating == nil || *updated.Rating != 4 {
		t.Fatalf("rating = %v", updated.Rating)
	}
	if updated.ResolvedAt == nil {
		t.Fatalf("resolved_at cleared by rating update")
	}

	reopened := issue.StatusOpen
	updated, err = repo.UpdateIssue(ctx, created.ID, ports.IssuePatch{Status: &reopened, ResolvedAt: ports.Clear[time.Time]()})
	if err != nil {
		t.Fatalf("UpdateIssue(reopen) error = %v", err)
	}
	if updated.ResolvedAt != nil {
		t.Fatalf("resolved_at = %v after reopen, want nil", updated.ResolvedAt)
	}
}

func TestIssueRepositoryUpdateUnknownID(t *testing.T) {
	repo := setupIssueRepository(t)

	status := issue.StatusInProgress
	_, err := repo.UpdateIssue(context.Background(), "missing", ports.IssuePatch{Status: &status})
	if !errors.Is(err, ports.ErrIssueNotFound) {
		t.Fatalf("UpdateIssue() error = %v, want ErrIssueNotFound", err)
	}
}

func TestIssueRepositoryListRatedAssignments(t *testing.T) {
	repo := setupIssueRepository(t)
	ctx := context.Background()
	db := repo.db

	w1, w2 := "w1", "w2"
	five, three := 5, 3
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.Issue{
		{ID: "a", AssignedTo: &w1, Rating: &five},
		{ID: "b", AssignedTo: &w2, Rating: &three},
		{ID: "c", AssignedTo: &w1},
		{ID: "d", Rating: &three},
		{ID: "e"},
	}
	for i := range rows {
		rows[i].Title = "t"
		rows[i].Description = "d"
		rows[i].Category = string(issue.CategoryOther)
		rows[i].Status = string(issue.StatusResolved)
		rows[i].Priority = string(issue.PriorityLow)
		rows[i].Building = "Library"
		rows[i].RoomNumber = "1"
		rows[i].CreatedAt = now.Add(time.Duration(i) * time.Minute)
		rows[i].UpdatedAt = rows[i].CreatedAt
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed issues: %v", err)
	}

	items, err := repo.ListRatedAssignments(ctx)
	if err != nil {
		t.Fatalf("ListRatedAssignments() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ListRatedAssignments() len = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.AssignedTo == nil || item.Rating == nil {
			t.Fatalf("projection has null field: %+v", item)
		}
	}
}
