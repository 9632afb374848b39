package issues

import (
	"context"
	"errors"
	"testing"

	"fixversity/internal/domain/identity"
	"fixversity/internal/domain/issue"
	"fixversity/internal/ports"
)

func TestAuthorizeCreate(t *testing.T) {
	for _, role := range identity.AllRoles() {
		err := AuthorizeCreate(Viewer{UserID: "u1", Role: role})
		if role.Submitter() && err != nil {
			t.Fatalf("AuthorizeCreate(%s) error = %v", role, err)
		}
		if !role.Submitter() && !errors.Is(err, ErrForbidden) {
			t.Fatalf("AuthorizeCreate(%s) error = %v, want ErrForbidden", role, err)
		}
	}
	if err := AuthorizeCreate(Viewer{Role: identity.RoleStudent}); !errors.Is(err, errViewerRequired) {
		t.Fatalf("AuthorizeCreate(anonymous) error = %v", err)
	}
}

func TestAuthorizeUpdate(t *testing.T) {
	status := issue.StatusInProgress
	priority := issue.PriorityUrgent
	notes := "on my way"

	type testCase struct {
		name   string
		viewer Viewer
		input  UpdateIssueInput
		want   error
	}
	admin := Viewer{UserID: "a1", Role: identity.RoleAdmin}
	worker := Viewer{UserID: "w1", Role: identity.RoleWorker}
	testCases := []testCase{
		{name: "admin any field", viewer: admin, input: UpdateIssueInput{ID: "mine", Priority: &priority, AssignedTo: ports.SetTo("w1")}},
		{name: "admin clears assignee", viewer: admin, input: UpdateIssueInput{ID: "mine", AssignedTo: ports.Clear[string]()}},
		{name: "admin assigns student", viewer: admin, input: UpdateIssueInput{ID: "mine", AssignedTo: ports.SetTo("s1")}, want: ErrAssigneeNotWorker},
		{name: "worker status on own", viewer: worker, input: UpdateIssueInput{ID: "mine", Status: &status, AdminNotes: &notes}},
		{name: "worker priority", viewer: worker, input: UpdateIssueInput{ID: "mine", Priority: &priority}, want: ErrForbidden},
		{name: "worker on other issue", viewer: worker, input: UpdateIssueInput{ID: "theirs", Status: &status}, want: ErrForbidden},
		{name: "worker unknown issue", viewer: worker, input: UpdateIssueInput{ID: "missing", Status: &status}, want: ports.ErrIssueNotFound},
		{name: "student", viewer: Viewer{UserID: "s1", Role: identity.RoleStudent}, input: UpdateIssueInput{ID: "mine", Status: &status}, want: ErrForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(sampleIssue("mine", "s1", strPtr("w1")), sampleIssue("theirs", "s1", strPtr("w2")))
			f.roles.roles["w1"] = identity.RoleWorker
			f.roles.roles["s1"] = identity.RoleStudent

			err := f.svc.AuthorizeUpdate(context.Background(), tc.viewer, tc.input)
			if tc.want == nil && err != nil {
				t.Fatalf("AuthorizeUpdate() error = %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("AuthorizeUpdate() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAuthorizeRate(t *testing.T) {
	f := newFixture(sampleIssue("i1", "s1", strPtr("w1")))
	ctx := context.Background()

	if err := f.svc.AuthorizeRate(ctx, Viewer{UserID: "s1", Role: identity.RoleStudent}, "i1"); err != nil {
		t.Fatalf("AuthorizeRate(submitter) error = %v", err)
	}
	if err := f.svc.AuthorizeRate(ctx, Viewer{UserID: "a1", Role: identity.RoleAdmin}, "i1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("AuthorizeRate(admin) error = %v, want ErrForbidden", err)
	}
	if err := f.svc.AuthorizeRate(ctx, Viewer{UserID: "s1", Role: identity.RoleStudent}, "missing"); !errors.Is(err, ports.ErrIssueNotFound) {
		t.Fatalf("AuthorizeRate(missing) error = %v", err)
	}
}
