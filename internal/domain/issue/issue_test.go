package issue

import (
	"errors"
	"testing"
)

func TestDraftNormalize(t *testing.T) {
	image := "  "
	draft, err := Draft{
		Title:       "  Broken light ",
		Description: "Flickering since Monday",
		Category:    CategoryElectrical,
		Building:    "Library",
		RoomNumber:  " 204 ",
		ImageURL:    &image,
	}.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if draft.Title != "Broken light" || draft.RoomNumber != "204" {
		t.Fatalf("draft = %+v", draft)
	}
	if draft.Priority != PriorityMedium {
		t.Fatalf("default priority = %q", draft.Priority)
	}
	if draft.ImageURL != nil {
		t.Fatalf("blank image url should be dropped")
	}
}

func TestDraftNormalizeRejects(t *testing.T) {
	valid := Draft{
		Title:       "Leak",
		Description: "Water under sink",
		Category:    CategoryPlumbing,
		Priority:    PriorityHigh,
		Building:    "Dormitory A",
		RoomNumber:  "12",
	}

	testCases := []struct {
		name   string
		mutate func(*Draft)
		want   error
	}{
		{name: "title", mutate: func(d *Draft) { d.Title = " " }, want: ErrTitleRequired},
		{name: "description", mutate: func(d *Draft) { d.Description = "" }, want: ErrDescriptionRequired},
		{name: "building", mutate: func(d *Draft) { d.Building = "" }, want: ErrBuildingRequired},
		{name: "room", mutate: func(d *Draft) { d.RoomNumber = "" }, want: ErrRoomRequired},
		{name: "category", mutate: func(d *Draft) { d.Category = "roads" }, want: ErrInvalidCategory},
		{name: "priority", mutate: func(d *Draft) { d.Priority = "critical" }, want: ErrInvalidPriority},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			draft := valid
			testCase.mutate(&draft)
			if _, err := draft.Normalize(); !errors.Is(err, testCase.want) {
				t.Fatalf("Normalize() error = %v, want %v", err, testCase.want)
			}
		})
	}
}

func TestValidateRating(t *testing.T) {
	for _, rating := range []int{1, 3, 5} {
		if err := ValidateRating(rating); err != nil {
			t.Fatalf("ValidateRating(%d) error = %v", rating, err)
		}
	}
	for _, rating := range []int{0, 6, -1} {
		if err := ValidateRating(rating); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("ValidateRating(%d) error = %v", rating, err)
		}
	}
}

func TestIssueOwnership(t *testing.T) {
	submitter := "student-1"
	worker := "worker-1"
	item := Issue{UserID: &submitter, AssignedTo: &worker}

	if !item.SubmittedBy("student-1") || item.SubmittedBy("worker-1") || item.SubmittedBy("") {
		t.Fatalf("SubmittedBy mismatch")
	}
	if !item.AssignedToUser("worker-1") || item.AssignedToUser("student-1") {
		t.Fatalf("AssignedToUser mismatch")
	}
	if (Issue{}).SubmittedBy("student-1") {
		t.Fatalf("issue without submitter should not match")
	}
}
