package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/persistence/sqlite/model"
	"fixversity/internal/ports"
)

type IssueRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db, now: utcNow}
}

func (r *IssueRepository) ListIssues(ctx context.Context, filter ports.IssueFilter) ([]issue.Issue, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Issue{})
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if assignee := strings.TrimSpace(filter.AssignedTo); assignee != "" {
		query = query.Where("assigned_to = ?", assignee)
	}

	var rows []model.Issue
	if err := query.Order("created_at desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query issues")
	}

	items := make([]issue.Issue, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapIssue(row))
	}
	return items, nil
}

func (r *IssueRepository) GetIssue(ctx context.Context, id string) (*issue.Issue, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var row model.Issue
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "query issue")
	}
	item := mapIssue(row)
	return &item, nil
}

func (r *IssueRepository) ListRatedAssignments(ctx context.Context) ([]ports.RatedAssignment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Issue
	if err := db.Model(&model.Issue{}).
		Select("assigned_to", "rating").
		Where("assigned_to IS NOT NULL AND rating IS NOT NULL").
		Order("created_at desc").
		Order("id desc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query rated assignments")
	}

	items := make([]ports.RatedAssignment, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.RatedAssignment{
			AssignedTo: row.AssignedTo,
			Rating:     row.Rating,
		})
	}
	return items, nil
}

func (r *IssueRepository) CreateIssue(ctx context.Context, input ports.NewIssue) (issue.Issue, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return issue.Issue{}, err
	}

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return issue.Issue{}, errors.New("user id is required")
	}

	now := r.now()
	row := model.Issue{
		ID:          uuid.NewString(),
		UserID:      &userID,
		Title:       input.Draft.Title,
		Description: input.Draft.Description,
		Category:    string(input.Draft.Category),
		Status:      string(issue.StatusOpen),
		Priority:    string(input.Draft.Priority),
		Building:    input.Draft.Building,
		RoomNumber:  input.Draft.RoomNumber,
		ImageURL:    input.Draft.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if row.Priority == "" {
		row.Priority = string(issue.PriorityMedium)
	}
	if err := db.Create(&row).Error; err != nil {
		return issue.Issue{}, errs.Wrap(err, "insert issue")
	}
	return mapIssue(row), nil
}

// UpdateIssue applies patch as one UPDATE statement and returns the row as stored.
func (r *IssueRepository) UpdateIssue(ctx context.Context, id string, patch ports.IssuePatch) (issue.Issue, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return issue.Issue{}, err
	}

	fields := map[string]any{
		"updated_at": r.now(),
	}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		fields["priority"] = string(*patch.Priority)
	}
	if patch.AssignedTo.Set {
		fields["assigned_to"] = patch.AssignedTo.Value
	}
	if patch.AdminNotes != nil {
		fields["admin_notes"] = *patch.AdminNotes
	}
	if patch.EstimatedTime.Set {
		fields["estimated_time"] = patch.EstimatedTime.Value
	}
	if patch.Rating != nil {
		fields["rating"] = *patch.Rating
	}
	if patch.ResolvedAt.Set {
		if patch.ResolvedAt.Value != nil {
			fields["resolved_at"] = patch.ResolvedAt.Value.UTC()
		} else {
			fields["resolved_at"] = nil
		}
	}

	result := db.Model(&model.Issue{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return issue.Issue{}, errs.Wrap(result.Error, "update issue")
	}
	if result.RowsAffected == 0 {
		return issue.Issue{}, ports.ErrIssueNotFound
	}

	var row model.Issue
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		return issue.Issue{}, errs.Wrap(err, "reload issue")
	}
	return mapIssue(row), nil
}

func mapIssue(row model.Issue) issue.Issue {
	return issue.Issue{
		ID:            row.ID,
		UserID:        row.UserID,
		Title:         row.Title,
		Description:   row.Description,
		Category:      issue.Category(row.Category),
		Status:        issue.Status(row.Status),
		Priority:      issue.Priority(row.Priority),
		Building:      row.Building,
		RoomNumber:    row.RoomNumber,
		ImageURL:      row.ImageURL,
		AssignedTo:    row.AssignedTo,
		ResolvedAt:    row.ResolvedAt,
		AdminNotes:    row.AdminNotes,
		EstimatedTime: row.EstimatedTime,
		Rating:        row.Rating,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
