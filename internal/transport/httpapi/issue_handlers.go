package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
	"fixversity/internal/query"
	"fixversity/internal/usecase/issues"
)

type createIssueRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	Building    string  `json:"building"`
	RoomNumber  string  `json:"room_number"`
	ImageURL    *string `json:"image_url"`
	// UserID is accepted and discarded; the submitter is always the caller.
	UserID *string `json:"user_id"`
}

type updateIssueRequest struct {
	Status        *string          `json:"status"`
	Priority      *string          `json:"priority"`
	AssignedTo    optional[string] `json:"assigned_to"`
	AdminNotes    *string          `json:"admin_notes"`
	EstimatedTime optional[int]    `json:"estimated_time"`
}

type rateIssueRequest struct {
	Rating int `json:"rating"`
}

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	result, err := s.issues.OwnIssues(r.Context(), p.viewer())
	writeRead(w, r, result, err)
}

func (s *Server) handleListAssigned(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	result, err := s.issues.AssignedIssues(r.Context(), p.viewer())
	writeRead(w, r, result, err)
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	if r.URL.Query().Get("with") == "submitters" {
		result, err := s.issues.AllIssuesWithSubmitters(r.Context(), p.viewer())
		writeRead(w, r, result, err)
		return
	}
	result, err := s.issues.AllIssues(r.Context(), p.viewer())
	writeRead(w, r, result, err)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	result, err := s.issues.Issue(r.Context(), chi.URLParam(r, "issueID"))
	if err == nil && result.State == query.StateSuccess && result.Data == nil {
		writeError(w, http.StatusNotFound, "issue_not_found")
		return
	}
	writeRead(w, r, result, err)
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	result, err := s.issues.Workers(r.Context(), p.viewer())
	writeRead(w, r, result, err)
}

func (s *Server) handleWorkerRatings(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	result, err := s.issues.WorkerRatings(r.Context(), p.viewer())
	writeRead(w, r, result, err)
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	viewer := p.viewer()
	if err := issues.AuthorizeCreate(viewer); err != nil {
		s.rejectMutation(w, r, viewer, err)
		return
	}

	var req createIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	category, err := issue.ParseCategory(req.Category)
	if err != nil {
		s.rejectMutation(w, r, viewer, err)
		return
	}
	var priority issue.Priority
	if strings.TrimSpace(req.Priority) != "" {
		if priority, err = issue.ParsePriority(req.Priority); err != nil {
			s.rejectMutation(w, r, viewer, err)
			return
		}
	}

	created, err := s.issues.CreateIssue(r.Context(), viewer, issues.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		Priority:    priority,
		Building:    req.Building,
		RoomNumber:  req.RoomNumber,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	viewer := p.viewer()

	var req updateIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	input := issues.UpdateIssueInput{
		ID:            chi.URLParam(r, "issueID"),
		AssignedTo:    req.AssignedTo.nullable(),
		AdminNotes:    req.AdminNotes,
		EstimatedTime: req.EstimatedTime.nullable(),
	}
	if req.Status != nil {
		status, err := issue.ParseStatus(*req.Status)
		if err != nil {
			s.rejectMutation(w, r, viewer, err)
			return
		}
		input.Status = &status
	}
	if req.Priority != nil {
		priority, err := issue.ParsePriority(*req.Priority)
		if err != nil {
			s.rejectMutation(w, r, viewer, err)
			return
		}
		input.Priority = &priority
	}

	if err := s.issues.AuthorizeUpdate(r.Context(), viewer, input); err != nil {
		s.rejectMutation(w, r, viewer, err)
		return
	}
	updated, err := s.issues.UpdateIssue(r.Context(), viewer, input)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleRateIssue(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	viewer := p.viewer()
	id := chi.URLParam(r, "issueID")

	var req rateIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.issues.AuthorizeRate(r.Context(), viewer, id); err != nil {
		s.rejectMutation(w, r, viewer, err)
		return
	}
	rated, err := s.issues.RateIssue(r.Context(), viewer, id, req.Rating)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rated)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file")
		return
	}
	defer file.Close()

	url, err := s.issues.UploadImage(r.Context(), issues.UploadInput{
		UserID:      p.User.ID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, errs.Message(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// writeRead maps a query result: disabled is 403 not_applicable, errors 500.
func writeRead[T any](w http.ResponseWriter, r *http.Request, result query.Result[T], err error) {
	switch {
	case err != nil:
		logging.Error(r.Context(), "read failed", slog.String("path", r.URL.Path), slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, errs.Message(err))
	case result.State == query.StateDisabled:
		writeError(w, http.StatusForbidden, "not_applicable")
	default:
		writeJSON(w, http.StatusOK, result.Data)
	}
}

// rejectMutation notifies the caller of a mutation refused in the handler and
// answers like writeMutationError.
func (s *Server) rejectMutation(w http.ResponseWriter, r *http.Request, viewer issues.Viewer, err error) {
	writeMutationError(w, s.issues.Reject(r.Context(), viewer, err))
}

// writeMutationError answers with the raw store message.
func writeMutationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, issues.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ports.ErrIssueNotFound):
		status = http.StatusNotFound
	case errors.Is(err, issue.ErrInvalidCategory),
		errors.Is(err, issue.ErrInvalidStatus),
		errors.Is(err, issue.ErrInvalidPriority),
		errors.Is(err, issue.ErrTitleRequired),
		errors.Is(err, issue.ErrDescriptionRequired),
		errors.Is(err, issue.ErrBuildingRequired),
		errors.Is(err, issue.ErrRoomRequired),
		errors.Is(err, issue.ErrInvalidRating),
		errors.Is(err, issue.ErrInvalidEstimatedTime),
		errors.Is(err, issue.ErrIDRequired),
		errors.Is(err, issues.ErrAssigneeNotWorker):
		status = http.StatusBadRequest
	}
	writeError(w, status, errs.Message(err))
}
