package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/identity"
	"fixversity/internal/domain/issue"
	"fixversity/internal/query"
	"fixversity/internal/usecase/issues"
	"fixversity/internal/usecase/session"
)

const maxAuditLines = 6

type Options struct {
	RefreshInterval time.Duration
}

// Row is one dashboard line. Person is the assigned worker for submitters
// and the submitter for admins.
type Row struct {
	Issue  issue.Issue
	Person string
}

type dashboardModel struct {
	ctx             context.Context
	service         *issues.Service
	viewer          session.Viewer
	refreshInterval time.Duration

	rows          []Row
	ratings       map[string]issues.WorkerRating
	selectedIndex int
	notApplicable bool
	status        string
	auditLogs     []string
}

type rowsLoadedMsg struct {
	rows          []Row
	notApplicable bool
	err           error
}

type ratingsLoadedMsg struct {
	ratings []issues.WorkerRating
	err     error
}

type tickMsg struct{}

// InvalidatedMsg asks the dashboard to reload; send it when cached issue
// queries are invalidated elsewhere.
type InvalidatedMsg struct{}

type actionDoneMsg struct {
	action  string
	issueID string
	result  string
	err     error
}

func NewDashboardModel(ctx context.Context, service *issues.Service, viewer session.Viewer, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &dashboardModel{
		ctx:             ctx,
		service:         service,
		viewer:          viewer,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.loadRowsCmd(), m.loadRatingsCmd(), m.tickCmd())
}

func (m *dashboardModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadRowsCmd(), m.tickCmd())
	case InvalidatedMsg:
		return m, tea.Batch(m.loadRowsCmd(), m.loadRatingsCmd())
	case rowsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.notApplicable = msg.notApplicable
		m.rows = msg.rows
		if m.selectedIndex >= len(m.rows) {
			m.selectedIndex = len(m.rows) - 1
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		switch {
		case m.notApplicable:
			m.status = "no issue view for this account"
		case len(m.rows) == 0:
			m.status = "no issues"
		default:
			m.status = fmt.Sprintf("refreshed, %d issues", len(m.rows))
		}
		return m, nil
	case ratingsLoadedMsg:
		if msg.err != nil {
			m.status = "ratings unavailable: " + msg.err.Error()
			return m, nil
		}
		m.ratings = make(map[string]issues.WorkerRating, len(msg.ratings))
		for _, r := range msg.ratings {
			m.ratings[r.WorkerID] = r
		}
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
		}
		m.appendAuditLog(msg)
		return m, tea.Batch(m.loadRowsCmd(), m.loadRatingsCmd())
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, tea.Batch(m.loadRowsCmd(), m.loadRatingsCmd())
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.rows)-1 {
				m.selectedIndex++
			}
			return m, nil
		case "s":
			return m, m.advanceStatusCmd()
		case "1", "2", "3", "4", "5":
			return m, m.rateCmd(int(key[0] - '0'))
		}
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Fixversity"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf("user=%s role=%s view=%s refresh=%s",
		firstNonEmpty(m.viewer.UserID, "-"),
		firstNonEmpty(string(m.viewer.Role), "none"),
		m.viewName(),
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Issues"))
	builder.WriteString("\n")
	if len(m.rows) == 0 {
		builder.WriteString(dimStyle.Render("- no issues"))
		builder.WriteString("\n")
	}
	for index, row := range m.rows {
		line := fmt.Sprintf("%s %s %s %s/%s %s",
			StatusBadge(row.Issue.Status),
			PriorityBadge(row.Issue.Priority),
			row.Issue.Title,
			row.Issue.Building,
			row.Issue.RoomNumber,
			m.personColumn(row),
		)
		if index == m.selectedIndex {
			builder.WriteString(selectedStyle.Render("> ") + line)
		} else {
			builder.WriteString("  " + line)
		}
		builder.WriteString("\n")
	}
	builder.WriteString("\n")

	if row, ok := m.selectedRow(); ok {
		builder.WriteString(sectionStyle.Render("Detail"))
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("ID: %s\n", row.Issue.ID))
		builder.WriteString(fmt.Sprintf("Category: %s\n", CategoryBadge(row.Issue.Category)))
		builder.WriteString(fmt.Sprintf("Description: %s\n", row.Issue.Description))
		if row.Issue.AdminNotes != nil {
			builder.WriteString(fmt.Sprintf("Notes: %s\n", *row.Issue.AdminNotes))
		}
		if row.Issue.EstimatedTime != nil {
			builder.WriteString(fmt.Sprintf("Estimate: %d min\n", *row.Issue.EstimatedTime))
		}
		if row.Issue.ResolvedAt != nil {
			builder.WriteString(fmt.Sprintf("Resolved: %s\n", row.Issue.ResolvedAt.Format(time.RFC3339)))
		}
		if row.Issue.Rating != nil {
			builder.WriteString(fmt.Sprintf("Rating: %d/5\n", *row.Issue.Rating))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	if len(m.auditLogs) > 0 {
		builder.WriteString(sectionStyle.Render("Recent Actions"))
		builder.WriteString("\n")
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line + "\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: up/k down/j move  g refresh  " + m.actionHint() + "q quit"))
	return builder.String()
}

func (m *dashboardModel) viewName() string {
	switch {
	case m.viewer.Role.Submitter():
		return "mine"
	case m.viewer.Role == identity.RoleWorker:
		return "assigned"
	case m.viewer.Role == identity.RoleAdmin:
		return "all"
	default:
		return "none"
	}
}

func (m *dashboardModel) actionHint() string {
	switch {
	case m.viewer.Role.Submitter():
		return "1-5 rate  "
	case m.viewer.Role == identity.RoleWorker || m.viewer.Role == identity.RoleAdmin:
		return "s advance status  "
	default:
		return ""
	}
}

func (m *dashboardModel) personColumn(row Row) string {
	if m.viewer.Role == identity.RoleWorker {
		return ""
	}
	label := "worker"
	if m.viewer.Role == identity.RoleAdmin {
		label = "by"
	}
	person := firstNonEmpty(row.Person, "-")
	if row.Issue.AssignedTo != nil && label == "worker" {
		if rating, ok := m.ratings[*row.Issue.AssignedTo]; ok {
			person = fmt.Sprintf("%s (%.1f, %d)", person, rating.AverageRating, rating.RatingCount)
		}
	}
	return label + "=" + person
}

func (m *dashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *dashboardModel) loadRowsCmd() tea.Cmd {
	return func() tea.Msg {
		rows, state, err := m.loadRows()
		if err != nil {
			return rowsLoadedMsg{err: err}
		}
		return rowsLoadedMsg{rows: rows, notApplicable: state == query.StateDisabled}
	}
}

func (m *dashboardModel) loadRows() ([]Row, query.State, error) {
	switch {
	case m.viewer.Role.Submitter():
		result, err := m.service.OwnIssues(m.ctx, m.viewer)
		if err != nil {
			return nil, result.State, err
		}
		rows := make([]Row, len(result.Data))
		for i, item := range result.Data {
			rows[i] = Row{Issue: item.Issue, Person: profileName(item.Worker)}
		}
		return rows, result.State, nil
	case m.viewer.Role == identity.RoleWorker:
		result, err := m.service.AssignedIssues(m.ctx, m.viewer)
		if err != nil {
			return nil, result.State, err
		}
		rows := make([]Row, len(result.Data))
		for i, item := range result.Data {
			rows[i] = Row{Issue: item}
		}
		return rows, result.State, nil
	default:
		result, err := m.service.AllIssuesWithSubmitters(m.ctx, m.viewer)
		if err != nil {
			return nil, result.State, err
		}
		rows := make([]Row, len(result.Data))
		for i, item := range result.Data {
			rows[i] = Row{Issue: item.Issue, Person: profileName(item.Submitter)}
		}
		return rows, result.State, nil
	}
}

func (m *dashboardModel) loadRatingsCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.service.WorkerRatings(m.ctx, m.viewer)
		if err != nil {
			return ratingsLoadedMsg{err: err}
		}
		return ratingsLoadedMsg{ratings: result.Data}
	}
}

// advanceStatusCmd moves the selected issue one step along
// open -> in_progress -> resolved.
func (m *dashboardModel) advanceStatusCmd() tea.Cmd {
	row, ok := m.selectedRow()
	if !ok {
		return nil
	}
	next, ok := nextStatus(row.Issue.Status)
	if !ok {
		m.status = "issue already resolved"
		return nil
	}

	issueID := row.Issue.ID
	return func() tea.Msg {
		input := issues.UpdateIssueInput{ID: issueID, Status: &next}
		if err := m.service.AuthorizeUpdate(m.ctx, m.viewer, input); err != nil {
			return actionDoneMsg{action: "status", issueID: issueID, err: m.service.Reject(m.ctx, m.viewer, err)}
		}
		updated, err := m.service.UpdateIssue(m.ctx, m.viewer, input)
		if err != nil {
			return actionDoneMsg{action: "status", issueID: issueID, err: err}
		}
		return actionDoneMsg{action: "status", issueID: issueID, result: string(updated.Status)}
	}
}

func (m *dashboardModel) rateCmd(rating int) tea.Cmd {
	row, ok := m.selectedRow()
	if !ok {
		return nil
	}
	if row.Issue.Status != issue.StatusResolved || row.Issue.Rating != nil {
		m.status = "only resolved, unrated issues can be rated"
		return nil
	}

	issueID := row.Issue.ID
	return func() tea.Msg {
		if err := m.service.AuthorizeRate(m.ctx, m.viewer, issueID); err != nil {
			return actionDoneMsg{action: "rate", issueID: issueID, err: m.service.Reject(m.ctx, m.viewer, err)}
		}
		if _, err := m.service.RateIssue(m.ctx, m.viewer, issueID, rating); err != nil {
			return actionDoneMsg{action: "rate", issueID: issueID, err: err}
		}
		return actionDoneMsg{action: "rate", issueID: issueID, result: fmt.Sprintf("%d/5", rating)}
	}
}

func (m *dashboardModel) selectedRow() (Row, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[m.selectedIndex], true
}

func (m *dashboardModel) appendAuditLog(msg actionDoneMsg) {
	outcome := firstNonEmpty(strings.TrimSpace(msg.result), "ok")
	if msg.err != nil {
		outcome = "error: " + msg.err.Error()
	}
	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s issue=%s action=%s result=%s", timestamp, msg.issueID, msg.action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	logging.Info(m.ctx, "console action",
		slog.String("user_id", m.viewer.UserID),
		slog.String("issue_id", msg.issueID),
		slog.String("action", msg.action),
		slog.String("result", outcome),
	)
}

func nextStatus(current issue.Status) (issue.Status, bool) {
	switch current {
	case issue.StatusOpen:
		return issue.StatusInProgress, true
	case issue.StatusInProgress:
		return issue.StatusResolved, true
	default:
		return "", false
	}
}

func profileName(p *identity.Profile) string {
	if p == nil {
		return ""
	}
	return firstNonEmpty(p.FullName, p.Email)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
