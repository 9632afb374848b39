package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fixversity/internal/bootstrap"
	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/domain/identity"
	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/auth"
	"fixversity/internal/ports"
	"fixversity/internal/usecase/issues"
	"fixversity/internal/usecase/session"
)

// seedFixture is the demo data file read by `fixversity seed`, in YAML or TOML.
type seedFixture struct {
	Accounts []seedAccount `yaml:"accounts" toml:"accounts"`
	Issues   []seedIssue   `yaml:"issues" toml:"issues"`
}

type seedAccount struct {
	Email    string `yaml:"email" toml:"email"`
	Password string `yaml:"password" toml:"password"`
	FullName string `yaml:"full_name" toml:"full_name"`
	Role     string `yaml:"role" toml:"role"`
	Code     string `yaml:"code" toml:"code"`
}

// seedIssue references accounts by email.
type seedIssue struct {
	Submitter     string  `yaml:"submitter" toml:"submitter"`
	Title         string  `yaml:"title" toml:"title"`
	Description   string  `yaml:"description" toml:"description"`
	Category      string  `yaml:"category" toml:"category"`
	Priority      string  `yaml:"priority" toml:"priority"`
	Building      string  `yaml:"building" toml:"building"`
	RoomNumber    string  `yaml:"room_number" toml:"room_number"`
	Status        string  `yaml:"status" toml:"status"`
	AssignedTo    string  `yaml:"assigned_to" toml:"assigned_to"`
	AdminNotes    *string `yaml:"admin_notes" toml:"admin_notes"`
	EstimatedTime *int    `yaml:"estimated_time" toml:"estimated_time"`
	Rating        *int    `yaml:"rating" toml:"rating"`
}

type seedReport struct {
	AccountsCreated int
	AccountsExisted int
	IssuesCreated   int
}

func loadFixture(path string) (seedFixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return seedFixture{}, errs.Wrap(err, "read fixture")
	}

	var fixture seedFixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &fixture)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &fixture)
	default:
		return seedFixture{}, fmt.Errorf("unsupported fixture format %q", filepath.Ext(path))
	}
	if err != nil {
		return seedFixture{}, errs.Wrapf(err, "decode fixture %s", path)
	}
	return fixture, nil
}

type seeder struct {
	auth     *auth.Service
	accounts ports.AccountRepository
	roles    ports.RoleRepository
	issues   *issues.Service
}

// run creates missing accounts and then every issue. Admins are created
// through the normal sign-up path and promoted afterwards, since sign-up
// never grants admin.
func (s seeder) run(ctx context.Context, fixture seedFixture) (seedReport, error) {
	var report seedReport
	users := make(map[string]session.Viewer, len(fixture.Accounts))

	for _, account := range fixture.Accounts {
		email := strings.ToLower(strings.TrimSpace(account.Email))
		role, err := identity.ParseRole(account.Role)
		if err != nil {
			return report, errs.Wrapf(err, "account %s", email)
		}
		signUpRole := role
		if role == identity.RoleAdmin {
			signUpRole = identity.RoleStudent
		}

		metadata := identity.SignUpMetadata{FullName: account.FullName, Role: signUpRole}
		if code := strings.TrimSpace(account.Code); code != "" {
			switch role {
			case identity.RoleStudent:
				metadata.StudentCode = &code
			case identity.RoleFaculty:
				metadata.FacultyID = &code
			case identity.RoleWorker:
				metadata.WorkerID = &code
			}
		}

		var userID string
		user, err := s.auth.SignUp(ctx, ports.SignUpRequest{Email: email, Password: account.Password, Metadata: metadata})
		switch {
		case err == nil:
			userID = user.ID
			report.AccountsCreated++
		case errors.Is(err, ports.ErrAccountExists):
			existing, lookupErr := s.accounts.GetAccountByEmail(ctx, email)
			if lookupErr != nil {
				return report, errs.Wrapf(lookupErr, "look up account %s", email)
			}
			userID = existing.ID
			report.AccountsExisted++
		default:
			return report, errs.Wrapf(err, "sign up %s", email)
		}

		if err := s.roles.SetRole(ctx, userID, role); err != nil {
			return report, errs.Wrapf(err, "set role of %s", email)
		}
		s.issues.RoleChanged(ctx, userID, role)
		users[email] = session.Viewer{UserID: userID, Role: role}
	}

	for i, item := range fixture.Issues {
		submitter, ok := users[strings.ToLower(strings.TrimSpace(item.Submitter))]
		if !ok {
			return report, fmt.Errorf("issue %d: unknown submitter %q", i, item.Submitter)
		}
		category, err := issue.ParseCategory(item.Category)
		if err != nil {
			return report, errs.Wrapf(err, "issue %d", i)
		}
		var priority issue.Priority
		if strings.TrimSpace(item.Priority) != "" {
			if priority, err = issue.ParsePriority(item.Priority); err != nil {
				return report, errs.Wrapf(err, "issue %d", i)
			}
		}

		created, err := s.issues.CreateIssue(ctx, submitter, issues.CreateIssueInput{
			Title:       item.Title,
			Description: item.Description,
			Category:    category,
			Priority:    priority,
			Building:    item.Building,
			RoomNumber:  item.RoomNumber,
		})
		if err != nil {
			return report, errs.Wrapf(err, "create issue %d", i)
		}
		report.IssuesCreated++

		update := issues.UpdateIssueInput{ID: created.ID, AdminNotes: item.AdminNotes}
		if item.Status != "" {
			status, err := issue.ParseStatus(item.Status)
			if err != nil {
				return report, errs.Wrapf(err, "issue %d", i)
			}
			update.Status = &status
		}
		if item.AssignedTo != "" {
			worker, ok := users[strings.ToLower(strings.TrimSpace(item.AssignedTo))]
			if !ok {
				return report, fmt.Errorf("issue %d: unknown assignee %q", i, item.AssignedTo)
			}
			update.AssignedTo = ports.SetTo(worker.UserID)
		}
		if item.EstimatedTime != nil {
			update.EstimatedTime = ports.SetTo(*item.EstimatedTime)
		}
		if len(update.Fields()) > 0 {
			if _, err := s.issues.UpdateIssue(ctx, submitter, update); err != nil {
				return report, errs.Wrapf(err, "update issue %d", i)
			}
		}
		if item.Rating != nil {
			if _, err := s.issues.RateIssue(ctx, submitter, created.ID, *item.Rating); err != nil {
				return report, errs.Wrapf(err, "rate issue %d", i)
			}
		}
	}
	return report, nil
}

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml|fixture.toml>",
	Short: "Load demo accounts and issues from a fixture file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		fixture, err := loadFixture(args[0])
		if err != nil {
			return err
		}

		var (
			app      *bootstrap.App
			svc      *issues.Service
			authSvc  *auth.Service
			accounts ports.AccountRepository
			roles    ports.RoleRepository
		)
		stop, err := startApp(ctx, &app, &svc, &authSvc, &accounts, &roles)
		if err != nil {
			return err
		}
		defer stop()

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		report, err := seeder{auth: authSvc, accounts: accounts, roles: roles, issues: svc}.run(ctx, fixture)
		if err != nil {
			logging.Error(ctx, "seed failed", slog.Any("err", errs.Loggable(err)))
			return err
		}

		logging.Info(ctx, "seed finished",
			slog.Int("accounts_created", report.AccountsCreated),
			slog.Int("accounts_existing", report.AccountsExisted),
			slog.Int("issues_created", report.IssuesCreated),
		)
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "accounts created=%d existing=%d, issues created=%d\n",
			report.AccountsCreated, report.AccountsExisted, report.IssuesCreated)
		return err
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
