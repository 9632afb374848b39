package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fixversity/internal/domain/identity"
	"fixversity/internal/domain/issue"
	"fixversity/internal/errs"
	"fixversity/internal/ports"
	"fixversity/internal/query"
	"fixversity/internal/usecase/console"
	"fixversity/internal/usecase/issues"
)

var errNotApplicable = errors.New("this view is not available for your role")

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Report, list and manage facilities issues as the signed-in user",
}

var issueMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List issues you reported",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		result, err := env.Issues.OwnIssues(cmd.Context(), env.Provider.Viewer())
		if err := checkRead(result.State, err); err != nil {
			return err
		}
		rows := make([]console.Row, 0, len(result.Data))
		for _, item := range result.Data {
			rows = append(rows, console.Row{Issue: item.Issue, Person: personName(item.Worker, "unassigned")})
		}
		return printRows(cmd, rows, result.Data)
	}),
}

var issueAssignedCmd = &cobra.Command{
	Use:   "assigned",
	Short: "List issues assigned to you",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		result, err := env.Issues.AssignedIssues(cmd.Context(), env.Provider.Viewer())
		if err := checkRead(result.State, err); err != nil {
			return err
		}
		rows := make([]console.Row, 0, len(result.Data))
		for _, item := range result.Data {
			rows = append(rows, console.Row{Issue: item})
		}
		return printRows(cmd, rows, result.Data)
	}),
}

var issueAllCmd = &cobra.Command{
	Use:   "all",
	Short: "List every issue (admin)",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		viewer := env.Provider.Viewer()
		if withSubmitters, _ := cmd.Flags().GetBool("with-submitters"); withSubmitters {
			result, err := env.Issues.AllIssuesWithSubmitters(cmd.Context(), viewer)
			if err := checkRead(result.State, err); err != nil {
				return err
			}
			rows := make([]console.Row, 0, len(result.Data))
			for _, item := range result.Data {
				rows = append(rows, console.Row{Issue: item.Issue, Person: personName(item.Submitter, "unknown")})
			}
			return printRows(cmd, rows, result.Data)
		}

		result, err := env.Issues.AllIssues(cmd.Context(), viewer)
		if err := checkRead(result.State, err); err != nil {
			return err
		}
		rows := make([]console.Row, 0, len(result.Data))
		for _, item := range result.Data {
			rows = append(rows, console.Row{Issue: item})
		}
		return printRows(cmd, rows, result.Data)
	}),
}

var issueShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one issue",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, env sessionEnv) error {
		if _, err := requireViewer(env); err != nil {
			return err
		}
		result, err := env.Issues.Issue(cmd.Context(), args[0])
		if err := checkRead(result.State, err); err != nil {
			return err
		}
		if result.Data == nil {
			return fmt.Errorf("%w: %s", ports.ErrIssueNotFound, args[0])
		}
		return printIssue(cmd, *result.Data)
	}),
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Report a new issue",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		viewer, err := requireViewer(env)
		if err != nil {
			return err
		}
		if err := issues.AuthorizeCreate(viewer); err != nil {
			return env.Issues.Reject(cmd.Context(), viewer, err)
		}

		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		rawCategory, _ := cmd.Flags().GetString("category")
		rawPriority, _ := cmd.Flags().GetString("priority")
		building, _ := cmd.Flags().GetString("building")
		room, _ := cmd.Flags().GetString("room")
		imageURL, _ := cmd.Flags().GetString("image-url")

		category, err := issue.ParseCategory(rawCategory)
		if err != nil {
			return env.Issues.Reject(cmd.Context(), viewer, err)
		}
		priority, err := issue.ParsePriority(rawPriority)
		if err != nil {
			return env.Issues.Reject(cmd.Context(), viewer, err)
		}
		input := issues.CreateIssueInput{
			Title:       title,
			Description: description,
			Category:    category,
			Priority:    priority,
			Building:    building,
			RoomNumber:  room,
		}
		if imageURL != "" {
			input.ImageURL = &imageURL
		}

		created, err := env.Issues.CreateIssue(cmd.Context(), viewer, input)
		if err != nil {
			return err
		}
		return printIssue(cmd, created)
	}),
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change status, priority, assignment, notes or estimate",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, env sessionEnv) error {
		viewer, err := requireViewer(env)
		if err != nil {
			return err
		}

		input, err := updateInputFromFlags(cmd, args[0])
		if err != nil {
			return env.Issues.Reject(cmd.Context(), viewer, err)
		}
		if len(input.Fields()) == 0 {
			return errors.New("nothing to update; pass at least one flag")
		}
		if err := env.Issues.AuthorizeUpdate(cmd.Context(), viewer, input); err != nil {
			return env.Issues.Reject(cmd.Context(), viewer, err)
		}
		updated, err := env.Issues.UpdateIssue(cmd.Context(), viewer, input)
		if err != nil {
			return err
		}
		return printIssue(cmd, updated)
	}),
}

var issueRateCmd = &cobra.Command{
	Use:   "rate <id> <1-5>",
	Short: "Rate the work on a resolved issue you reported",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(cmd *cobra.Command, args []string, env sessionEnv) error {
		viewer, err := requireViewer(env)
		if err != nil {
			return err
		}
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return env.Issues.Reject(cmd.Context(), viewer, fmt.Errorf("%w: %q", issue.ErrInvalidRating, args[1]))
		}
		if err := env.Issues.AuthorizeRate(cmd.Context(), viewer, args[0]); err != nil {
			return env.Issues.Reject(cmd.Context(), viewer, err)
		}
		rated, err := env.Issues.RateIssue(cmd.Context(), viewer, args[0], rating)
		if err != nil {
			return err
		}
		return printIssue(cmd, rated)
	}),
}

var issueUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a photo and print its public URL",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, env sessionEnv) error {
		viewer, err := requireViewer(env)
		if err != nil {
			return err
		}
		file, err := os.Open(args[0])
		if err != nil {
			return errs.Wrap(err, "open upload")
		}
		defer file.Close()

		name := filepath.Base(args[0])
		url, err := env.Issues.UploadImage(cmd.Context(), issues.UploadInput{
			UserID:      viewer.UserID,
			FileName:    name,
			ContentType: mime.TypeByExtension(filepath.Ext(name)),
			Content:     file,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
		return err
	}),
}

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List worker profiles (admin)",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		result, err := env.Issues.Workers(cmd.Context(), env.Provider.Viewer())
		if err := checkRead(result.State, err); err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return writeJSONOutput(cmd.OutOrStdout(), result.Data)
		}
		for _, p := range result.Data {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", p.UserID, p.FullName, p.Email); err != nil {
				return err
			}
		}
		return nil
	}),
}

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Show average rating per worker",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		result, err := env.Issues.WorkerRatings(cmd.Context(), env.Provider.Viewer())
		if err := checkRead(result.State, err); err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return writeJSONOutput(cmd.OutOrStdout(), result.Data)
		}
		for _, r := range result.Data {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  avg=%.2f  count=%d\n", r.WorkerID, r.AverageRating, r.RatingCount); err != nil {
				return err
			}
		}
		return nil
	}),
}

func updateInputFromFlags(cmd *cobra.Command, id string) (issues.UpdateIssueInput, error) {
	flags := cmd.Flags()
	input := issues.UpdateIssueInput{ID: id}

	if flags.Changed("status") {
		raw, _ := flags.GetString("status")
		status, err := issue.ParseStatus(raw)
		if err != nil {
			return input, err
		}
		input.Status = &status
	}
	if flags.Changed("priority") {
		raw, _ := flags.GetString("priority")
		priority, err := issue.ParsePriority(raw)
		if err != nil {
			return input, err
		}
		input.Priority = &priority
	}
	if flags.Changed("assign") {
		assignee, _ := flags.GetString("assign")
		input.AssignedTo = ports.SetTo(assignee)
	}
	if unassign, _ := flags.GetBool("unassign"); unassign {
		input.AssignedTo = ports.Clear[string]()
	}
	if flags.Changed("notes") {
		notes, _ := flags.GetString("notes")
		input.AdminNotes = &notes
	}
	if flags.Changed("estimate") {
		minutes, _ := flags.GetInt("estimate")
		input.EstimatedTime = ports.SetTo(minutes)
	}
	if clearEstimate, _ := flags.GetBool("clear-estimate"); clearEstimate {
		input.EstimatedTime = ports.Clear[int]()
	}
	return input, nil
}

func checkRead(state query.State, err error) error {
	if err != nil {
		return err
	}
	if state == query.StateDisabled {
		return errNotApplicable
	}
	return nil
}

func personName(p *identity.Profile, fallback string) string {
	if p == nil {
		return fallback
	}
	if strings.TrimSpace(p.FullName) != "" {
		return p.FullName
	}
	return p.Email
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSONOutput(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printRows prints one line per issue, or raw as JSON with --json.
func printRows(cmd *cobra.Command, rows []console.Row, raw any) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return writeJSONOutput(out, raw)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "no issues")
		return err
	}
	for _, row := range rows {
		line := fmt.Sprintf("%s  %s %s %s  %s  (%s %s)",
			row.Issue.ID,
			console.StatusBadge(row.Issue.Status),
			console.PriorityBadge(row.Issue.Priority),
			console.CategoryBadge(row.Issue.Category),
			row.Issue.Title,
			row.Issue.Building,
			row.Issue.RoomNumber,
		)
		if row.Person != "" {
			line += "  " + row.Person
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func printIssue(cmd *cobra.Command, item issue.Issue) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return writeJSONOutput(out, item)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s %s %s\n", item.ID, console.StatusBadge(item.Status), console.PriorityBadge(item.Priority), console.CategoryBadge(item.Category))
	fmt.Fprintf(&b, "title:       %s\n", item.Title)
	fmt.Fprintf(&b, "location:    %s, room %s\n", item.Building, item.RoomNumber)
	fmt.Fprintf(&b, "description: %s\n", item.Description)
	if item.AssignedTo != nil {
		fmt.Fprintf(&b, "assigned to: %s\n", *item.AssignedTo)
	}
	if item.EstimatedTime != nil {
		fmt.Fprintf(&b, "estimate:    %d min\n", *item.EstimatedTime)
	}
	if item.AdminNotes != nil {
		fmt.Fprintf(&b, "notes:       %s\n", *item.AdminNotes)
	}
	if item.ResolvedAt != nil {
		fmt.Fprintf(&b, "resolved at: %s\n", item.ResolvedAt.Format("2006-01-02 15:04"))
	}
	if item.Rating != nil {
		fmt.Fprintf(&b, "rating:      %d/5\n", *item.Rating)
	}
	if item.ImageURL != nil {
		fmt.Fprintf(&b, "image:       %s\n", *item.ImageURL)
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func init() {
	rootCmd.AddCommand(issueCmd, workersCmd, ratingsCmd)
	issueCmd.AddCommand(issueMineCmd, issueAssignedCmd, issueAllCmd, issueShowCmd, issueCreateCmd, issueUpdateCmd, issueRateCmd, issueUploadCmd)

	issueCmd.PersistentFlags().Bool("json", false, "Print JSON instead of text")
	workersCmd.Flags().Bool("json", false, "Print JSON instead of text")
	ratingsCmd.Flags().Bool("json", false, "Print JSON instead of text")

	issueAllCmd.Flags().Bool("with-submitters", false, "Join submitter profiles")

	issueCreateCmd.Flags().String("title", "", "Short summary")
	issueCreateCmd.Flags().String("description", "", "What is wrong")
	issueCreateCmd.Flags().String("category", "other", "Category (electrical|plumbing|hvac|cleaning|it|furniture|safety|other)")
	issueCreateCmd.Flags().String("priority", "medium", "Priority (low|medium|high|urgent)")
	issueCreateCmd.Flags().String("building", "", "Building name")
	issueCreateCmd.Flags().String("room", "", "Room number")
	issueCreateCmd.Flags().String("image-url", "", "URL returned by `issue upload`")

	issueUpdateCmd.Flags().String("status", "", "New status (open|in_progress|resolved)")
	issueUpdateCmd.Flags().String("priority", "", "New priority (low|medium|high|urgent)")
	issueUpdateCmd.Flags().String("assign", "", "Assign to a worker user id")
	issueUpdateCmd.Flags().Bool("unassign", false, "Clear the assignee")
	issueUpdateCmd.Flags().String("notes", "", "Admin notes")
	issueUpdateCmd.Flags().Int("estimate", 0, "Estimated time in minutes")
	issueUpdateCmd.Flags().Bool("clear-estimate", false, "Clear the estimated time")
	issueUpdateCmd.MarkFlagsMutuallyExclusive("assign", "unassign")
	issueUpdateCmd.MarkFlagsMutuallyExclusive("estimate", "clear-estimate")
}
