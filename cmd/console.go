package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"fixversity/internal/errs"
	"fixversity/internal/query"
	"fixversity/internal/usecase/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive issue dashboard for the signed-in user",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		viewer, err := requireViewer(env)
		if err != nil {
			return err
		}

		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 10 * time.Second
		}

		model := console.NewDashboardModel(cmd.Context(), env.Issues, viewer, console.Options{
			RefreshInterval: refreshInterval,
		})
		program := tea.NewProgram(model, tea.WithAltScreen())

		stopWatch := env.Queries.Watch(func(event query.Event) {
			if event.State == query.StateInvalidated {
				program.Send(console.InvalidatedMsg{})
			}
		})
		defer stopWatch()

		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().Duration("refresh-interval", 10*time.Second, "Auto refresh interval")
}
