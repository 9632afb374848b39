package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fixversity/internal/domain/identity"
	"fixversity/internal/errs"
	"fixversity/internal/usecase/session"
)

var errNotSignedIn = errors.New("not signed in; run `fixversity auth login` first")

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign up, sign in and inspect the local session",
}

var authSignUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account (student, faculty or worker)",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		fullName, _ := cmd.Flags().GetString("name")
		rawRole, _ := cmd.Flags().GetString("role")
		role, err := identity.ParseSignUpRole(rawRole)
		if err != nil {
			return err
		}

		input := session.SignUpInput{
			Email:    email,
			Password: password,
			FullName: fullName,
			Role:     role,
		}
		code, _ := cmd.Flags().GetString("code")
		switch role {
		case identity.RoleStudent:
			input.StudentCode = &code
		case identity.RoleFaculty:
			input.FacultyID = &code
		case identity.RoleWorker:
			input.WorkerID = &code
		}

		if err := env.Provider.SignUp(cmd.Context(), input); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "account created: %s (%s)\n", strings.TrimSpace(email), role); err != nil {
			return errs.Wrap(err, "write signup output")
		}
		return nil
	}),
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session locally",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if err := env.Provider.SignIn(cmd.Context(), email, password); err != nil {
			return err
		}
		if err := env.Provider.Wait(cmd.Context()); err != nil {
			return errs.Wrap(err, "wait for identity")
		}
		return printIdentity(cmd, env.Provider.State())
	}),
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		env.Provider.SignOut(cmd.Context())
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), "signed out"); err != nil {
			return errs.Wrap(err, "write logout output")
		}
		return nil
	}),
}

var authWhoAmICmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user, profile and role",
	RunE: withSession(func(cmd *cobra.Command, _ []string, env sessionEnv) error {
		state := env.Provider.State()
		if !state.Authenticated() {
			return errNotSignedIn
		}
		return printIdentity(cmd, state)
	}),
}

func printIdentity(cmd *cobra.Command, state session.Snapshot) error {
	out := cmd.OutOrStdout()
	if state.User == nil {
		_, err := fmt.Fprintln(out, "signed out")
		return err
	}
	role := string(state.Role)
	if role == "" {
		role = "(none)"
	}
	name := "(no profile)"
	if state.Profile != nil {
		name = state.Profile.FullName
	}
	_, err := fmt.Fprintf(out, "user: %s\nemail: %s\nname: %s\nrole: %s\n", state.User.ID, state.User.Email, name, role)
	return err
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSignUpCmd, authLoginCmd, authLogoutCmd, authWhoAmICmd)

	for _, c := range []*cobra.Command{authSignUpCmd, authLoginCmd} {
		c.Flags().String("email", "", "Account email")
		c.Flags().String("password", "", "Account password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
	authSignUpCmd.Flags().String("name", "", "Full name")
	authSignUpCmd.Flags().String("role", "student", "Role (student|faculty|worker)")
	authSignUpCmd.Flags().String("code", "", "Student code, faculty id or worker id")
}
