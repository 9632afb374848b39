package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"fixversity/internal/bootstrap"
	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/auth"
	"fixversity/internal/ports"
	"fixversity/internal/query"
	"fixversity/internal/usecase/issues"
	"fixversity/internal/usecase/session"
)

// startApp builds the fx graph, fills targets and starts it. The returned
// stop func must be called once the command is done.
func startApp(ctx context.Context, targets ...any) (func(), error) {
	fxApp := fx.New(
		bootstrap.Module,
		fx.NopLogger,
		fx.Provide(func() context.Context { return ctx }),
		fx.Provide(
			fx.Annotate(
				func() string { return cfgFile },
				fx.ResultTags(`name:"configFile"`),
			),
		),
		fx.Populate(targets...),
	)

	startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
	defer cancelStart()
	if err := fxApp.Start(startCtx); err != nil {
		logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
		return nil, errs.Wrap(err, "start fx application")
	}

	return func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelStop()
		if err := fxApp.Stop(stopCtx); err != nil {
			logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
		}
	}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	return logging.WithAttrs(
		cmd.Context(),
		slog.String("command", cmd.CommandPath()),
		slog.String("config_file", cfgFile),
	)
}

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svc *issues.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := commandContext(cmd)

		var app *bootstrap.App
		var svc *issues.Service
		stop, err := startApp(ctx, &app, &svc)
		if err != nil {
			return err
		}
		defer stop()

		if err := run(cmd, app, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

// sessionEnv is what commands acting as the signed-in user receive.
type sessionEnv struct {
	App      *bootstrap.App
	Issues   *issues.Service
	Queries  *query.Client
	Provider *session.Provider
}

// withSession restores the stored credentials into a session provider and
// waits for the profile and role of the signed-in user before running.
func withSession(run func(cmd *cobra.Command, args []string, env sessionEnv) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		var (
			app      *bootstrap.App
			svc      *issues.Service
			authSvc  *auth.Service
			profiles ports.ProfileReader
			roles    ports.RoleReader
			queries  *query.Client
		)
		stop, err := startApp(ctx, &app, &svc, &authSvc, &profiles, &roles, &queries)
		if err != nil {
			return err
		}
		defer stop()

		client := auth.NewClient(authSvc, auth.NewFileSessionStore(app.Config.Auth.CredentialsFile))
		provider := session.NewProvider(client, profiles, roles)
		if err := provider.Init(ctx); err != nil {
			return errs.Wrap(err, "init session")
		}
		defer provider.Close()

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := provider.Wait(waitCtx); err != nil {
			return errs.Wrap(err, "wait for identity")
		}

		cmd.SetContext(ctx)
		if err := run(cmd, args, sessionEnv{App: app, Issues: svc, Queries: queries, Provider: provider}); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

// requireViewer fails when no user is signed in.
func requireViewer(env sessionEnv) (session.Viewer, error) {
	viewer := env.Provider.Viewer()
	if !viewer.Authenticated() {
		return session.Viewer{}, errNotSignedIn
	}
	return viewer, nil
}
