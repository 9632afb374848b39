package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"fixversity/internal/bootstrap/config"
	"fixversity/internal/bootstrap/database"
	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/auth"
	cacheinfra "fixversity/internal/infrastructure/cache"
	"fixversity/internal/infrastructure/events"
	"fixversity/internal/infrastructure/notify"
	sqliterepo "fixversity/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "fixversity/internal/infrastructure/persistence/sqlite/uow"
	"fixversity/internal/infrastructure/storage"
	"fixversity/internal/ports"
	"fixversity/internal/query"
	"fixversity/internal/transport/httpapi"
	"fixversity/internal/usecase/issues"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewIssueRepository,
			fx.As(new(ports.IssueRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewProfileRepository,
			fx.As(new(ports.ProfileRepository), new(ports.ProfileBatchReader), new(ports.ProfileReader)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewRoleRepository,
			fx.As(new(ports.RoleRepository), new(ports.RoleReader)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewAccountRepository,
			fx.As(new(ports.AccountRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideQueryCache),
	fx.Provide(provideQueryClient),
	fx.Provide(provideTokenIssuer),
	fx.Provide(provideAuthService),
	fx.Provide(provideBucket),
	fx.Provide(provideEvents),
	fx.Provide(provideHub),
	fx.Provide(provideNotifier),
	fx.Provide(provideIssueService),
	fx.Provide(provideHTTPServer),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

// provideQueryCache selects the query cache backend from cache.driver.
func provideQueryCache(lc fx.Lifecycle, ctx context.Context, cfg config.Config, db *gorm.DB) (ports.QueryCache, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Driver)) {
	case "", "memory":
		return cacheinfra.NewMemoryCache(), nil
	case "sqlite", "database":
		return cacheinfra.NewSQLiteCache(db), nil
	case "redis":
		if strings.TrimSpace(cfg.Cache.RedisAddr) == "" {
			return nil, errors.New("cache.redis_addr is required for the redis cache")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
		})
		lc.Append(fx.Hook{
			OnStart: func(startCtx context.Context) error {
				if err := client.Ping(startCtx).Err(); err != nil {
					return errs.Wrap(err, "ping redis")
				}
				logging.Info(logCtx, "redis query cache connected", slog.String("addr", cfg.Cache.RedisAddr))
				return nil
			},
			OnStop: func(_ context.Context) error {
				return client.Close()
			},
		})
		return cacheinfra.NewRedisCache(client, cfg.App.Name), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
}

func provideQueryClient(store ports.QueryCache, cfg config.Config) *query.Client {
	return query.NewClient(store, cfg.Cache.TTL)
}

func provideTokenIssuer(cfg config.Config) (*auth.TokenIssuer, error) {
	if err := cfg.RequireAuth(); err != nil {
		return nil, err
	}
	return auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
}

type authParams struct {
	fx.In

	Config   config.Config
	Accounts ports.AccountRepository
	Profiles ports.ProfileRepository
	Roles    ports.RoleRepository
	UOW      ports.UnitOfWork
	Tokens   *auth.TokenIssuer
	Queries  *query.Client
}

func provideAuthService(p authParams) *auth.Service {
	svc := auth.NewService(p.Accounts, p.Profiles, p.Roles, p.UOW, p.Tokens, p.Config.Auth.RefreshTokenTTL)
	svc.AddRoleListener(issues.NewWorkersInvalidator(p.Queries))
	return svc
}

func provideBucket(cfg config.Config) (*storage.LocalBucket, ports.ObjectStorage) {
	bucket := storage.NewLocalBucket(cfg.Storage.BucketDir, cfg.Storage.Bucket, cfg.HTTP.PublicBaseURL)
	return bucket, bucket
}

func provideEvents(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.EventPublisher, error) {
	publisher, err := events.Open(cfg.Events)
	if err != nil {
		return nil, errs.Wrap(err, "open event publisher")
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := publisher.Close(); err != nil {
				logging.Warn(ctx, "close event publisher failed", slog.Any("err", errs.Loggable(err)))
			}
			return nil
		},
	})
	return publisher, nil
}

func provideHub(lc fx.Lifecycle, ctx context.Context) *notify.Hub {
	hub := notify.NewHub()
	runCtx, cancel := context.WithCancel(logging.WithAttrs(ctx, slog.String("component", "notify.hub")))
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go hub.Run(runCtx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
	return hub
}

// provideNotifier logs every notification and pushes it to connected sockets.
func provideNotifier(hub *notify.Hub) ports.Notifier {
	return notify.Fanout{notify.NewLogNotifier(), hub}
}

type issueServiceParams struct {
	fx.In

	Issues   ports.IssueRepository
	Profiles ports.ProfileBatchReader
	Roles    ports.RoleRepository
	Queries  *query.Client
	Storage  ports.ObjectStorage
	Notifier ports.Notifier
	Events   ports.EventPublisher
}

func provideIssueService(p issueServiceParams) *issues.Service {
	return issues.NewService(issues.Deps{
		Issues:   p.Issues,
		Profiles: p.Profiles,
		Roles:    p.Roles,
		Queries:  p.Queries,
		Storage:  p.Storage,
		Notifier: p.Notifier,
		Events:   p.Events,
	})
}

type httpServerParams struct {
	fx.In

	Auth     *auth.Service
	Issues   *issues.Service
	Profiles ports.ProfileReader
	Roles    ports.RoleReader
	Hub      *notify.Hub
	Bucket   *storage.LocalBucket
}

func provideHTTPServer(p httpServerParams) *httpapi.Server {
	return httpapi.NewServer(httpapi.Deps{
		Auth:     p.Auth,
		Issues:   p.Issues,
		Profiles: p.Profiles,
		Roles:    p.Roles,
		Hub:      p.Hub,
		FilesDir: p.Bucket.Root(),
	})
}
