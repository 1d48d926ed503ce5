package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cv-optimizer/internal/analysis"
	"cv-optimizer/internal/documents"
	"cv-optimizer/internal/events"
	"cv-optimizer/internal/generation"
	"cv-optimizer/internal/interview"
	"cv-optimizer/internal/reasoning"
	"cv-optimizer/internal/reasoning/gemini"
	"cv-optimizer/internal/reasoning/openai"
	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/config"
	"cv-optimizer/internal/shared/server"
	"cv-optimizer/internal/shared/storage/db"
	"cv-optimizer/internal/shared/storage/object"
	localstore "cv-optimizer/internal/shared/storage/object/local"
	s3store "cv-optimizer/internal/shared/storage/object/s3"
	"cv-optimizer/internal/shared/telemetry"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Redis        *redis.Client
	Objects      object.ObjectStore
	SessionStore sessions.Store
	Events       events.Publisher
	Reasoning    reasoning.Service

	Sessions   *sessions.Service
	Documents  *documents.Service
	Analysis   *analysis.Service
	Interview  *interview.Service
	Generation *generation.Service
}

// Option overrides a dependency Build would otherwise construct from config.
type Option func(*App)

// WithReasoning installs a reasoning service, bypassing provider selection.
func WithReasoning(svc reasoning.Service) Option {
	return func(a *App) { a.Reasoning = svc }
}

// WithObjectStore installs an object store.
func WithObjectStore(store object.ObjectStore) Option {
	return func(a *App) { a.Objects = store }
}

// WithSessionStore installs a session store.
func WithSessionStore(store sessions.Store) Option {
	return func(a *App) { a.SessionStore = store }
}

// WithPublisher installs an event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(a *App) { a.Events = p }
}

// Build prepares every dependency and wires the router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	cfg = cfg.WithDefaults()
	ctx := context.Background()

	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.Objects == nil {
		store, err := buildObjectStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.Objects = store
	}
	if app.SessionStore == nil {
		if err := buildSessionStore(ctx, app); err != nil {
			app.Close()
			return nil, err
		}
	}
	if app.Events == nil {
		app.Events = buildPublisher(cfg)
	}
	if app.Reasoning == nil {
		svc, err := NewReasoning(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Reasoning = svc
	}

	buildServices(app)
	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Handlers: []server.RouteRegistrar{
			sessions.NewHandler(app.Sessions),
			documents.NewHandler(app.Documents),
			analysis.NewHandler(app.Analysis),
			interview.NewHandler(app.Interview),
			generation.NewHandler(app.Generation, server.APIPrefix),
		},
	})
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildServices(app *App) {
	cfg := app.Config
	app.Sessions = sessions.NewService(app.SessionStore, app.Objects, app.Events)
	app.Documents = documents.NewService(app.Sessions, app.Objects, app.Reasoning, cfg.ParseTimeout, cfg.MaxUploadBytes)
	app.Analysis = analysis.NewService(app.Sessions, app.Reasoning, cfg.AnalysisTimeout)
	app.Interview = interview.NewService(app.Sessions, app.Reasoning, cfg.TranscribeTimeout)
	app.Generation = generation.NewService(app.Sessions, app.Reasoning, app.Objects, cfg.GenerationTimeout)
}

func buildObjectStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildSessionStore(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.SessionStore {
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.database_unavailable", map[string]any{"error": err.Error()})
				app.SessionStore = sessions.NewMemoryStore()
				return nil
			}
			return err
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return fmt.Errorf("run migrations: %w", err)
		}
		app.DB = sqlDB
		app.SessionStore = &sessions.PGStore{DB: sqlDB}
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
				app.SessionStore = sessions.NewMemoryStore()
				return nil
			}
			return fmt.Errorf("ping redis: %w", err)
		}
		app.Redis = client
		app.SessionStore = sessions.NewRedisStore(client, cfg.SessionTTL)
	default:
		app.SessionStore = sessions.NewMemoryStore()
	}
	telemetry.Info("bootstrap.session_store", map[string]any{"store": fmt.Sprintf("%T", app.SessionStore)})
	return nil
}

func buildPublisher(cfg config.Config) events.Publisher {
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		return events.Nop{}
	}
	pub, err := events.Dial(cfg.RabbitMQURL)
	if err != nil {
		// Events are advisory; the workflow runs without them.
		telemetry.Warn("bootstrap.events_unavailable", map[string]any{"error": err.Error()})
		return events.Nop{}
	}
	return pub
}

// NewReasoning builds the configured provider behind the circuit breaker, or
// reasoning.Unconfigured when no provider is set.
func NewReasoning(ctx context.Context, cfg config.Config) (reasoning.Service, error) {
	var engine *reasoning.Engine
	switch cfg.ReasoningProvider {
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.ReasoningModel, cfg.TranscribeModel)
		if err != nil {
			return nil, err
		}
		engine = &reasoning.Engine{Completer: client, Transcriber: client}
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.ReasoningModel)
		if err != nil {
			return nil, err
		}
		engine = &reasoning.Engine{Completer: client, Transcriber: client}
	default:
		telemetry.Warn("bootstrap.reasoning_unconfigured", map[string]any{"provider": cfg.ReasoningProvider})
		return reasoning.Unconfigured{}, nil
	}
	return reasoning.NewGuarded(engine, cfg.ReasoningProvider, reasoning.BreakerSettings{
		Enabled:      cfg.BreakerEnabled,
		MinRequests:  cfg.BreakerMinRequests,
		FailureRatio: cfg.BreakerFailureRatio,
		OpenTimeout:  cfg.BreakerOpenTimeout,
	}), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
