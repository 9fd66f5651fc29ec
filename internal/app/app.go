// Package app assembles the fiber application from configuration and stores.
package app

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

// Repositories is the full set of stores the services need.
type Repositories struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Tickets  repository.TicketRepository
	Activity repository.ActivityRepository
	History  repository.TicketHistoryRepository
}

// PostgresRepositories builds pgx-backed stores.
func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:    repository.NewUserRepository(pool),
		Sessions: repository.NewSessionRepository(pool),
		Tickets:  repository.NewTicketRepository(pool),
		Activity: repository.NewActivityRepository(pool),
		History:  repository.NewTicketHistoryRepository(pool),
	}
}

// MemoryRepositories builds stores over one in-process store.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Users:    store.Users(),
		Sessions: store.Sessions(),
		Tickets:  store.Tickets(),
		Activity: store.Activity(),
		History:  store.History(),
	}
}

// Options carries everything New needs. Postgres and Redis may be disabled
// wrappers; Metrics and Hasher default when nil.
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Repos    Repositories
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Hasher   auth.Hasher
}

// New wires services, workers and routes into a fiber app.
func New(opts Options) (*fiber.App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	hasher := opts.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	}
	statuses, err := cfg.Tickets.Statuses()
	if err != nil {
		return nil, fmt.Errorf("ticket statuses: %w", err)
	}

	sessions := opts.Repos.Sessions
	if opts.Redis.Enabled() && cfg.Auth.SessionCacheTTL() > 0 {
		cache := persistence.NewSessionCache(opts.Redis, cfg.Auth.SessionCacheTTL())
		sessions = repository.NewCachedSessionRepository(sessions, cache, logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))
	if opts.Redis.Enabled() {
		worker.NewRedisForwarder(opts.Redis, cfg.Notification.EventsChannel, logger).Start(dispatcher)
	}

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:    opts.Repos.Users,
		SessionRepo: sessions,
		Hasher:      hasher,
		Logger:      logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.Authenticator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, opts.Postgres, opts.Redis, metrics),
		AuthMiddleware: authMiddleware,
	}
	if cfg.App.Serves(config.ServiceIdentity) {
		routes.Identity = handlers.NewIdentityHandler(authService)
		routes.Users = handlers.NewUsersHandler(service.NewUserService(opts.Repos.Users, opts.Repos.Tickets, hasher, logger))
		if opts.Redis.Enabled() {
			routes.LoginLimiter = httptransport.LoginRateLimit(opts.Redis, cfg.Auth.LoginRateLimitPerMinute, logger)
		}
	}
	if cfg.App.Serves(config.ServiceTickets) {
		routes.Tickets = handlers.NewTicketsHandler(service.NewTicketService(service.TicketDependencies{
			TicketRepo:   opts.Repos.Tickets,
			ActivityRepo: opts.Repos.Activity,
			HistoryRepo:  opts.Repos.History,
			UserRepo:     opts.Repos.Users,
			Statuses:     statuses,
			Dispatcher:   dispatcher,
		}))
	}
	httptransport.RegisterRoutes(app, routes)

	logger.Info("routes registered",
		zap.String("service", cfg.App.Service),
		zap.Strings("statuses", statusNames(statuses.Statuses)))
	return app, nil
}

func statusNames[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
