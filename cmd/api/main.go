package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/madu-store/api/internal/cart"
	"github.com/madu-store/api/internal/di"
	"github.com/madu-store/api/internal/handlers"
	"github.com/madu-store/api/internal/platform/config"
	pfirestore "github.com/madu-store/api/internal/platform/firestore"
	"github.com/madu-store/api/internal/platform/jobs"
	"github.com/madu-store/api/internal/platform/observability"
	"github.com/madu-store/api/internal/platform/secrets"
	"github.com/madu-store/api/internal/repositories"
	firestoreRepo "github.com/madu-store/api/internal/repositories/firestore"
	"github.com/madu-store/api/internal/repositories/memory"
	redisRepo "github.com/madu-store/api/internal/repositories/redis"
	"github.com/madu-store/api/internal/services"
)

// closer releases one backend during shutdown.
type closer struct {
	name  string
	close func(context.Context) error
}

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	var closers []closer
	var firestoreProvider *pfirestore.Provider
	if cfg.Catalog.Backend == config.BackendFirestore || cfg.Cart.Backend == config.BackendFirestore {
		firestoreProvider = pfirestore.NewProvider(cfg.Firestore, pfirestore.WithDialTimeout(cfg.Firestore.DialTimeout))
	}

	registry, err := buildRegistry(cfg, firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	healthOpts := []handlers.HealthOption{
		handlers.WithHealthStartedAt(startedAt),
		handlers.WithHealthCheck("catalog", registry.Health().Ping),
	}

	cartStorage, err := buildCartStorage(cfg, firestoreProvider, &closers, &healthOpts)
	if err != nil {
		logger.Fatal("failed to initialise cart storage", zap.Error(err))
	}

	events, err := buildEventPublisher(ctx, cfg, &closers)
	if err != nil {
		logger.Fatal("failed to initialise order event publisher", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Infrastructure{
		CartStorage: cartStorage,
		Events:      events,
		Logger: func(component string) services.Logger {
			return observability.ServiceLogger(logger.Named(component))
		},
		Clock: time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	// Registered last so it closes first; the shared Firestore provider goes with it.
	closers = append(closers, closer{name: "repositories", close: container.Close})

	sessions := container.Services.Sessions
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	cleanupTicker := time.NewTicker(cfg.Cart.SweepInterval)
	cleanupWG.Add(1)
	go func() {
		defer cleanupWG.Done()
		sweepLogger := logger.Named("cart")
		for {
			select {
			case <-cleanupTicker.C:
				if removed := sessions.Sweep(time.Now()); removed > 0 {
					sweepLogger.Info("cart sessions evicted", zap.Int("count", removed), zap.Int("live", sessions.Len()))
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		handlers.ResolveCartSession(),
		observability.RequestLoggerMiddleware(projectID),
	}

	publicHandlers := handlers.NewPublicHandlers(container.Services.Catalog, container.Services.Settings)
	cartHandlers := handlers.NewCartHandlers(sessions)
	checkoutHandlers := handlers.NewCheckoutHandlers(sessions, container.Services.Checkout)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithSessionMiddlewares(handlers.RequireCartSession(cfg.Cart.StateTTL)),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("madu storefront api listening",
			zap.String("catalog", cfg.Catalog.Backend),
			zap.String("cart", cfg.Cart.Backend),
			zap.String("events", cfg.Events.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupTicker.Stop()
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(shutdownCtx); err != nil {
			logger.Warn("close error", zap.String("backend", closers[i].name), zap.Error(err))
		}
	}
}

func buildRegistry(cfg config.Config, provider *pfirestore.Provider) (repositories.Registry, error) {
	switch cfg.Catalog.Backend {
	case config.BackendFirestore:
		return firestoreRepo.NewRegistry(provider)
	default:
		seed := memory.Seed{}
		if path := strings.TrimSpace(cfg.Catalog.SeedFile); path != "" {
			loaded, err := memory.LoadSeedFile(path)
			if err != nil {
				return nil, err
			}
			seed = loaded
		}
		return memory.NewRegistry(seed)
	}
}

func buildCartStorage(cfg config.Config, provider *pfirestore.Provider, closers *[]closer, health *[]handlers.HealthOption) (cart.Storage, error) {
	switch cfg.Cart.Backend {
	case config.BackendRedis:
		client := redisRepo.NewClient(cfg.Redis)
		repo, err := redisRepo.NewCartStateRepository(client, cfg.Cart.StateTTL)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		*closers = append(*closers, closer{name: "redis", close: func(context.Context) error { return repo.Close() }})
		*health = append(*health, handlers.WithHealthCheck("cart", repo.Ping))
		return repo, nil
	case config.BackendFirestore:
		repo, err := firestoreRepo.NewCartStateRepository(provider, cfg.Cart.StateTTL)
		if err != nil {
			return nil, err
		}
		if cfg.Catalog.Backend != config.BackendFirestore {
			*closers = append(*closers, closer{name: "firestore", close: provider.Close})
			*health = append(*health, handlers.WithHealthCheck("cart", provider.Ping))
		}
		return repo, nil
	default:
		return cart.NewMemoryStorage(), nil
	}
}

func buildEventPublisher(ctx context.Context, cfg config.Config, closers *[]closer) (services.OrderEventPublisher, error) {
	switch cfg.Events.Backend {
	case config.BackendPubSub:
		client, err := pubsub.NewClient(ctx, cfg.Events.PubSubProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		publisher, err := jobs.NewPubSubOrderPublisher(client.Topic(cfg.Events.Topic))
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		*closers = append(*closers,
			closer{name: "pubsub", close: func(context.Context) error { return client.Close() }},
			closer{name: "pubsub topic", close: func(context.Context) error { return publisher.Close() }},
		)
		return publisher, nil
	case config.BackendKafka:
		writer, err := jobs.NewKafkaWriter(cfg.Events.Topic, cfg.Events.KafkaBrokers...)
		if err != nil {
			return nil, err
		}
		publisher, err := jobs.NewKafkaOrderPublisher(writer)
		if err != nil {
			_ = writer.Close()
			return nil, err
		}
		*closers = append(*closers, closer{name: "kafka", close: func(context.Context) error { return publisher.Close() }})
		return publisher, nil
	default:
		return nil, nil
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firestore.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Events.PubSubProjectID)
}

// newSecretFetcher bootstraps the fetcher before the full configuration is loaded.
func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	project, err := config.Lookup("API_SECRETS_PROJECT_ID")
	if err != nil {
		return nil, err
	}
	if project == "" {
		if project, err = config.Lookup("API_FIRESTORE_PROJECT_ID"); err != nil {
			return nil, err
		}
	}

	opts := []secrets.Option{secrets.WithLogger(logger.Named("secrets"))}
	if project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	return secrets.NewFetcher(ctx, opts...)
}
