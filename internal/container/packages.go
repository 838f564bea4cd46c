package container

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/linkguard/internal/auth"
	"github.com/serroba/linkguard/internal/events"
	"github.com/serroba/linkguard/internal/handlers"
	"github.com/serroba/linkguard/internal/health"
	"github.com/serroba/linkguard/internal/links"
	"github.com/serroba/linkguard/internal/messaging"
	"github.com/serroba/linkguard/internal/middleware"
	"github.com/serroba/linkguard/internal/observability"
	"github.com/serroba/linkguard/internal/ratelimit"
	"github.com/serroba/linkguard/internal/store"
	"github.com/serroba/linkguard/internal/urlguard"
	"go.uber.org/zap"
)

const (
	serviceName   = "linkguard"
	consumerGroup = "linkguard-events"
)

// RedisClient closes the shared Redis connection when the injector shuts down.
type RedisClient struct {
	Client *redis.Client
}

func (c *RedisClient) Shutdown() error {
	return c.Client.Close()
}

func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return observability.NewLogger(opts.LogFormat)
	})
}

func ObservabilityPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*prometheus.Registry, error) {
		return observability.NewRegistry(), nil
	})

	do.Provide(injector, func(i *do.Injector) (*observability.TracerProvider, error) {
		opts := do.MustInvoke[*Options](i)

		return observability.NewTracerProvider(context.Background(), serviceName, opts.OTLPEndpoint)
	})
}

func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*store.PostgresStore, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if err := store.Migrate(opts.DatabaseURL); err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := store.NewPostgresPool(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		logger.Info("postgres ready")

		return store.NewPostgresStore(pool), nil
	})
}

// RepositoryPackage selects the link store named by Options.Store.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (links.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Store {
		case "postgres":
			pg, err := do.Invoke[*store.PostgresStore](i)
			if err != nil {
				return nil, err
			}

			return pg, nil
		case "memory", "":
			return store.NewMemoryStore(), nil
		default:
			return nil, fmt.Errorf("unknown store %q", opts.Store)
		}
	})
}

// GuardPackage builds the safety guard. With a Safe Browsing key the vendor is wrapped
// in a circuit breaker and a two-level verdict cache shared through Redis.
func GuardPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*urlguard.BreakerLookup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return urlguard.NewBreakerLookup(
			urlguard.NewSafeBrowsingClient(opts.SafeBrowsingKey),
			urlguard.DefaultBreakerSettings(),
			logger,
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*urlguard.Guard, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		reg := do.MustInvoke[*prometheus.Registry](i)

		cfg, err := opts.GuardConfig()
		if err != nil {
			return nil, err
		}

		var lookup urlguard.Lookup = urlguard.NoopLookup{}

		if cfg.ReputationEnabled() {
			client := do.MustInvoke[*RedisClient](i)
			ttl := time.Duration(opts.ReputationCacheTTL) * time.Second

			lookup = urlguard.NewCachedLookup(
				do.MustInvoke[*urlguard.BreakerLookup](i),
				opts.ReputationCacheSize,
				ttl,
				urlguard.WithFlightTimeout(cfg.ReputationTimeout),
				urlguard.WithSharedCache(store.NewRedisVerdictCache(client.Client, ttl, logger)),
			)
		}

		logger.Info("url guard configured",
			zap.String("mode", string(cfg.Mode)),
			zap.Bool("reputation", cfg.ReputationEnabled()),
			zap.Duration("reputationTimeout", cfg.ReputationTimeout),
		)

		return urlguard.NewGuard(cfg, lookup, logger, urlguard.WithMetrics(urlguard.NewMetrics(reg))), nil
	})
}

func LinksPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*links.Service, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		reg := do.MustInvoke[*prometheus.Registry](i)
		repo := do.MustInvoke[links.Repository](i)
		guard := do.MustInvoke[*urlguard.Guard](i)

		generate, err := nanoid.Standard(opts.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("code generator: %w", err)
		}

		lifecycle := links.NewLifecycle(repo, logger, links.WithLifecycleMetrics(links.NewMetrics(reg)))

		return links.NewService(repo, guard, lifecycle, generate, logger), nil
	})
}

func AuthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (auth.Verifier, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.JWTSecret == "" {
			logger.Warn("no JWT secret configured, every bearer token will be rejected")
		}

		return auth.NewJWTVerifier(opts.JWTSecret, urlguard.ParseList(opts.AdminEmails)), nil
	})
}

func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		var counters ratelimit.Store

		switch opts.RateLimitStore {
		case "memory":
			counters = store.NewRateLimitMemoryStore()
		default:
			counters = store.NewRateLimitRedisStore(do.MustInvoke[*RedisClient](i).Client)
		}

		return ratelimit.NewPolicyLimiter(counters, ratelimit.DefaultPolicy()), nil
	})
}

// PublisherGroupPackage provides the event publishers. With events disabled every publish is dropped.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return messaging.NewRedisPublisherGroup(client.Client, logger)
	})

	do.Provide(injector, func(i *do.Injector) (events.Publishers, error) {
		opts := do.MustInvoke[*Options](i)

		if !opts.EventsEnabled {
			return events.Publishers{
				LinkCreated: messaging.Discard[events.LinkCreatedEvent](),
				LinkVisited: messaging.Discard[events.LinkVisitedEvent](),
				LinkDeleted: messaging.Discard[events.LinkDeletedEvent](),
				URLRejected: messaging.Discard[events.URLRejectedEvent](),
			}, nil
		}

		group, err := do.Invoke[*messaging.PublisherGroup](i)
		if err != nil {
			return events.Publishers{}, err
		}

		return events.NewPublishers(group.Publisher()), nil
	})
}

func HealthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*health.Handler, error) {
		opts := do.MustInvoke[*Options](i)
		checkers := map[string]health.Checker{}

		if opts.usesRedis() {
			checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client)
		}

		if opts.SafeBrowsingKey != "" {
			checkers["reputation"] = do.MustInvoke[*urlguard.BreakerLookup](i)
		}

		if opts.Store == "postgres" {
			checkers["postgres"] = do.MustInvoke[*store.PostgresStore](i)
		}

		return health.NewHandler(checkers), nil
	})
}

// HTTPPackage provides the router and the API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		reg := do.MustInvoke[*prometheus.Registry](i)

		_ = do.MustInvoke[*observability.TracerProvider](i)

		api := humachi.New(router, huma.DefaultConfig("Link Guard", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.Authenticate(api, do.MustInvoke[auth.Verifier](i), logger),
			middleware.PolicyRateLimiter(api, do.MustInvoke[*ratelimit.PolicyLimiter](i), logger),
		)

		handlers.RegisterRoutes(api, handlers.NewLinkHandler(
			do.MustInvoke[*links.Service](i),
			opts.BaseURL,
			do.MustInvoke[events.Publishers](i),
			logger,
		))
		health.RegisterRoutes(api, do.MustInvoke[*health.Handler](i))

		router.Handle("/metrics", observability.MetricsHandler(reg))

		return api, nil
	})
}

// ConsumerGroupPackage provides the event consumers that log every topic.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)
		reg := do.MustInvoke[*prometheus.Registry](i)

		subscriber, err := messaging.NewRedisSubscriber(client.Client, consumerGroup, logger)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		events.RegisterConsumers(group, subscriber, events.NewLogSink(logger), logger,
			messaging.WithConsumerMetrics(messaging.NewMetrics(reg)))

		return group, nil
	})
}

// ServerPackages registers everything the HTTP server needs.
func ServerPackages(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	ObservabilityPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	RepositoryPackage(injector)
	GuardPackage(injector)
	LinksPackage(injector)
	AuthPackage(injector)
	RateLimitPackage(injector)
	PublisherGroupPackage(injector)
	HealthPackage(injector)
	HTTPPackage(injector)
}
