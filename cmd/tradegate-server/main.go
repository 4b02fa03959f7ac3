package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/service"
	"github.com/yndnr/tradegate-go/internal/infra/buildinfo"
	"github.com/yndnr/tradegate-go/internal/infra/confloader"
	"github.com/yndnr/tradegate-go/internal/infra/eventbus"
	"github.com/yndnr/tradegate-go/internal/infra/shutdown"
	"github.com/yndnr/tradegate-go/internal/server/config"
	"github.com/yndnr/tradegate-go/internal/server/httpserver"
	"github.com/yndnr/tradegate-go/internal/server/httpserver/handler"
	"github.com/yndnr/tradegate-go/internal/storage"
	"github.com/yndnr/tradegate-go/internal/storage/memory"
	"github.com/yndnr/tradegate-go/internal/storage/redisstate"
	"github.com/yndnr/tradegate-go/internal/telemetry/logger"
	"github.com/yndnr/tradegate-go/internal/telemetry/metric"
	"github.com/yndnr/tradegate-go/pkg/crypto/vault"
)

// limiterSweepInterval is how often idle login limiters are dropped.
const limiterSweepInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command line flags
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		envFile     = flag.String("env-file", "", "Path to a .env file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("tradegate-server %s\n", buildinfo.String())
		return nil
	}

	var dotEnv []string
	if *envFile != "" {
		dotEnv = append(dotEnv, *envFile)
	}
	cfg, err := config.Load(*configFile, dotEnv...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting tradegate-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	// Background workers stop when the "background" hook cancels ctx.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hooks run in reverse registration order, so register in start order.
	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, log)

	var registry *metric.Registry
	if cfg.Metrics.Enabled {
		registry = metric.NewRegistry()
	}

	var redisClient *redis.Client
	if cfg.Defense.Backend == config.BackendRedis || cfg.Events.Backend == config.BackendRedis {
		redisClient, err = redisstate.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		shutdownHandler.OnShutdown("redis", func(context.Context) error {
			return redisClient.Close()
		})
		log.Info("redis connected")
	}

	storageCfg := storage.OpenConfig{
		Driver:     cfg.Storage.Driver,
		DataDir:    cfg.Storage.DataDir,
		SQLitePath: cfg.Storage.SQLitePath,
		Logger:     log,
	}
	if registry != nil {
		storageCfg.Registerer = registry.Registerer()
	}
	repo, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return repo.Close()
	})

	bus, err := initEventBus(cfg, redisClient, log)
	if err != nil {
		return fmt.Errorf("init event bus: %w", err)
	}
	shutdownHandler.OnShutdown("events", func(context.Context) error {
		return bus.Close()
	})

	v, err := initVault(cfg)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	auth, err := authn.New(authn.Config{
		Secret:     []byte(cfg.Security.JWTSecret),
		TokenTTL:   cfg.Security.TokenTTL,
		BcryptCost: cfg.Security.BcryptCost,
	}, repo)
	if err != nil {
		return fmt.Errorf("init authenticator: %w", err)
	}

	var stateStore defense.StateStore
	switch cfg.Defense.Backend {
	case config.BackendRedis:
		stateStore = redisstate.New(redisClient)
	default:
		stateStore = memory.NewDefenseStore()
	}

	opts := []service.Option{service.WithLogger(log)}
	if registry != nil {
		opts = append(opts, service.WithMetrics(registry))
	}

	pool := service.NewCryptoPool(cfg.Security.CryptoConcurrency)
	users := service.NewUserService(repo, auth, pool, nil, opts...)
	security := service.NewSecurityService(stateStore, bus, opts...)
	services := handler.Services{
		Users:       users,
		Credentials: service.NewCredentialService(repo, v, pool, opts...),
		Ledger:      service.NewLedgerService(repo, bus, opts...),
		Webhook: service.NewWebhookService(service.WebhookConfig{
			Secret:        cfg.Webhook.Secret,
			AllowUnsigned: cfg.Webhook.AllowUnsigned,
		}, bus, opts...),
		Security: security,
	}

	pipelineOpts := []defense.Option{defense.WithBlockListener(security.OnBlock)}
	if registry != nil {
		pipelineOpts = append(pipelineOpts, defense.WithRecorder(registry))
	}
	pipeline := defense.NewPipeline(stateStore, defense.Config{
		Window:       cfg.Defense.Window,
		MaxRequests:  cfg.Defense.MaxRequests,
		MaxUserAgent: cfg.Defense.MaxUserAgent,
		BlockTTL:     cfg.Defense.BlockTTL,
	}, pipelineOpts...)
	log.Info("defense pipeline ready",
		"backend", cfg.Defense.Backend,
		"stages", pipeline.Stages(),
		"window", cfg.Defense.Window,
		"max_requests", cfg.Defense.MaxRequests)

	if registry != nil {
		registry.Registerer().MustRegister(metric.NewCollector(
			func() (int, error) {
				countCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				return security.BlockedCount(countCtx)
			},
			trackedCount(stateStore),
		))
	}

	// Background workers
	if sweeper, ok := stateStore.(defense.Sweeper); ok {
		go defense.RunJanitor(ctx, sweeper, cfg.Defense.SweepInterval, cfg.Defense.Window, log)
	}
	go sweepLoginLimiters(ctx, users, log)
	go runSecurityAlerts(ctx, bus, log)
	shutdownHandler.OnShutdown("background", func(context.Context) error {
		cancel()
		return nil
	})

	if *configFile != "" {
		watcher, err := startConfigWatcher(*configFile, log)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	routerCfg := httpserver.DefaultRouterConfig()
	routerCfg.Services = services
	routerCfg.Auth = auth
	routerCfg.Pipeline = pipeline
	routerCfg.Logger = log
	routerCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	routerCfg.TrustProxyHeaders = cfg.Security.TrustProxyHeaders
	routerCfg.MaxBodyBytes = cfg.Server.HTTP.MaxBodyBytes
	if registry != nil {
		routerCfg.Metrics = registry
		routerCfg.MetricsHandler = registry.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	router, err := httpserver.NewRouter(routerCfg)
	if err != nil {
		return fmt.Errorf("init router: %w", err)
	}

	httpServer := httpserver.New(httpserver.Config{
		Addr:            cfg.Server.HTTP.Addr,
		TLSCertFile:     cfg.Server.HTTP.TLSCertFile,
		TLSKeyFile:      cfg.Server.HTTP.TLSKeyFile,
		TLSClientCAFile: cfg.Server.HTTP.TLSClientCAFile,
		ReadTimeout:     cfg.Server.HTTP.ReadTimeout,
		WriteTimeout:    cfg.Server.HTTP.WriteTimeout,
		Logger:          log,
	}, router)
	shutdownHandler.OnShutdown("http", httpServer.Shutdown)

	// Start HTTP server in goroutine
	go func() {
		log.Info("HTTP server listening",
			"addr", cfg.Server.HTTP.Addr,
			"tls", httpServer.TLS())
		if err := httpServer.ListenAndServe(); err != nil {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	// Wait for shutdown signal
	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// initEventBus creates the configured event bus backend.
func initEventBus(cfg *config.ServerConfig, client *redis.Client, log *slog.Logger) (*eventbus.Bus, error) {
	if cfg.Events.Backend == config.BackendRedis {
		return eventbus.NewRedis(client, cfg.Events.ConsumerGroup, log)
	}
	return eventbus.NewMemory(log), nil
}

// initVault builds the credential vault from the configured key and cipher.
func initVault(cfg *config.ServerConfig) (*vault.Vault, error) {
	key, err := vault.ParseKey(cfg.Security.VaultKey)
	if err != nil {
		return nil, err
	}
	cipherType, err := vault.ParseCipherType(cfg.Security.VaultCipher)
	if err != nil {
		return nil, err
	}
	return vault.New(key, vault.WithCipher(cipherType))
}

// trackedCount reports active rate windows for stores that track them
// in-process. Redis windows expire on their own and are not counted.
func trackedCount(store defense.StateStore) metric.CountFunc {
	ds, ok := store.(*memory.DefenseStore)
	if !ok {
		return nil
	}
	return func() (int, error) {
		return ds.Tracked(), nil
	}
}

// sweepLoginLimiters drops idle per-email login limiters.
func sweepLoginLimiters(ctx context.Context, users *service.UserService, log *slog.Logger) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := users.SweepLimiter(); n > 0 {
				log.Debug("login limiters swept", "removed", n)
			}
		}
	}
}

// runSecurityAlerts logs every identity blocked by the defense pipeline.
// Buses without a subscriber (redis without a consumer group) skip it.
func runSecurityAlerts(ctx context.Context, bus *eventbus.Bus, log *slog.Logger) {
	messages, err := bus.Subscribe(ctx, eventbus.TopicIdentityBlocked)
	if err != nil {
		if !errors.Is(err, eventbus.ErrSubscribeUnsupported) {
			log.Warn("security alert subscription failed", "error", err)
		}
		return
	}

	consumeSecurityAlerts(messages, log)
}

// consumeSecurityAlerts logs one alert per blocked identity. Malformed
// events are acked so the backend does not redeliver them.
func consumeSecurityAlerts(messages <-chan *message.Message, log *slog.Logger) {
	for msg := range messages {
		event, err := eventbus.Decode[eventbus.IdentityBlocked](msg)
		if err != nil {
			log.Warn("dropping malformed security event", "message_id", msg.UUID, "error", err)
			msg.Ack()
			continue
		}
		log.Warn("security alert: identity blocked",
			"identity", event.Entry.Identity,
			"reason", event.Entry.Reason,
			"request_id", msg.Metadata.Get(eventbus.MetaRequestID))
		msg.Ack()
	}
}

// startConfigWatcher applies log level changes from the config file
// without a restart.
func startConfigWatcher(path string, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}
	watcher.ReloadKey(path, "log.level", func(level string) {
		if !logger.ValidLevel(level) {
			log.Warn("ignoring invalid log level", "level", level)
			return
		}
		logger.SetLevel(level)
	})
	watcher.StartAsync()
	return watcher, nil
}
