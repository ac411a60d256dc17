// Command botticellid runs the actor host: it loads a roster of actors
// from a config file, starts each one on its configured schedule, and
// serves the control-plane HTTP API for inspecting and managing them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/crumplecup/botticelli/internal/actor"
	"github.com/crumplecup/botticelli/internal/auth"
	"github.com/crumplecup/botticelli/internal/config"
	"github.com/crumplecup/botticelli/internal/controlplane"
	"github.com/crumplecup/botticelli/internal/executor"
	"github.com/crumplecup/botticelli/internal/narrative"
	"github.com/crumplecup/botticelli/internal/observability"
	"github.com/crumplecup/botticelli/internal/processor"
	"github.com/crumplecup/botticelli/internal/providers"
	"github.com/crumplecup/botticelli/internal/resource"
	"github.com/crumplecup/botticelli/internal/storage"
	"github.com/crumplecup/botticelli/internal/tier"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "botticellid",
		Short:        "botticellid hosts and serves the actor roster",
		Version:      fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage: true,
	}
	root.AddCommand(buildServeCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the configured actors and serve the control-plane API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigName, "path to YAML configuration file, or let it fall back through $BOTTICELLI_CONFIG, ./botticelli.yaml, $HOME/.botticelli/botticelli.yaml, and a bundled default")
	return cmd
}

// host holds every piece runServe assembles so shutdown can unwind them in
// reverse order.
type host struct {
	logger       *slog.Logger
	registry     *actor.Registry
	store        actor.Store
	contentStore storage.Store
	flushTracer  func(context.Context) error
	server       *http.Server
}

func runServe(ctx context.Context, configPath string) error {
	resolvedPath, err := config.ResolvePath(configPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	cfg, err := config.Load(resolvedPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	slog.SetDefault(logger)

	metrics := observability.NewMetrics()
	tracer, flushTracer, err := observability.NewTracer(ctx, observability.TraceConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		Endpoint:       cfg.Observability.OTLPEndpoint,
		EnableInsecure: cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	recorder := observability.NewRecorder(metrics, tracer)

	contentStore, actorStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if err := storage.EnsureRegistry(ctx, contentStore); err != nil {
		return fmt.Errorf("ensure content table registry: %w", err)
	}

	providerSet, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}

	registry := actor.NewRegistry()
	for _, ac := range cfg.Actors {
		a, err := buildActor(ac, cfg, providerSet, contentStore, actorStore, recorder, logger)
		if err != nil {
			return fmt.Errorf("build actor %q: %w", ac.Name, err)
		}
		registry.Register(a)

		runCtx, cancel := context.WithCancel(ctx)
		go func(a *actor.Actor, cancel context.CancelFunc) {
			defer cancel()
			if err := a.Run(runCtx); err != nil {
				logger.Error("actor run loop exited", "actor", a.Name(), "error", err)
			}
		}(a, cancel)
	}

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	handler, err := controlplane.NewHandler(&controlplane.Config{
		Registry: registry,
		Store:    actorStore,
		Auth:     jwtService,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build control plane handler: %w", err)
	}

	mux := http.NewServeMux()
	basePath := cfg.Server.BasePath
	if basePath == "" || basePath == "/" {
		mux.Handle("/", handler)
	} else {
		mux.Handle(basePath+"/", http.StripPrefix(basePath, handler))
	}
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}

	h := &host{logger: logger, registry: registry, store: actorStore, contentStore: contentStore, flushTracer: flushTracer, server: srv}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("botticellid listening", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			h.shutdown(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
	}

	return h.shutdown(context.Background())
}

func (h *host) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	if err := h.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	for _, name := range h.registry.Names() {
		a, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		if err := a.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("actor %q shutdown: %w", name, err))
		}
	}
	if closer, ok := h.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("actor store close: %w", err))
		}
	}
	if err := h.contentStore.Close(); err != nil {
		errs = append(errs, fmt.Errorf("content store close: %w", err))
	}
	if h.flushTracer != nil {
		if err := h.flushTracer(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("flush tracer: %w", err))
		}
	}

	h.logger.Info("botticellid stopped")
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (storage.Store, actor.Store, error) {
	if cfg.Database.DSN == "" {
		return storage.NewMemoryStore(), actor.NewMemoryStore(), nil
	}
	contentStore, err := storage.OpenPostgresStore(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open content store: %w", err)
	}
	actorStore, err := actor.OpenPostgresStore(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open actor store: %w", err)
	}
	return contentStore, actorStore, nil
}

// providerSet maps a name in ActorConfig.Provider to a resolved
// resource.Provider ready for use by an executor.
type providerSet map[string]resource.Provider

func buildProviders(ctx context.Context, cfg *config.Config) (providerSet, error) {
	set := providerSet{}
	if cfg.Providers.Anthropic != nil {
		p, err := providers.NewAnthropicProvider(*cfg.Providers.Anthropic)
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		set["anthropic"] = p
	}
	if cfg.Providers.OpenAI != nil {
		p, err := providers.NewOpenAIProvider(*cfg.Providers.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		set["openai"] = p
	}
	if cfg.Providers.Bedrock != nil {
		p, err := providers.NewBedrockProvider(ctx, *cfg.Providers.Bedrock)
		if err != nil {
			return nil, fmt.Errorf("bedrock provider: %w", err)
		}
		set["bedrock"] = p
	}
	return set, nil
}

func buildActor(
	ac config.ActorConfig,
	cfg *config.Config,
	providerSet providerSet,
	contentStore storage.Store,
	actorStore actor.Store,
	recorder *observability.Recorder,
	logger *slog.Logger,
) (*actor.Actor, error) {
	p, ok := providerSet[ac.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", ac.Provider)
	}

	data, err := os.ReadFile(ac.NarrativePath)
	if err != nil {
		return nil, fmt.Errorf("read narrative %q: %w", ac.NarrativePath, err)
	}
	source, err := narrative.Load(data, ac.ExecuteName)
	if err != nil {
		return nil, fmt.Errorf("load narrative %q: %w", ac.NarrativePath, err)
	}

	var limiter *tier.Limiter
	if tc, ok := cfg.Tiers[ac.Provider]; ok {
		limiter = tier.New(ac.Provider, &tc, tier.WithRecorder(recorder))
	}

	exec := executor.New(p,
		executor.WithStore(contentStore),
		executor.WithLimiter(limiter),
		executor.WithProcessors(processor.NewRegistry(logger, recorder)),
		executor.WithLogger(logger),
		executor.WithTracer(recorder),
		executor.WithMetrics(recorder),
	)

	sched, err := buildSchedule(ac.Schedule)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}

	opts := []actor.Option{actor.WithActorLogger(logger)}
	if ac.FailureThreshold != nil {
		opts = append(opts, actor.WithThreshold(*ac.FailureThreshold))
	} else if cfg.ActorDefaults.FailureThreshold > 0 {
		opts = append(opts, actor.WithThreshold(cfg.ActorDefaults.FailureThreshold))
	}

	return actor.New(ac.Name, sched, exec, source, actorStore, opts...), nil
}

func buildSchedule(sc config.ScheduleConfig) (actor.Schedule, error) {
	switch sc.Kind {
	case "interval":
		return actor.NewIntervalSchedule(sc.Interval)
	case "cron":
		return actor.NewCronSchedule(sc.Cron, sc.Timezone)
	case "immediate":
		return actor.NewImmediateSchedule(), nil
	case "on_demand", "":
		return actor.NewOnDemandSchedule(), nil
	default:
		return actor.Schedule{}, fmt.Errorf("unknown schedule kind %q", sc.Kind)
	}
}
