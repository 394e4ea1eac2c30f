// Package app provides the main application setup and dependency injection.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"nextsoundwave/pkg/appctx"
	"nextsoundwave/pkg/backends"
	"nextsoundwave/pkg/cache"
	"nextsoundwave/pkg/config"
	"nextsoundwave/pkg/engines"
	"nextsoundwave/pkg/handlers/api"
	"nextsoundwave/pkg/httpclient"
	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/invidious"
	"nextsoundwave/pkg/logging"
	"nextsoundwave/pkg/registry"
	"nextsoundwave/pkg/search"
	"nextsoundwave/pkg/server"
	"nextsoundwave/pkg/services"
)

// App is the main application container.
type App struct {
	Ctx          *appctx.Context
	Server       *server.Server
	HTTPClient   *httpclient.Client
	Engines      *registry.Registry[interfaces.Engine]
	Searchers    *registry.Registry[interfaces.Searcher]
	Orchestrator *services.Orchestrator
	Cache        interfaces.Cache
}

// New wires every component from cfg.
func New(cfg *config.Config, log *logging.Logger) (*App, error) {
	log.Info("initializing NextSoundWave", "addr", cfg.Addr(), "engine", cfg.Engine, "log_level", cfg.LogLevel)

	ctx := appctx.New(cfg, log)
	httpClient := httpclient.New(cfg, log)

	engineReg := registry.New[interfaces.Engine]()
	registerEngines(engineReg, cfg, httpClient, log)

	engine, ok := engineReg.Get(cfg.Engine)
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (registered: %v)", cfg.Engine, engineReg.Names())
	}

	primary := backends.NewPrimaryBackend(engine, backends.PrimaryOptions{
		Timeout:       cfg.EngineTimeout(),
		MaxConcurrent: cfg.YTDLPMaxConcurrent,
		Embed:         embedHosts(cfg),
	}, log)

	orchestrator := services.NewOrchestrator(
		primary,
		fallbackFactory(cfg, httpClient, log),
		discoverFunc(cfg, httpClient, log),
		services.OrchestratorOptions{
			DefaultInstance: cfg.DefaultInstance(),
			Candidates:      cfg.Instances,
		},
		log,
	)
	ctx.WithExtractor(orchestrator)

	searchReg := registry.New[interfaces.Searcher]()
	registerSearchers(searchReg, cfg, httpClient, log)

	c := newCache(cfg, log)
	ctx.WithSearch(services.NewSearchService(searchReg.All(), c, cfg.SearchCacheTTL, log))

	srv := server.New(cfg, log)
	api.NewHandlers(ctx).RegisterRoutes(srv.Router())

	return &App{
		Ctx:          ctx,
		Server:       srv,
		HTTPClient:   httpClient,
		Engines:      engineReg,
		Searchers:    searchReg,
		Orchestrator: orchestrator,
		Cache:        c,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.Ctx.Log.Info("starting NextSoundWave server", "addr", a.Ctx.Config.Addr())
	return a.Server.Start(ctx)
}

// Close releases resources held by the application.
func (a *App) Close() {
	a.Ctx.Log.Info("shutting down application")

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Ctx.Log.Warn("failed to close cache", "error", err)
		}
	}
}

// registerEngines registers all primary extraction engines.
// Add new engines here by:
// 1. Creating a new engine in pkg/engines/
// 2. Registering it below
func registerEngines(
	reg *registry.Registry[interfaces.Engine],
	cfg *config.Config,
	client *httpclient.Client,
	log *logging.Logger,
) {
	reg.Register(engines.NewKKDAI(client.HTTPClient(cfg.EngineTimeout()), log))
	reg.Register(engines.NewYTDLP(cfg.YTDLPPath, cfg.YTDLPFormat, cfg.YTDLPTimeout, log))

	log.Info("registered engines", "engines", reg.Names())
}

// registerSearchers registers search providers in the order they are tried.
func registerSearchers(
	reg *registry.Registry[interfaces.Searcher],
	cfg *config.Config,
	client *httpclient.Client,
	log *logging.Logger,
) {
	reg.Register(search.NewYouTube(log))

	opts := invidiousOptions(cfg)
	clients := lo.Map(cfg.Instances, func(inst string, _ int) *invidious.Client {
		return invidious.NewClient(inst, client, opts, log)
	})
	reg.Register(search.NewInvidious(clients, log))

	log.Info("registered search providers", "count", reg.Len())
}

func invidiousOptions(cfg *config.Config) invidious.Options {
	return invidious.Options{
		APITimeout:   cfg.APITimeout,
		ProbeTimeout: cfg.ProbeTimeout,
		RateLimit:    cfg.InstanceRate,
	}
}

func embedHosts(cfg *config.Config) backends.EmbedHosts {
	return backends.EmbedHosts{
		Primary:  cfg.EmbedHost,
		Fallback: cfg.FallbackEmbedHost,
	}
}

func fallbackFactory(cfg *config.Config, client *httpclient.Client, log *logging.Logger) services.FallbackFactory {
	opts := invidiousOptions(cfg)
	embed := embedHosts(cfg)
	return func(instance string) interfaces.Backend {
		return backends.NewFallbackBackend(invidious.NewClient(instance, client, opts, log), embed, log)
	}
}

func discoverFunc(cfg *config.Config, client *httpclient.Client, log *logging.Logger) services.DiscoverFunc {
	probe := backends.InvidiousProbe(client, invidiousOptions(cfg), log.WithComponent("discovery"))
	return func(ctx context.Context, candidates []string) mo.Option[string] {
		return backends.FindWorking(ctx, candidates, probe, cfg.DiscoveryWorkers)
	}
}

// newCache returns a Redis cache when REDIS_URL is set and reachable,
// otherwise an in-process cache.
func newCache(cfg *config.Config, log *logging.Logger) interfaces.Cache {
	if cfg.RedisURL == "" {
		return cache.NewMemory()
	}

	r, err := cache.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-memory cache", "error", err)
		return cache.NewMemory()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		log.Warn("redis unreachable, using in-memory cache", "error", err)
		r.Close()
		return cache.NewMemory()
	}

	log.Info("search cache enabled", "backend", "redis")
	return r
}
