package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/wyfcoding/stockrouter/internal/stock/application"
	"github.com/wyfcoding/stockrouter/internal/stock/domain"
	"github.com/wyfcoding/stockrouter/internal/stock/infrastructure/databackend"
	"github.com/wyfcoding/stockrouter/internal/stock/infrastructure/dataset"
	"github.com/wyfcoding/stockrouter/internal/stock/infrastructure/searchcache"
	"github.com/wyfcoding/stockrouter/internal/stock/infrastructure/yahoo"
	httpserver "github.com/wyfcoding/stockrouter/internal/stock/interfaces/http"
	"github.com/wyfcoding/stockrouter/pkg/cache"
	"github.com/wyfcoding/stockrouter/pkg/config"
	"github.com/wyfcoding/stockrouter/pkg/logger"
	"github.com/wyfcoding/stockrouter/pkg/metrics"
	"github.com/wyfcoding/stockrouter/pkg/middleware"
	"github.com/wyfcoding/stockrouter/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var configPath = flag.String("config", config.GetEnv("APP_CONFIG", "configs/stockrouter/config.toml"), "config file path")

func main() {
	flag.Parse()

	// 1. Config
	// 显式指定 -config 时文件必须存在，否则缺失时只使用默认值
	load := config.LoadWithDefaults
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			load = config.Load
		}
	})
	cfg, err := load(*configPath)
	if err != nil {
		logger.Fatal(context.Background(), "failed to load config", "path", *configPath, "error", err)
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		logger.Fatal(context.Background(), "failed to init logger", "error", err)
	}
	ctx := context.Background()
	logger.Info(ctx, "starting service", "service", cfg.ServiceName, "version", cfg.Version, "env", cfg.Environment)

	// 3. Metrics
	metricsImpl := metrics.New(cfg.ServiceName)
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if err := metricsImpl.Register(registry); err != nil {
			logger.Fatal(ctx, "failed to register metrics", "error", err)
		}
		metricsSrv = metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	}

	// 4. Redis
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", "error", err)
		}
		defer redisCache.Close()
	}

	// 5. Alias dataset
	entries, err := dataset.Load(cfg.Resolver.DatasetPath)
	if err != nil {
		logger.Warn(ctx, "alias dataset unavailable, continuing with empty index", "path", cfg.Resolver.DatasetPath, "error", err)
	}
	index := domain.NewAliasIndex(entries)
	logger.Info(ctx, "alias index loaded", "entries", index.Entries(), "keys", index.Len())

	// 6. Search cache
	memCache, err := searchcache.NewMemoryCache(ctx, cfg.Resolver.SearchCacheTTL, cfg.Resolver.SearchCacheMaxMB)
	if err != nil {
		logger.Fatal(ctx, "failed to create search cache", "error", err)
	}
	defer memCache.Close()

	var searchCache domain.SearchCache = memCache
	if redisCache != nil {
		searchCache = searchcache.NewTieredCache(memCache,
			searchcache.NewRedisCache(redisCache, cfg.Resolver.SearchCachePrefix, cfg.Resolver.SearchCacheTTL))
	}

	// 7. Upstreams & Application
	yahooClient := yahoo.NewClient(cfg.Upstream, metricsImpl)
	backendClient := databackend.NewClient(cfg.Upstream, metricsImpl)

	search := application.NewSymbolSearch(yahooClient, searchCache, cfg.Upstream.SearchTimeout, metricsImpl)
	svc := application.NewResolutionService(index, search, yahooClient, backendClient, metricsImpl)

	// 8. Interfaces
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(metricsImpl),
	)
	if cfg.RateLimit.Enabled {
		var limiter ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
		if cfg.RateLimit.Backend == "redis" && redisCache != nil {
			limiter = ratelimit.NewRedisRateLimiter(redisCache.Client())
		}
		r.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}

	httpserver.NewHandler(svc).RegisterRoutes(r)

	// 9. Start
	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			return metrics.Serve(metricsSrv)
		})
	}

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case <-quit:
			logger.Info(ctx, "shutting down servers...")
		case <-gctx.Done():
			logger.Info(ctx, "context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "server stopped")
}
