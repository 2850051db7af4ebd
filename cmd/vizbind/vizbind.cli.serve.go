package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/itsatony/go-vizbind"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// serveCmd runs the HTTP render API
type serveCmd struct {
	Addr          string        `default:":8080"  help:"Listen address."`
	Storage       string        `default:"memory" enum:"memory,filesystem,postgres" help:"Template storage driver."`
	DSN           string        `help:"Storage connection string: a directory for filesystem, a DSN for postgres."`
	StorageTTL    time.Duration `default:"5m"     help:"Cache TTL for stored template lookups, 0 to disable."`
	RedisAddr     string        `help:"Redis address for a shared result cache."`
	RedisPassword string        `help:"Redis password."`
	RedisDB       int           `default:"0"      help:"Redis database."`
	CacheTTL      time.Duration `default:"5m"     help:"Result cache TTL."`
	MaxDepth      int           `default:"512"    help:"Maximum element nesting depth, 0 for unlimited."`
	MaxBodyBytes  int64         `default:"4194304" help:"Maximum request body size in bytes."`
}

func (c *serveCmd) Run(app *appContext) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, cleanup, err := c.buildEngine(app, registry)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              c.Addr,
		Handler:           newServer(engine, registry, app.logger, c.MaxBodyBytes).routes(),
		ReadHeaderTimeout: DefaultReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(LogMsgServerStarting, zap.String(LogFieldAddr, c.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return renderFailure(ErrMsgServerFailed, err)
	case <-app.ctx.Done():
	}

	app.logger.Info(LogMsgServerStopping)
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// buildEngine opens storage and caches and returns an engine reporting to registry
func (c *serveCmd) buildEngine(app *appContext, registry prometheus.Registerer) (*vizbind.Engine, func(), error) {
	storage, err := vizbind.OpenStorage(c.Storage, c.DSN)
	if err != nil {
		return nil, nil, inputFailure(ErrMsgStorageFailed, err)
	}
	app.logger.Info(LogMsgStorageOpened, zap.String(LogFieldDriver, c.Storage))

	closers := []func() error{storage.Close}
	cleanup := func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}

	if c.StorageTTL > 0 {
		config := vizbind.DefaultCacheConfig()
		config.TTL = c.StorageTTL
		storage = vizbind.NewCachedStorage(storage, config)
	}

	var cache vizbind.ResultCache
	if c.RedisAddr != "" {
		redisCache := vizbind.NewRedisResultCache(c.RedisAddr, c.RedisPassword, c.RedisDB,
			vizbind.WithRedisTTL(c.CacheTTL))
		closers = append(closers, redisCache.Close)
		if err := redisCache.Ping(app.ctx); err != nil {
			cleanup()
			return nil, nil, inputFailure(ErrMsgRedisFailed, err)
		}
		app.logger.Info(LogMsgRedisEnabled, zap.String(LogFieldAddr, c.RedisAddr))
		cache = redisCache
	} else {
		config := vizbind.DefaultResultCacheConfig()
		config.TTL = c.CacheTTL
		cache = vizbind.NewMemoryResultCache(config)
	}

	engine, err := vizbind.New(
		vizbind.WithLogger(app.logger),
		vizbind.WithMaxDepth(c.MaxDepth),
		vizbind.WithStorage(storage),
		vizbind.WithResultCache(cache),
		vizbind.WithMetrics(vizbind.NewMetrics(registry)),
	)
	if err != nil {
		cleanup()
		return nil, nil, usageFailure(err.Error())
	}
	return engine, cleanup, nil
}
