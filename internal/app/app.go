package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/catalog-metrics/internal/platform/redis"
	"github.com/yungbote/catalog-metrics/internal/data/db"
	"github.com/yungbote/catalog-metrics/internal/data/repos"
	apphttp "github.com/yungbote/catalog-metrics/internal/http"
	httpH "github.com/yungbote/catalog-metrics/internal/http/handlers"
	"github.com/yungbote/catalog-metrics/internal/jobs/lock"
	"github.com/yungbote/catalog-metrics/internal/jobs/pipeline/lookup_backfill"
	"github.com/yungbote/catalog-metrics/internal/jobs/pipeline/metrics_refresh"
	jobrt "github.com/yungbote/catalog-metrics/internal/jobs/runtime"
	"github.com/yungbote/catalog-metrics/internal/jobs/scheduler"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics"
	"github.com/yungbote/catalog-metrics/internal/observability"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type App struct {
	Log *logger.Logger
	Cfg Config

	DBService *db.Service
	DB        *gorm.DB
	Redis     *goredis.Client

	Repos    repos.Set
	Usecases catalogmetrics.Usecases
	Metrics  *observability.Metrics

	Registry  *jobrt.Registry
	Runner    *jobrt.Runner
	Scheduler *scheduler.Scheduler
	Ops       *apphttp.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New connects the stores and wires every component. Nothing runs until Start.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	dbService, err := db.NewService(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	theDB := dbService.DB()
	if cfg.AutoProvision {
		if err := db.Provision(theDB); err != nil {
			_ = dbService.Close()
			return nil, fmt.Errorf("provision: %w", err)
		}
	}

	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewClient(log, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			_ = dbService.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
	}

	locker, err := buildLocker(cfg.LockBackend, theDB, rdb)
	if err != nil {
		_ = dbService.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	if err := metrics.RegisterDBStats(theDB, dbService.Driver()); err != nil {
		log.Warn("db stats collector not registered", "error", err)
	}

	repoSet := repos.New(theDB, log)
	uc := catalogmetrics.New(catalogmetrics.UsecasesDeps{
		Log:            log,
		Products:       repoSet.Products,
		OrderLines:     repoSet.OrderLines,
		ProductMetrics: repoSet.ProductMetrics,
		Lookup:         repoSet.Lookup,
	})

	registry := jobrt.NewRegistry()
	handlers := []jobrt.Handler{
		metrics_refresh.New(log, metrics_refresh.Config{
			BatchLimit: cfg.BatchLimit,
			StaleAfter: cfg.StaleAfter,
			LockTTL:    cfg.LockTTL,
		}, locker, metrics, uc),
		lookup_backfill.New(log, metrics, uc),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			_ = dbService.Close()
			return nil, fmt.Errorf("register %s: %w", h.Type(), err)
		}
	}
	runner := jobrt.NewRunner(log, registry, repoSet.Runs)

	sched := scheduler.New(log, runner)
	if err := sched.Add(cfg.RefreshSchedule, metrics_refresh.JobType); err != nil {
		_ = dbService.Close()
		return nil, err
	}

	ops := apphttp.NewServer(cfg.OpsAddr, apphttp.RouterConfig{
		Log:            log.With("component", "OpsServer"),
		Metrics:        metrics,
		ServiceName:    cfg.Otel.ServiceName,
		HealthHandler:  httpH.NewHealthHandler(theDB, rdb),
		RunHandler:     httpH.NewRunHandler(repoSet.Runs),
		RankingHandler: httpH.NewRankingHandler(uc),
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		DBService:    dbService,
		DB:           theDB,
		Redis:        rdb,
		Repos:        repoSet,
		Usecases:     uc,
		Metrics:      metrics,
		Registry:     registry,
		Runner:       runner,
		Scheduler:    sched,
		Ops:          ops,
		otelShutdown: otelShutdown,
	}, nil
}

func buildLocker(backend string, theDB *gorm.DB, rdb *goredis.Client) (lock.Locker, error) {
	switch backend {
	case lock.BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("LOCK_BACKEND=redis requires REDIS_ADDR")
		}
		return lock.NewRedisLocker(rdb), nil
	case lock.BackendPostgres:
		return lock.NewPostgresLocker(theDB), nil
	case lock.BackendLocal, "none":
		return lock.NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("unsupported LOCK_BACKEND %q", backend)
	}
}

// Start launches the scheduler and background collectors. The ops server is run by the
// caller so it can share the process errgroup.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Redis, 15*time.Second)
	}
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	if a.Cfg.AutoProvision {
		if err := a.Scheduler.ScheduleOnce(a.Cfg.BackfillDelay, lookup_backfill.JobType); err != nil {
			return err
		}
	}
	a.Log.Info("Catalog metrics worker started",
		"schedule", a.Cfg.RefreshSchedule,
		"batch_limit", a.Cfg.BatchLimit,
		"stale_after", a.Cfg.StaleAfter.String(),
		"lock_backend", a.Cfg.LockBackend,
	)
	return nil
}

// Run serves the ops endpoints and the schedule until ctx ends or either side fails,
// then closes the app. shutdownTimeout bounds Close.
func (a *App) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("Ops server listening", "addr", a.Cfg.OpsAddr)
		return a.Ops.Run()
	})
	g.Go(func() error {
		startErr := a.Start(gctx)
		if startErr == nil {
			<-gctx.Done()
		}
		// Close also stops the ops server, which lets the other goroutine return.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Close(shutdownCtx)
		return startErr
	})
	return g.Wait()
}

// Close stops scheduling, waits for in-flight runs and releases connections.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Ops != nil {
		if err := a.Ops.Shutdown(ctx); err != nil {
			a.Log.Warn("ops server shutdown", "error", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DBService != nil {
		if err := a.DBService.Close(); err != nil {
			a.Log.Warn("db close", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Log.Sync()
}
