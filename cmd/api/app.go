package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/cache"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/lock"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/notifier"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/repository/memory"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/adapter/repository/postgres"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/platform/config"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/platform/database"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/platform/logger"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/platform/metrics"
)

// app holds the wired engine and the resources to release on shutdown.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	db        *sql.DB
	redis     *redis.Client
	requests  *services.RequestService
	conflicts *services.ConflictService
	orch      *services.Orchestrator
	closers   []func() error
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, "stands")

	return cfg, log, nil
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	deps := services.Dependencies{Logger: log}

	if err := a.wireStorage(ctx, &deps); err != nil {
		a.close()
		return nil, err
	}

	if err := a.wireRedis(ctx, &deps); err != nil {
		a.close()
		return nil, err
	}

	if err := a.wireNotifier(&deps); err != nil {
		a.close()
		return nil, err
	}

	recorder, err := metrics.NewPromRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	deps.Metrics = recorder

	matcher := services.NewCompatibilityMatcher(cfg.Matching)
	a.requests = services.NewRequestService(deps, services.NewPriorityScorer(cfg.Scoring))
	a.conflicts = services.NewConflictService(deps, a.requests, services.NewConflictDetector(matcher))
	a.orch = services.NewOrchestrator(deps, a.requests, a.conflicts, matcher)

	return a, nil
}

func (a *app) wireStorage(ctx context.Context, deps *services.Dependencies) error {
	switch a.cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		if a.cfg.Storage.Seed != "" {
			seed, err := memory.LoadSeed(a.cfg.Storage.Seed)
			if err != nil {
				return err
			}
			store.Apply(seed)
			a.log.Info().Int("events", len(seed.Events)).Int("stands", len(seed.Stands)).Msg("memory store seeded")
		}

		deps.Requests = store.Requests()
		deps.Stands = store.Stands()
		deps.Conflicts = store.Conflicts()
		deps.History = store.History()
		deps.Catalog = store.Catalog()

		return nil

	case config.DriverPostgres:
		db, err := database.NewPostgresDB(ctx, a.cfg.Database, a.log)
		if err != nil {
			return err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)

		if a.cfg.Storage.Migrate {
			version, err := database.Migrate(ctx, db)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.log.Info().Int("version", version).Msg("schema up to date")
		}

		deps.Requests = postgres.NewRequestRepository(db)
		deps.Stands = postgres.NewStandRepository(db)
		deps.Conflicts = postgres.NewConflictRepository(db)
		deps.History = postgres.NewHistoryRepository(db)
		deps.Catalog = postgres.NewCatalogRepository(db)

		return nil
	}

	return fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
}

// wireRedis selects the event locker: Redis when enabled so several replicas
// share one lock per event, the in-process locker otherwise.
func (a *app) wireRedis(ctx context.Context, deps *services.Dependencies) error {
	rc := a.cfg.Redis
	if !rc.Enabled {
		deps.Locker = lock.NewLocalLocker()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        rc.Addr,
		Password:    rc.Password,
		DB:          rc.DB,
		DialTimeout: rc.DialTimeout,
	})
	a.redis = client
	a.closers = append(a.closers, client.Close)

	a.log.Info().Str("addr", rc.Addr).Msg("connecting to redis")
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	deps.Locker = lock.NewRedisLocker(client, lock.RedisLockerConfig{
		TTL:         rc.LockTTL,
		WaitTimeout: rc.LockWait,
	}, a.log)
	deps.Cache = cache.NewRedisStandCache(client, rc.CacheTTL)

	return nil
}

func (a *app) wireNotifier(deps *services.Dependencies) error {
	notifiers := notifier.Multi{notifier.NewLogNotifier(a.log)}

	kc := a.cfg.Kafka
	if kc.Enabled {
		kn, err := notifier.NewKafkaNotifier(notifier.KafkaConfig{
			Brokers:      kc.Brokers,
			Topic:        kc.Topic,
			MaxAttempts:  kc.MaxAttempts,
			WriteTimeout: kc.WriteTimeout,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, kn.Close)
		notifiers = append(notifiers, kn)
	}

	deps.Notifier = notifiers

	return nil
}

// ping reports whether the backing stores answer.
func (a *app) ping(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	return nil
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		a.log.Error().Err(err).Msg("shutdown")
	}
}
