package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	authservice "jwelary/internal/auth/service"
	"jwelary/internal/auth/store/revocation"
	"jwelary/internal/auth/store/user"
	catalogservice "jwelary/internal/catalog/service"
	catalogstore "jwelary/internal/catalog/store"
	"jwelary/internal/platform/config"
	"jwelary/internal/platform/metrics"
	"jwelary/internal/platform/postgres"
	"jwelary/internal/platform/redis"
	"jwelary/pkg/platform/audit"
	"jwelary/pkg/platform/circuit"
)

const purgeInterval = 15 * time.Minute

// infra holds the backing stores chosen from config. Without DATABASE_URL and
// REDIS_URL everything is in memory.
type infra struct {
	db    *sql.DB
	redis *redis.Client

	users       authservice.UserStore
	revocations authservice.RevocationList
	products    catalogservice.ProductStore
	audit       *audit.Publisher

	// purge, when set, periodically deletes expired denylist rows.
	purge func(ctx context.Context)
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (*infra, error) {
	in := &infra{}

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	in.db = db

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close(log)
		return nil, err
	}
	in.redis = rdb

	if db != nil {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			in.Close(log)
			return nil, err
		}
		in.users = user.NewPostgres(db)
		in.products = catalogstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		in.users = user.New()
		in.products = catalogstore.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	in.revocations = in.denylist(log, m)

	sink, err := auditSink(ctx, cfg.Audit, log)
	if err != nil {
		in.Close(log)
		return nil, err
	}
	in.audit = audit.NewPublisher(sink, log,
		audit.WithBufferSize(cfg.Audit.BufferSize),
		audit.WithDropObserver(m),
	)
	return in, nil
}

// denylist prefers Redis, then Postgres, each behind a breaker with an
// in-memory fallback. With neither it is in-memory only.
func (in *infra) denylist(log *slog.Logger, m *metrics.Metrics) authservice.RevocationList {
	fallback := revocation.NewInMemoryTRL()
	switch {
	case in.redis != nil:
		log.Info("using redis token denylist")
		primary := revocation.NewRedisTRL(in.redis.Client, revocation.WithRedisMetrics(m))
		return revocation.NewResilientTRL(primary, fallback, circuit.New("denylist-redis"), log, m)
	case in.db != nil:
		log.Info("using postgres token denylist")
		primary := revocation.NewPostgresTRL(in.db)
		in.purge = func(ctx context.Context) { purgeLoop(ctx, primary, log) }
		return revocation.NewResilientTRL(primary, fallback, circuit.New("denylist-postgres"), log, m)
	default:
		return fallback
	}
}

func purgeLoop(ctx context.Context, trl *revocation.PostgresTRL, log *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := trl.PurgeExpired(ctx)
			if err != nil {
				log.Error("denylist purge failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("denylist purged", "rows", n)
			}
		}
	}
}

func auditSink(ctx context.Context, cfg config.Audit, log *slog.Logger) (audit.Sink, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return audit.NewLogSink(log), nil
	}
	sink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("audit kafka sink: %w", err)
	}
	log.Info("publishing audit events to kafka", "topic", cfg.Topic)
	return sink, nil
}

// Close drains the audit pipeline before the stores go away.
func (in *infra) Close(log *slog.Logger) {
	if in.audit != nil {
		if err := in.audit.Close(); err != nil {
			log.Error("audit publisher close failed", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			log.Error("postgres close failed", "error", err)
		}
	}
}
