package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"jwelary/internal/auth/password"
	authservice "jwelary/internal/auth/service"
	catalogservice "jwelary/internal/catalog/service"
	jwttoken "jwelary/internal/jwt_token"
	"jwelary/internal/platform/config"
	"jwelary/internal/platform/httpserver"
	"jwelary/internal/platform/logger"
	"jwelary/internal/platform/metrics"
	httptransport "jwelary/internal/transport/http"
	"jwelary/pkg/platform/middleware/cors"
)

// main wires the backend API over its backing stores. Business logic lives in
// the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "jwelary server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)

	if cfg.Auth.UsingDefaultSigningKey {
		if cfg.IsProduction() {
			return errors.New("JWT_SECRET must be set in production")
		}
		log.Warn("JWT_SECRET not set, using the insecure development signing key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	stores, err := openInfra(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer stores.Close(log)

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer,
		jwttoken.WithAccessTTL(cfg.Auth.AccessTokenTTL),
		jwttoken.WithRefreshTTL(cfg.Auth.RefreshTokenTTL),
	)
	auth := authservice.New(
		stores.users,
		password.NewHasher(password.WithCost(cfg.Auth.BcryptCost)),
		tokens,
		stores.revocations,
		log,
		authservice.WithRefreshRotation(cfg.Auth.RefreshRotation),
		authservice.WithAuditPublisher(stores.audit),
		authservice.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.Dependencies{
		Auth:          auth,
		Tokens:        tokens,
		Catalog:       catalogservice.New(stores.products, log),
		Policy:        cors.NewOriginPolicy(cfg.Gateway.AllowedOrigins),
		Logger:        log,
		SecureCookies: cfg.IsProduction(),
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	log.Info("starting jwelary backend",
		"addr", cfg.Server.Addr,
		"env", cfg.Env,
		"refresh_rotation", cfg.Auth.RefreshRotation,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, httpserver.New(cfg.Server.Addr, router), log)
	})
	if stores.purge != nil {
		g.Go(func() error {
			stores.purge(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
