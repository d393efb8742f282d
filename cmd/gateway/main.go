package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jwelary/internal/gateway"
	"jwelary/internal/platform/config"
	"jwelary/internal/platform/httpserver"
	"jwelary/internal/platform/logger"
	"jwelary/internal/platform/metrics"
	"jwelary/pkg/platform/middleware/cors"
)

// main runs the public session gateway in front of the backend.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "jwelary gateway:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	relay, err := gateway.NewRelay(cfg.Gateway.BackendURL, cfg.Gateway.UpstreamTimeout, log, m)
	if err != nil {
		return err
	}
	policy := cors.NewOriginPolicy(cfg.Gateway.AllowedOrigins)
	router := gateway.NewRouter(relay, policy, log, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.Info("starting jwelary gateway",
		"addr", cfg.Gateway.Addr,
		"backend", cfg.Gateway.BackendURL,
		"allowed_origins", policy.Origins(),
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Gateway.Addr, router), log)
}
