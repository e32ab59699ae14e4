package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"ironbook/internal/audit"
	"ironbook/internal/broadcast"
	"ironbook/internal/config"
	"ironbook/internal/engine"
	"ironbook/internal/httpapi"
	"ironbook/internal/logging"
	"ironbook/internal/metrics"
	"ironbook/internal/orderservice"
	"ironbook/internal/ratelimit"
	"ironbook/internal/risk"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load("config.toml")
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.LogJSON)

	eng := engine.New()

	riskSvc := risk.New(risk.Config{
		MinOrderSize:         cfg.Risk.MinOrderSize,
		MaxOrderSize:         cfg.Risk.MaxOrderSize,
		PriceBandPercent:     decimal.NewFromFloat(cfg.Risk.PriceBandPercent),
		MaxPositionPerTrader: cfg.Risk.MaxPositionPerTrader,
	})

	limiter := ratelimit.New(cfg.Risk.MaxOrdersPerSecond, time.Duration(cfg.RateLimit.BucketTTLSeconds)*time.Second)
	limiter.Start()
	defer limiter.Close()

	hub := broadcast.New(cfg.Broadcast.BufferSize)
	hub.Start()
	defer hub.Close()

	auditSink := audit.New(log)
	m := metrics.New()

	svc := orderservice.New(eng, riskSvc, limiter, auditSink, m, hub)
	srv := httpapi.New(svc, m, log, cfg.Server.MaxWSConnections)

	httpServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler: srv.Router(),
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server exited")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
