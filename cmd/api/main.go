package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remitdesk.org/internal/auth"
	"remitdesk.org/internal/cache"
	"remitdesk.org/internal/config"
	"remitdesk.org/internal/httpapi"
	"remitdesk.org/internal/obs"
	"remitdesk.org/internal/store"
	"remitdesk.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	tokens, err := auth.NewTokens(cfg.AuthSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	var (
		st    store.Store
		probe httpapi.ReadyProbe
	)
	if cfg.PostgresDSN != "" {
		pgStore, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		st = pgStore
		probe.DB = pgStore.DB()
	} else {
		log.Print("REMITDESK_PG_DSN not set, using in-memory store (development only)")
		st = store.NewInMemory()
	}

	var c *cache.Cache
	if cfg.RedisURL != "" {
		c, err = cache.New(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			// Cache is an optimization: start degraded rather than refuse.
			log.Printf("redis unavailable, running without cache: %v", err)
			c = nil
		} else {
			defer c.Close()
		}
	} else {
		log.Print("REMITDESK_REDIS_URL not set, running without cache")
	}
	probe.Cache = c

	api := httpapi.New(st, tokens, c, probe, httpapi.Options{
		Version:      version,
		Production:   cfg.Production(),
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSec,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting remitdesk-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
