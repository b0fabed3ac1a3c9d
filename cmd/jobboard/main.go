package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobboard/internal/auth"
	"jobboard/internal/config"
	"jobboard/internal/db"
	"jobboard/internal/httpserver"
	"jobboard/internal/identity"
	"jobboard/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	dbConn, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	if err := db.RunMigrations(ctx, dbConn, cfg.SchemaDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userStore := auth.NewStore(dbConn)
	seeded, err := auth.SeedFromFile(ctx, userStore, cfg.UsersPath)
	if err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if seeded > 0 {
		logger.Info("seeded users", "count", seeded, "path", cfg.UsersPath)
	}

	rdb, err := auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	authSvc := auth.NewService(userStore, auth.NewRedisRefreshStore(rdb), cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)

	var resolver identity.ProfileResolver = identity.ResolverFunc(authSvc.ResolveRole)
	if cfg.IdentityURL != "" {
		resolver = identity.NewHTTPResolver(cfg.IdentityURL, cfg.ResolveTimeout)
		logger.Info("server phase resolves roles remotely", "url", cfg.IdentityURL)
	}
	phase := identity.NewServerPhase(resolver, cfg.ResolveTimeout, logger)

	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:         logger,
		Auth:           authSvc,
		ServerPhase:    phase,
		EntryPaths:     cfg.EntryPaths,
		AllowedOrigins: cfg.AllowedOrigins,
		CookieSecure:   cfg.CookieSecure,
		RefreshTTL:     cfg.RefreshTTL,
	})
	server := httpserver.New(cfg.HTTPAddr, handler, logger)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
