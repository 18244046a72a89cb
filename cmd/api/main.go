package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"workstay.org/internal/auth"
	"workstay.org/internal/config"
	"workstay.org/internal/httpapi"
	"workstay.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "none"
)

func main() {
	configPath := flag.String("config", os.Getenv("WORKSTAY_CONFIG"), "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	tokens, err := auth.NewTokenService(
		cfg.Auth.AccessSecret,
		cfg.Auth.RefreshSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithAccessTTL(cfg.Auth.AccessTTL.Std()),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL.Std()),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	directory := auth.NewPGDirectory(db)
	sessions, err := auth.NewSessionService(directory, tokens)
	if err != nil {
		log.Fatalf("session service: %v", err)
	}
	guard, err := auth.NewGuard(tokens)
	if err != nil {
		log.Fatalf("guard: %v", err)
	}

	api := httpapi.New(sessions, guard, httpapi.ReadyProbe{DB: db}, version,
		httpapi.WithRateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout.Std(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout.Std(),
		WriteTimeout:      cfg.Server.WriteTimeout.Std(),
		IdleTimeout:       cfg.Server.IdleTimeout.Std(),
	}

	log.Printf("Starting workstay-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
