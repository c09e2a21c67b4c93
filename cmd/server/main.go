package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kapsa-app/backend/internal/auth"
	"github.com/kapsa-app/backend/internal/config"
	"github.com/kapsa-app/backend/internal/db"
	"github.com/kapsa-app/backend/internal/httpapi"
	"github.com/kapsa-app/backend/internal/logger"
	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/replicate"
	"github.com/kapsa-app/backend/internal/study"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect failed", "err", err)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		log.Fatal("db migrate failed", "err", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis unreachable, usage counters degrade to db-only", "addr", cfg.RedisAddr, "err", err)
	}

	ai := replicate.NewClient(cfg.ReplicateBaseURL, cfg.ReplicateAPIToken, cfg.PollInterval, cfg.MaxPollAttempts)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.AuthAdminURL, cfg.AuthServiceKey)

	repo := study.NewRepo(gdb)
	svc := study.NewService(repo, ai, verifier, rdb, log)

	router := httpapi.NewRouter(cfg, svc, verifier, log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
	_ = rdb.Close()
}
