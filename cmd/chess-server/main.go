package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/archive"
	appcfg "github.com/TheGreatKamikaze1/GlobalChessBackend/internal/config"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/httpapi"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/msgcat"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/obslog"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/query"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/rules"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/session"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/settle"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("redis connect error: %v", err)
	}

	engine := settle.NewEngine(rdb)

	var store archive.Store
	if cfg.DatabaseURL != "" {
		pg, err := archive.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("archive schema error: %v", err)
		}
		store = pg
	} else {
		obslog.L().Warn("no DATABASE_URL set, using in-memory archive")
		store = archive.NewMemory()
	}

	validator := rules.ForMode(cfg.RulesMode)
	manager := session.NewManager(rdb, engine, store, validator, cfg.SessionTTL)
	queries := query.NewService(manager, store)

	catalog, err := msgcat.New(cfg.MessageOverrideDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := httpapi.NewHandler(manager, queries, engine, catalog, cfg.HistoryLimit)
	router := httpapi.NewRouter(handler, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("server_start",
			zap.String("addr", srv.Addr),
			zap.String("rules_mode", cfg.RulesMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	obslog.L().Info("server_shutdown")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obslog.L().Error("server_shutdown_error", zap.Error(err))
	}
}
