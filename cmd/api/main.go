package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/config"
	"github.com/okulov/planettalk/backend/internal/handler"
	"github.com/okulov/planettalk/backend/internal/logging"
	"github.com/okulov/planettalk/backend/internal/model/speaker"
	"github.com/okulov/planettalk/backend/internal/service/ai"
	"github.com/okulov/planettalk/backend/internal/service/astro"
	"github.com/okulov/planettalk/backend/internal/service/chat"
	"github.com/okulov/planettalk/backend/internal/service/turn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Init()
	log := logging.AppLogger

	if err := godotenv.Load(); err != nil {
		log.Warn("failed to load .env file, continuing with system environment", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logging.ErrorLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	speakerStore := speaker.NewMemoryStore(speaker.Seed())
	chatSvc := chat.NewService(newSessionStore(cfg.Store, log))

	computer := astro.NewHTTPComputer(cfg.Chart)
	if !cfg.Chart.Enabled() {
		log.Warn("CHART_API_BASE_URL not set, chart creation will fail until configured")
	}

	var orchestrator *turn.Orchestrator
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Warn("failed to initialize AI service, continuing without turns", zap.Error(err))
		} else {
			orchestrator = turn.NewOrchestrator(chatSvc, aiService, speakerStore, cfg.Turn.SampleSize)
			log.Info("AI service initialized", zap.Int("turnSpeakers", cfg.Turn.SampleSize))
		}
	} else {
		log.Warn("ark credentials not configured, skipping AI initialization")
	}

	router := handler.NewRouter(speakerStore, chatSvc, computer, orchestrator)

	startServer(ctx, cfg.Server, router)
}

// newSessionStore selects redis when configured, memory otherwise.
func newSessionStore(cfg config.StoreConfig, log *zap.Logger) chat.Store {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory session store")
		return chat.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	log.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	return chat.NewRedisStore(client, time.Duration(cfg.SessionTTL)*time.Hour)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logging.AppLogger.Info("planettalk backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logging.ErrorLogger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
