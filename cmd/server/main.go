package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/m16khb/liar-game-sub001/internal/auth"
	"github.com/m16khb/liar-game-sub001/internal/config"
	"github.com/m16khb/liar-game-sub001/internal/game"
	"github.com/m16khb/liar-game-sub001/internal/server"
	"github.com/m16khb/liar-game-sub001/internal/session"
	"github.com/m16khb/liar-game-sub001/internal/store"
	"github.com/m16khb/liar-game-sub001/internal/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Match history is optional; rooms run fine without a database.
	var sink game.EventSink
	var recorder *store.Recorder
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		recorder = store.NewRecorder(pool, logger)
		if err := recorder.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("failed to ensure schema", zap.Error(err))
		}
		sink = recorder

		retention := store.StartRetention(pool, cfg.HistoryRetention, logger)
		defer retention.Stop()

		logger.Info("match history enabled")
	}

	// Session tickets live in Redis when available so reconnects survive a
	// restart; otherwise in process memory.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, 24*time.Hour, logger)
		logger.Info("redis session store enabled", zap.String("addr", cfg.RedisAddr))
	} else {
		sessions = session.NewMemoryStore(24 * time.Hour)
	}

	var authn auth.Authenticator
	if cfg.AuthSecret != "" {
		authn = auth.NewJWT(cfg.AuthSecret, 72*time.Hour)
		logger.Info("jwt authentication enabled")
	} else {
		authn = auth.Guest{}
		logger.Warn("no auth secret configured, accepting guest identities")
	}

	gameCfg := game.Config{
		DiscussionDuration: cfg.DiscussionDuration,
		TurnDuration:       cfg.TurnDuration,
		VotingDuration:     cfg.VotingDuration,
		GuessDuration:      cfg.GuessDuration,
		ReconnectGrace:     cfg.ReconnectGrace,
		TiePolicy:          cfg.TiePolicy,
		RevokeTicket: func(ticketID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			sessions.Revoke(ctx, ticketID)
		},
	}
	if cfg.TopicsFile != "" {
		gameCfg.Topics = utils.TopicPicker(utils.ReadTopicsCSV(cfg.TopicsFile))
	}

	registry := game.NewRegistry(gameCfg, logger, sink)
	broker := game.NewBroker(registry, authn, sessions, logger)
	srv := server.NewServer(cfg.Port, registry, broker)

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	registry.Close()
	if recorder != nil {
		recorder.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
