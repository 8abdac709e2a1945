package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/yliang52/newsfeed_service/lib/cache"
	"github.com/yliang52/newsfeed_service/lib/db"
	"github.com/yliang52/newsfeed_service/lib/feed"
	"github.com/yliang52/newsfeed_service/lib/newsfeed"
	"github.com/yliang52/newsfeed_service/lib/queue"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("no .env file, using environment as-is")
	}
	config := setConfig()
	initLogger(config)

	ctx := context.Background()

	conn, err := db.Connect(ctx, config.db.path)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	rdb := cache.NewRedisClient(config.redis.addr, config.redis.password, config.redis.db)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis connection was refused", "error", err)
		os.Exit(1)
	}

	nc, err := nats.Connect(config.natsUrl)
	if err != nil {
		slog.Error("nats connection failed", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	fanoutQueue, err := queue.NewJetStreamQueue(nc)
	if err != nil {
		slog.Error("fan-out queue setup failed", "error", err)
		os.Exit(1)
	}

	feedStore := feed.NewStore(conn)
	tweetStore := feed.NewTweetStore(conn)
	friendshipStore := feed.NewFriendshipStore(conn)

	feedCache := newsfeed.NewFeedCache(
		cache.NewRedisListStore(rdb),
		feedStore,
		config.pipeline.cacheLimit,
		config.pipeline.cacheExpire,
	)

	newsfeeds := newsfeed.NewService(
		feedStore,
		feedCache,
		friendshipStore,
		fanoutQueue,
		config.pipeline.pageSize,
		config.pipeline.batchSize,
		config.pipeline.cacheLimit,
	)

	worker := queue.NewWorker(nc, newsfeeds, config.pipeline.fanoutLimit)
	if err := worker.Start(); err != nil {
		slog.Error("fan-out worker failed to start", "error", err)
		os.Exit(1)
	}

	app := newApp(newsfeeds, tweetStore, friendshipStore, config)
	server := app.server(app.mount())

	go func() {
		slog.Info("newsfeed service listening", "addr", config.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	if err := worker.Stop(); err != nil {
		slog.Error("worker drain failed", "error", err)
	}
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

func initLogger(config APPConfig) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if config.env == "local" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if config.env == "local" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
