package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yliang52/newsfeed_service/lib/env"
	"github.com/yliang52/newsfeed_service/lib/feed"
	"github.com/yliang52/newsfeed_service/lib/newsfeed"
)

type APPConfig struct {
	addr     string
	env      string
	db       DBConfig
	redis    RedisConfig
	natsUrl  string
	pipeline PipelineConfig
}

type DBConfig struct {
	path string
}

type RedisConfig struct {
	addr     string
	password string
	db       int
}

// PipelineConfig carries the tunables of the fan-out pipeline.
type PipelineConfig struct {
	pageSize    int
	batchSize   int
	cacheLimit  int
	cacheExpire time.Duration
	fanoutLimit time.Duration
}

func setConfig() APPConfig {
	return APPConfig{
		addr: env.GetEnv("ADDR", "127.0.0.1:8080"),
		env:  env.GetEnv("APP_ENV", "local"),
		db:   DBConfig{path: env.GetEnv("DB_PATH", "./db.sqlite3")},
		redis: RedisConfig{
			addr:     env.GetEnv("REDIS_ADDR", "localhost:6379"),
			password: env.GetEnv("REDIS_PASSWORD", ""),
			db:       env.GetInt("REDIS_DB", 0),
		},
		natsUrl: env.GetEnv("NATS_URL", "nats://localhost:4222"),
		pipeline: PipelineConfig{
			pageSize:    env.GetInt("PAGE_SIZE", 20),
			batchSize:   env.GetInt("FANOUT_BATCH_SIZE", 1000),
			cacheLimit:  env.GetInt("REDIS_LIST_LENGTH_LIMIT", 200),
			cacheExpire: env.GetDuration("REDIS_KEY_EXPIRE_TIME", 7*24*time.Hour),
			fanoutLimit: env.GetDuration("FANOUT_TIME_LIMIT", time.Hour),
		},
	}
}

type APP struct {
	config      APPConfig
	newsfeeds   *newsfeed.Service
	tweets      *feed.TweetStore
	friendships *feed.FriendshipStore
}

func newApp(newsfeeds *newsfeed.Service, tweets *feed.TweetStore, friendships *feed.FriendshipStore, config APPConfig) *APP {
	return &APP{
		config:      config,
		newsfeeds:   newsfeeds,
		tweets:      tweets,
		friendships: friendships,
	}
}

func (app *APP) mount() *chi.Mux {
	route := chi.NewRouter()

	route.Route("/api", func(r chi.Router) {
		r.Post("/tweets", app.createTweetHandler)
		r.Get("/newsfeeds/{userID}", app.getNewsFeedHandler)
		r.Route("/friendships/{userID}", func(r chi.Router) {
			r.Post("/follow", app.followHandler)
			r.Post("/unfollow", app.unfollowHandler)
		})
	})

	return route
}

func (app *APP) server(r *chi.Mux) *http.Server {
	return &http.Server{
		Addr:         app.config.addr,
		Handler:      r,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}
}
