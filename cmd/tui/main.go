package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/playperu/mapquiz/internal/config"
	"github.com/playperu/mapquiz/internal/database"
	"github.com/playperu/mapquiz/internal/geocode"
	"github.com/playperu/mapquiz/internal/kv"
	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/migrations"
	"github.com/playperu/mapquiz/internal/round"
	"github.com/playperu/mapquiz/internal/score"
	"github.com/playperu/mapquiz/internal/tui"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// The terminal belongs to the UI, so logs go next to the database.
	logFile, err := os.OpenFile(filepath.Join(filepath.Dir(cfg.DBPath), "tui.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel}))

	var store kv.Store = kv.NewSQLiteStore(db)
	if cfg.ScoreBackend == config.ScoreBackendRedis {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		store = kv.NewRedisStore(rdb)
	}

	campus, err := mapquiz.LoadCampus()
	if err != nil {
		return fmt.Errorf("loading campus: %w", err)
	}

	google, err := geocode.NewGoogle(cfg.GoogleMapsAPIKey, cfg.GeocodeQPS)
	if err != nil {
		return fmt.Errorf("creating geocoder: %w", err)
	}

	feed := tui.NewFeed()
	ctrl, err := round.New("terminal", campus.Locations, geocode.NewCache(google, cfg.GeocodeTimeout),
		score.NewHighScores(store, logger),
		round.WithPublisher(feed),
		round.WithLogger(logger),
		round.WithGeocodeTimeout(cfg.GeocodeTimeout),
	)
	if err != nil {
		return fmt.Errorf("creating game: %w", err)
	}
	defer ctrl.Close()

	return tui.Run(ctrl, feed)
}
