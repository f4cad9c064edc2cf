package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/mapquiz/internal/config"
	"github.com/playperu/mapquiz/internal/database"
	"github.com/playperu/mapquiz/internal/geocode"
	"github.com/playperu/mapquiz/internal/handler/health"
	"github.com/playperu/mapquiz/internal/kv"
	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/migrations"
	"github.com/playperu/mapquiz/internal/round"
	"github.com/playperu/mapquiz/internal/score"
	"github.com/playperu/mapquiz/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	campus, err := mapquiz.LoadCampus()
	if err != nil {
		return fmt.Errorf("loading campus: %w", err)
	}

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	checks := map[string]health.Checker{
		"sqlite": health.CheckerFunc(db.PingContext),
	}

	// --- High score store ---
	var store kv.Store = kv.NewSQLiteStore(db)
	if cfg.ScoreBackend == config.ScoreBackendRedis {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		store = kv.NewRedisStore(rdb)
		checks["redis"] = health.CheckerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	scores := score.NewHighScores(store, logger)

	// --- Geocoding ---
	google, err := geocode.NewGoogle(cfg.GoogleMapsAPIKey, cfg.GeocodeQPS)
	if err != nil {
		return fmt.Errorf("creating geocoder: %w", err)
	}

	// --- Sessions ---
	broker := server.NewBroker()
	sessions := server.NewSessions(campus.Locations, geocode.NewCache(google, cfg.GeocodeTimeout), scores,
		round.WithPublisher(broker),
		round.WithLogger(logger),
		round.WithGeocodeTimeout(cfg.GeocodeTimeout),
	)
	defer sessions.Close()

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Campus:   campus,
		Sessions: sessions,
		Broker:   broker,
		Scores:   scores,
		Health:   health.NewHandler(logger, checks).Routes(),
		SPADir:   cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		return sessions.RunReaper(gctx, logger, cfg.SessionIdleTTL)
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
