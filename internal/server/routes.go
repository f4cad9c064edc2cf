package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/score"
)

// Deps is everything the HTTP layer serves.
type Deps struct {
	Campus   mapquiz.Campus
	Sessions *Sessions
	Broker   *Broker
	Scores   *score.HighScores
	Health   http.Handler
	SPADir   string
}

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Map Quiz API", "/openapi.json", "/docs"))
	if d.Health != nil {
		r.Mount("/healthz", d.Health)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/campus", handleCampus(d.Campus))

		r.Get("/highscore", handleGetHighScore(logger, d.Scores, len(d.Campus.Locations)))
		r.Delete("/highscore", handleClearHighScore(logger, d.Sessions))

		r.Post("/sessions", handleCreateSession(d.Sessions))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(sessionMiddleware(d.Sessions))
			r.Get("/", handleGetSession())
			r.Delete("/", handleDeleteSession(d.Sessions))
			r.Post("/guess", handleGuess())
			r.Post("/restart", handleRestart())
			r.Post("/retry", handleRetry())
			r.Get("/events", handleEvents(d.Broker))
			r.Get("/ws", handleSessionWS(logger, d.Broker))
		})
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
