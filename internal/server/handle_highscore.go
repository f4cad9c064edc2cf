package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/mapquiz/internal/score"
)

type HighScoreResponse struct {
	Present bool    `json:"present"`
	Correct int     `json:"correct"`
	Seconds float64 `json:"seconds"`
	Display string  `json:"display"`
}

func handleGetHighScore(logger *slog.Logger, scores *score.HighScores, totalRounds int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := scores.Get(r.Context())
		if err != nil {
			logger.Error("reading high score", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := HighScoreResponse{Display: score.Display(rec, totalRounds)}
		if rec != nil {
			resp.Present = true
			resp.Correct = rec.Correct
			resp.Seconds = rec.Seconds
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleClearHighScore(logger *slog.Logger, sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.ClearHighScore(r.Context()); err != nil {
			logger.Error("clearing high score", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, HighScoreResponse{Display: score.NoHighScore})
	}
}
