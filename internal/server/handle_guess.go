package server

import (
	"net/http"

	"github.com/playperu/mapquiz/internal/mapquiz"
)

type GuessRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// handleGuess takes the map coordinate the front-end translated the
// player's double-click into. A guess that arrives with no target yet or
// after the round locked is answered 200 with accepted=false.
func handleGuess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuessRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Lat == nil || req.Lng == nil {
			writeError(w, http.StatusBadRequest, "lat and lng are required")
			return
		}
		at := mapquiz.Coord{Lat: *req.Lat, Lng: *req.Lng}
		if !at.Valid() {
			writeError(w, http.StatusBadRequest, "coordinate out of range")
			return
		}

		res, err := sessionFrom(r).Guess(r.Context(), at)
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
