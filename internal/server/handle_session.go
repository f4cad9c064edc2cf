package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/mapquiz/internal/round"
)

type RetryResponse struct {
	Accepted bool       `json:"accepted"`
	View     round.View `json:"view"`
}

func handleCreateSession(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := sessions.Create(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := sessionFrom(r).Snapshot(r.Context())
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleDeleteSession(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Delete(chi.URLParam(r, "id")); errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRestart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := sessionFrom(r).Restart(r.Context())
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleRetry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, v, err := sessionFrom(r).Retry(r.Context())
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RetryResponse{Accepted: ok, View: v})
	}
}

func writeControllerError(w http.ResponseWriter, err error) {
	if errors.Is(err, round.ErrClosed) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
