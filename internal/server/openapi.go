package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/mapquiz/internal/round"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type healthStatus struct {
	Status string `json:"status"`
}

type sessionPath struct {
	ID string `path:"id" description:"Session ID returned by POST /api/sessions."`
}

type guessInput struct {
	ID  string  `path:"id"`
	Lat float64 `json:"lat" required:"true" minimum:"-90" maximum:"90"`
	Lng float64 `json:"lng" required:"true" minimum:"-180" maximum:"180"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Map Quiz API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the campus map quiz.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]healthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]healthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/campus
	getCampus, _ := r.NewOperationContext(http.MethodGet, "/api/campus")
	getCampus.SetSummary("Campus map")
	getCampus.SetDescription("Map centre, view bounds and location names in play order.")
	getCampus.AddRespStructure(CampusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCampus)

	// GET /api/highscore
	getHighScore, _ := r.NewOperationContext(http.MethodGet, "/api/highscore")
	getHighScore.SetSummary("Get high score")
	getHighScore.SetDescription("Best result so far: most correct, then fastest.")
	getHighScore.AddRespStructure(HighScoreResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getHighScore)

	// DELETE /api/highscore
	clearHighScore, _ := r.NewOperationContext(http.MethodDelete, "/api/highscore")
	clearHighScore.SetSummary("Clear high score")
	clearHighScore.SetDescription("Removes the stored high score. Safe to call when none exists.")
	clearHighScore.AddRespStructure(HighScoreResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(clearHighScore)

	// POST /api/sessions
	createSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	createSession.SetSummary("Start a game")
	createSession.SetDescription("Creates a session and starts round one.")
	createSession.AddRespStructure(round.View{}, openapi.WithHTTPStatus(http.StatusCreated))
	_ = r.AddOperation(createSession)

	// GET /api/sessions/{id}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}")
	getSession.SetSummary("Get session view")
	getSession.SetDescription("Round, target, message, history, timer and score for rendering.")
	getSession.AddReqStructure(sessionPath{})
	getSession.AddRespStructure(round.View{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// DELETE /api/sessions/{id}
	deleteSession, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{id}")
	deleteSession.SetSummary("End session")
	deleteSession.AddReqStructure(sessionPath{})
	deleteSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteSession)

	// POST /api/sessions/{id}/guess
	postGuess, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/guess")
	postGuess.SetSummary("Submit guess")
	postGuess.SetDescription("Submit the coordinate of the player's double-click. Ignored (accepted=false) while no target is ready or the round is locked.")
	postGuess.AddReqStructure(guessInput{})
	postGuess.AddRespStructure(round.GuessResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postGuess)

	// POST /api/sessions/{id}/restart
	postRestart, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/restart")
	postRestart.SetSummary("Restart game")
	postRestart.SetDescription("Abandons the current game in any state and starts round one.")
	postRestart.AddReqStructure(sessionPath{})
	postRestart.AddRespStructure(round.View{}, openapi.WithHTTPStatus(http.StatusOK))
	postRestart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postRestart)

	// POST /api/sessions/{id}/retry
	postRetry, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/retry")
	postRetry.SetSummary("Retry geocode")
	postRetry.SetDescription("Reissues the location lookup of a round stalled on a geocode failure.")
	postRetry.AddReqStructure(sessionPath{})
	postRetry.AddRespStructure(RetryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postRetry.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postRetry)

	// GET /api/sessions/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of session transitions. The first event is a snapshot.")
	getEvents.AddReqStructure(sessionPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{id}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/ws")
	getWS.SetSummary("WebSocket play channel")
	getWS.SetDescription("Streams session events; accepts {type: guess|restart|retry} commands.")
	getWS.AddReqStructure(sessionPath{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
