// Package round sequences a quiz session through its fixed list of
// locations.
//
// Session is the state machine proper and performs no I/O; every
// asynchronous step it asks for (a geocode lookup, the delayed advance to
// the next round) is identified by a Ticket, and completions whose ticket
// no longer matches are discarded. Controller drives a Session from a
// single goroutine.
package round

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/score"
)

// AdvanceDelay is how long the answer feedback stays up before the next
// round begins.
const AdvanceDelay = 1200 * time.Millisecond

// Phase is where the session is in its round cycle.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseAwaitingGeocode Phase = "awaiting_geocode"
	PhaseAwaitingGuess   Phase = "awaiting_guess"
	PhaseLocked          Phase = "locked"
	PhaseFinished        Phase = "finished"
)

// Ticket names the round an asynchronous step was issued for. Generation
// changes on every (re)start.
type Ticket struct {
	Generation uint64
	Round      int
}

// State is the counters and current target a view is built from.
type State struct {
	RoundIndex    int
	TotalRounds   int
	CorrectCount  int
	AnswerLocked  bool
	CurrentTarget *mapquiz.TargetRegion
}

// HistoryEntry records one answered round.
type HistoryEntry struct {
	Round   int    `json:"round"`
	Name    string `json:"name"`
	Correct bool   `json:"correct"`
}

// Feedback is what the map shows after a guess: the guess marker and the
// revealed target box, coloured by correctness.
type Feedback struct {
	Guess   mapquiz.Coord  `json:"guess"`
	Target  mapquiz.Bounds `json:"target"`
	Correct bool           `json:"correct"`
}

// GeocodeRequest asks the caller to look up Location and report back
// under Ticket.
type GeocodeRequest struct {
	Ticket   Ticket
	Location mapquiz.Location
}

// Verdict is the outcome of an accepted guess.
type Verdict struct {
	Ticket  Ticket
	Name    string
	Correct bool
}

// Step is the outcome of a deferred advance: either the next round's
// geocode request or the finished session's result.
type Step struct {
	Next     *GeocodeRequest
	Finished bool
	Result   mapquiz.ScoreRecord
}

var ErrNoLocations = errors.New("round: no locations")

type Session struct {
	locations []mapquiz.Location

	generation    uint64
	phase         Phase
	state         State
	timer         score.Timer
	history       []HistoryEntry
	feedback      *Feedback
	message       string
	summary       string
	geocodeFailed bool
}

func NewSession(locations []mapquiz.Location) (*Session, error) {
	if len(locations) == 0 {
		return nil, ErrNoLocations
	}
	return &Session{
		locations: slices.Clone(locations),
		phase:     PhaseIdle,
		state:     State{TotalRounds: len(locations)},
	}, nil
}

// Start resets the session to round one, restarts the timer and returns
// the first geocode request. Anything issued for an earlier generation
// becomes stale.
func (s *Session) Start(now time.Time) GeocodeRequest {
	s.generation++
	s.state = State{TotalRounds: len(s.locations)}
	s.history = nil
	s.summary = ""
	s.timer.Start(now)
	return s.beginRound()
}

// Restart is Start with a message noting the reset.
func (s *Session) Restart(now time.Time) GeocodeRequest {
	req := s.Start(now)
	s.message = "Restarted. " + s.message
	return req
}

func (s *Session) beginRound() GeocodeRequest {
	loc := s.locations[s.state.RoundIndex]
	s.phase = PhaseAwaitingGeocode
	s.state.AnswerLocked = false
	s.state.CurrentTarget = nil
	s.feedback = nil
	s.geocodeFailed = false
	s.message = fmt.Sprintf("Round %d: find %s. Double-click your guess.", s.state.RoundIndex+1, loc.Name)
	return GeocodeRequest{Ticket: s.ticket(), Location: loc}
}

func (s *Session) ticket() Ticket {
	return Ticket{Generation: s.generation, Round: s.state.RoundIndex}
}

func (s *Session) current(t Ticket) bool {
	return s.phase != PhaseIdle && t == s.ticket()
}

// Resolve installs the target for the round t was issued for. It reports
// false, changing nothing, when t is stale or the round is not waiting on
// a geocode.
func (s *Session) Resolve(t Ticket, center mapquiz.Coord) bool {
	if !s.current(t) || s.phase != PhaseAwaitingGeocode {
		return false
	}
	target := mapquiz.NewTargetRegion(s.locations[t.Round].Name, center)
	s.state.CurrentTarget = &target
	s.phase = PhaseAwaitingGuess
	s.geocodeFailed = false
	return true
}

// Fail records a failed lookup. The round stays in AwaitingGeocode until
// Retry or a restart.
func (s *Session) Fail(t Ticket) bool {
	if !s.current(t) || s.phase != PhaseAwaitingGeocode {
		return false
	}
	s.geocodeFailed = true
	s.message = fmt.Sprintf("Could not locate %s. Restart to try again.", s.locations[t.Round].Name)
	return true
}

// Retry reissues the geocode request of a stalled round.
func (s *Session) Retry() (GeocodeRequest, bool) {
	if s.phase != PhaseAwaitingGeocode || !s.geocodeFailed {
		return GeocodeRequest{}, false
	}
	return s.beginRound(), true
}

// Guess evaluates c against the active target. It is ignored, reporting
// false, when there is no target yet or the round is already locked.
func (s *Session) Guess(c mapquiz.Coord) (Verdict, bool) {
	target := s.state.CurrentTarget
	if s.phase != PhaseAwaitingGuess || target == nil || s.state.AnswerLocked {
		return Verdict{}, false
	}

	s.state.AnswerLocked = true
	s.phase = PhaseLocked

	correct := target.Contains(c)
	if correct {
		s.state.CorrectCount++
		s.message = "Correct."
	} else {
		s.message = "Wrong. The highlighted area is where it is."
	}
	s.history = append(s.history, HistoryEntry{
		Round:   s.state.RoundIndex + 1,
		Name:    target.Name,
		Correct: correct,
	})
	s.feedback = &Feedback{Guess: c, Target: target.Bounds(), Correct: correct}

	return Verdict{Ticket: s.ticket(), Name: target.Name, Correct: correct}, true
}

// Advance moves past the locked round t was issued for.
func (s *Session) Advance(t Ticket, now time.Time) (Step, bool) {
	if !s.current(t) || s.phase != PhaseLocked {
		return Step{}, false
	}

	s.state.RoundIndex++
	if s.state.RoundIndex >= s.state.TotalRounds {
		s.finish(now)
		return Step{Finished: true, Result: s.Result(now)}, true
	}
	req := s.beginRound()
	return Step{Next: &req}, true
}

func (s *Session) finish(now time.Time) {
	s.timer.Stop(now)
	s.phase = PhaseFinished
	s.state.AnswerLocked = false
	s.state.CurrentTarget = nil
	s.feedback = nil
	s.summary = fmt.Sprintf("Final Score: %d / %d in %.1fs",
		s.state.CorrectCount, s.state.TotalRounds, s.timer.Elapsed(now))
	s.message = "Game over. " + s.summary
}

// NewHighScore notes on the finished session that its result was stored.
func (s *Session) NewHighScore(now time.Time) {
	if s.phase != PhaseFinished {
		return
	}
	s.message = "New high score: " + s.Result(now).Format(s.state.TotalRounds) + "."
}

func (s *Session) SetMessage(msg string) { s.message = msg }

func (s *Session) Result(now time.Time) mapquiz.ScoreRecord {
	return mapquiz.ScoreRecord{Correct: s.state.CorrectCount, Seconds: s.timer.Elapsed(now)}
}

func (s *Session) Phase() Phase { return s.phase }

// State returns a copy of the round state.
func (s *Session) State() State {
	st := s.state
	if st.CurrentTarget != nil {
		target := *st.CurrentTarget
		st.CurrentTarget = &target
	}
	return st
}

func (s *Session) ElapsedSeconds(now time.Time) float64 {
	return s.timer.Elapsed(now)
}

// View is everything a presentation layer renders.
type View struct {
	ID             string         `json:"id"`
	Phase          Phase          `json:"phase"`
	Round          int            `json:"round"`
	TotalRounds    int            `json:"totalRounds"`
	Target         string         `json:"target"`
	TargetReady    bool           `json:"targetReady"`
	Locked         bool           `json:"locked"`
	GeocodeFailed  bool           `json:"geocodeFailed"`
	Message        string         `json:"message"`
	History        []HistoryEntry `json:"history"`
	CorrectCount   int            `json:"correctCount"`
	Score          string         `json:"score"`
	ElapsedSeconds float64        `json:"elapsedSeconds"`
	Feedback       *Feedback      `json:"feedback"`
	Summary        string         `json:"summary,omitempty"`
	HighScore      string         `json:"highScore"`
}

func (s *Session) View(now time.Time) View {
	v := View{
		Phase:          s.phase,
		TotalRounds:    s.state.TotalRounds,
		TargetReady:    s.state.CurrentTarget != nil,
		Locked:         s.state.AnswerLocked,
		GeocodeFailed:  s.geocodeFailed,
		Message:        s.message,
		History:        make([]HistoryEntry, len(s.history)),
		CorrectCount:   s.state.CorrectCount,
		Score:          fmt.Sprintf("%d / %d", s.state.CorrectCount, s.state.TotalRounds),
		ElapsedSeconds: s.timer.Elapsed(now),
		Summary:        s.summary,
	}
	copy(v.History, s.history)

	switch s.phase {
	case PhaseIdle:
	case PhaseFinished:
		v.Round = s.state.TotalRounds
	default:
		v.Round = s.state.RoundIndex + 1
		v.Target = s.locations[s.state.RoundIndex].Name
	}
	if s.feedback != nil {
		fb := *s.feedback
		v.Feedback = &fb
	}
	return v
}
