package round

import (
	"strings"
	"testing"
	"time"

	"github.com/playperu/mapquiz/internal/mapquiz"
)

var testLocations = []mapquiz.Location{
	{Name: "Oasis", Address: "Oasis Wellness Center"},
	{Name: "Chaparral", Address: "Chaparral Hall"},
	{Name: "Sierra", Address: "Sierra Tower"},
	{Name: "Black House", Address: "Black House"},
	{Name: "Soraya", Address: "The Soraya"},
}

// coordOf gives every test location a distinct spot well outside the
// others' tolerance boxes.
func coordOf(i int) mapquiz.Coord {
	return mapquiz.Coord{Lat: 34.2400 + float64(i)*0.01, Lng: -118.5290}
}

func miss(i int) mapquiz.Coord {
	c := coordOf(i)
	c.Lat += 2 * mapquiz.TargetHalfExtent
	return c
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(testLocations)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

// playRound resolves the pending request, guesses, and advances.
func playRound(t *testing.T, s *Session, req GeocodeRequest, correct bool, now time.Time) Step {
	t.Helper()
	i := req.Ticket.Round
	if !s.Resolve(req.Ticket, coordOf(i)) {
		t.Fatalf("round %d: Resolve rejected", i)
	}
	guess := coordOf(i)
	if !correct {
		guess = miss(i)
	}
	v, ok := s.Guess(guess)
	if !ok {
		t.Fatalf("round %d: Guess rejected", i)
	}
	if v.Correct != correct {
		t.Fatalf("round %d: verdict = %v, want %v", i, v.Correct, correct)
	}
	step, ok := s.Advance(v.Ticket, now)
	if !ok {
		t.Fatalf("round %d: Advance rejected", i)
	}
	return step
}

func TestNewSessionRequiresLocations(t *testing.T) {
	if _, err := NewSession(nil); err != ErrNoLocations {
		t.Errorf("err = %v, want ErrNoLocations", err)
	}
}

func TestSessionVisitsRoundsInOrder(t *testing.T) {
	s := newTestSession(t)
	req := s.Start(t0)

	var visited []string
	for {
		visited = append(visited, req.Location.Name)
		if got := s.View(t0).Target; got != req.Location.Name {
			t.Fatalf("view target = %q, want %q", got, req.Location.Name)
		}
		step := playRound(t, s, req, true, t0)
		if step.Finished {
			break
		}
		req = *step.Next
	}

	if len(visited) != len(testLocations) {
		t.Fatalf("visited %d rounds, want %d", len(visited), len(testLocations))
	}
	for i, loc := range testLocations {
		if visited[i] != loc.Name {
			t.Errorf("round %d = %q, want %q", i, visited[i], loc.Name)
		}
	}
	if s.Phase() != PhaseFinished {
		t.Errorf("phase = %s, want finished", s.Phase())
	}
	if st := s.State(); st.RoundIndex != st.TotalRounds {
		t.Errorf("roundIndex = %d, want %d", st.RoundIndex, st.TotalRounds)
	}
}

func TestSessionScenarioThreeOfFive(t *testing.T) {
	s := newTestSession(t)
	pattern := []bool{true, true, false, true, false}

	req := s.Start(t0)
	var step Step
	for i, correct := range pattern {
		step = playRound(t, s, req, correct, t0.Add(time.Duration(i+1)*time.Second))
		if !step.Finished {
			req = *step.Next
		}
	}

	if !step.Finished {
		t.Fatal("session did not finish")
	}
	if step.Result.Correct != 3 {
		t.Errorf("correct = %d, want 3", step.Result.Correct)
	}
	if step.Result.Seconds != 5 {
		t.Errorf("seconds = %v, want 5", step.Result.Seconds)
	}

	v := s.View(t0.Add(time.Hour))
	if len(v.History) != 5 {
		t.Fatalf("history has %d entries, want 5", len(v.History))
	}
	for i, h := range v.History {
		if h.Correct != pattern[i] || h.Name != testLocations[i].Name || h.Round != i+1 {
			t.Errorf("history[%d] = %+v", i, h)
		}
	}
	if !strings.Contains(v.Summary, "3 / 5") {
		t.Errorf("summary = %q, want it to contain 3 / 5", v.Summary)
	}
	if v.ElapsedSeconds != 5 {
		t.Errorf("elapsed after finish = %v, want frozen at 5", v.ElapsedSeconds)
	}
	if v.Target != "" || v.Feedback != nil || v.Locked {
		t.Errorf("finished view still shows a round: %+v", v)
	}
}

func TestSessionGuessIgnoredWithoutTarget(t *testing.T) {
	s := newTestSession(t)
	if _, ok := s.Guess(coordOf(0)); ok {
		t.Error("guess accepted before start")
	}

	s.Start(t0)
	if _, ok := s.Guess(coordOf(0)); ok {
		t.Error("guess accepted before geocode resolved")
	}
	if st := s.State(); st.AnswerLocked || st.CorrectCount != 0 {
		t.Errorf("state changed: %+v", st)
	}
}

func TestSessionSecondGuessWhileLocked(t *testing.T) {
	s := newTestSession(t)
	req := s.Start(t0)
	s.Resolve(req.Ticket, coordOf(0))

	if _, ok := s.Guess(coordOf(0)); !ok {
		t.Fatal("first guess rejected")
	}
	before := s.View(t0)

	if _, ok := s.Guess(coordOf(0)); ok {
		t.Fatal("second guess accepted while locked")
	}
	after := s.View(t0)

	if after.CorrectCount != before.CorrectCount {
		t.Errorf("correctCount changed: %d -> %d", before.CorrectCount, after.CorrectCount)
	}
	if after.Round != before.Round {
		t.Errorf("round changed: %d -> %d", before.Round, after.Round)
	}
	if len(after.History) != len(before.History) {
		t.Errorf("history changed: %d -> %d entries", len(before.History), len(after.History))
	}
	if !after.Locked || after.Feedback == nil || !after.Feedback.Correct {
		t.Errorf("locked view = %+v", after)
	}
}

func TestSessionStaleGeocodeAfterRestart(t *testing.T) {
	s := newTestSession(t)
	req := s.Start(t0)
	req = *playRound(t, s, req, true, t0).Next
	round2 := *playRound(t, s, req, true, t0).Next
	if round2.Ticket.Round != 2 {
		t.Fatalf("expected round index 2, got %d", round2.Ticket.Round)
	}

	restart := s.Restart(t0.Add(time.Minute))
	if restart.Ticket.Round != 0 {
		t.Fatalf("restart ticket round = %d", restart.Ticket.Round)
	}

	if s.Resolve(round2.Ticket, coordOf(2)) {
		t.Fatal("stale round 2 result was applied")
	}
	if s.State().CurrentTarget != nil {
		t.Fatal("stale result set currentTarget")
	}
	if s.Fail(round2.Ticket) {
		t.Fatal("stale round 2 failure was applied")
	}

	// A late response for round 0 of the old game carries the old
	// generation and must not match either.
	old := Ticket{Generation: round2.Ticket.Generation, Round: 0}
	if s.Resolve(old, coordOf(0)) {
		t.Fatal("old generation round 0 result was applied")
	}

	if !s.Resolve(restart.Ticket, coordOf(0)) {
		t.Fatal("current result rejected")
	}
	if got := s.State().CurrentTarget.Name; got != testLocations[0].Name {
		t.Errorf("target = %q", got)
	}
	v := s.View(t0.Add(time.Minute))
	if len(v.History) != 0 || v.CorrectCount != 0 || v.ElapsedSeconds != 0 {
		t.Errorf("restart did not reset: %+v", v)
	}
	if !strings.HasPrefix(v.Message, "Restarted.") {
		t.Errorf("message = %q", v.Message)
	}
}

func TestSessionStaleAdvance(t *testing.T) {
	s := newTestSession(t)
	req := s.Start(t0)
	s.Resolve(req.Ticket, coordOf(0))
	v, _ := s.Guess(coordOf(0))

	s.Restart(t0)
	if _, ok := s.Advance(v.Ticket, t0); ok {
		t.Fatal("advance from before restart was applied")
	}
	if got := s.State().RoundIndex; got != 0 {
		t.Errorf("roundIndex = %d, want 0", got)
	}
}

func TestSessionGeocodeFailureStalls(t *testing.T) {
	s := newTestSession(t)
	req := s.Start(t0)

	if !s.Fail(req.Ticket) {
		t.Fatal("Fail rejected")
	}
	v := s.View(t0)
	if v.Phase != PhaseAwaitingGeocode || !v.GeocodeFailed || v.TargetReady {
		t.Errorf("view after failure = %+v", v)
	}
	if !strings.Contains(v.Message, "Could not locate Oasis") {
		t.Errorf("message = %q", v.Message)
	}
	if _, ok := s.Guess(coordOf(0)); ok {
		t.Error("guess accepted on stalled round")
	}

	retry, ok := s.Retry()
	if !ok {
		t.Fatal("Retry rejected")
	}
	if retry.Ticket != req.Ticket {
		t.Errorf("retry ticket = %+v, want %+v", retry.Ticket, req.Ticket)
	}
	if !s.Resolve(retry.Ticket, coordOf(0)) {
		t.Fatal("Resolve after retry rejected")
	}
	if _, ok := s.Retry(); ok {
		t.Error("Retry accepted on a healthy round")
	}
}

func TestSessionNewHighScoreMessage(t *testing.T) {
	s := newTestSession(t)
	s.NewHighScore(t0)
	if s.View(t0).Message != "" {
		t.Error("NewHighScore changed an idle session")
	}

	req := s.Start(t0)
	for {
		step := playRound(t, s, req, true, t0.Add(2*time.Second))
		if step.Finished {
			break
		}
		req = *step.Next
	}
	s.NewHighScore(t0.Add(time.Hour))
	if got := s.View(t0).Message; got != "New high score: 5/5 in 2.0s." {
		t.Errorf("message = %q", got)
	}
}
