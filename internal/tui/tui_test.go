package tui

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/playperu/mapquiz/internal/database"
	"github.com/playperu/mapquiz/internal/kv"
	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/migrations"
	"github.com/playperu/mapquiz/internal/round"
	"github.com/playperu/mapquiz/internal/score"
)

var locations = []mapquiz.Location{
	{Name: "Oasis", Address: "oasis"},
	{Name: "Sierra", Address: "sierra"},
}

type fixedGeocoder map[string]mapquiz.Coord

func (g fixedGeocoder) Geocode(_ context.Context, address string) (mapquiz.Coord, error) {
	return g[address], nil
}

func newTestModel(t *testing.T) model {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	geo := fixedGeocoder{
		"oasis":  {Lat: 34.2400, Lng: -118.5290},
		"sierra": {Lat: 34.2380, Lng: -118.5300},
	}
	feed := NewFeed()
	ctrl, err := round.New("tui", locations, geo, score.NewHighScores(kv.NewSQLiteStore(db), slog.Default()),
		round.WithPublisher(feed),
		round.WithAdvanceDelay(5*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(ctrl.Close)
	return newModel(ctrl, feed)
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

// awaitEvent feeds controller events to the model until one of type want.
func awaitEvent(t *testing.T, m model, want round.EventType) model {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-m.feed:
			m, _ = update(t, m, eventMsg(ev))
			if ev.Type == want {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func enter(t *testing.T, m model, input string) (model, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(input)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestParseGuess(t *testing.T) {
	tests := []struct {
		in      string
		want    mapquiz.Coord
		wantErr bool
	}{
		{in: "34.24,-118.529", want: mapquiz.Coord{Lat: 34.24, Lng: -118.529}},
		{in: " 34.24 , -118.529 ", want: mapquiz.Coord{Lat: 34.24, Lng: -118.529}},
		{in: "34.24", wantErr: true},
		{in: "north,-118.5", wantErr: true},
		{in: "34.24,west", wantErr: true},
		{in: "91,0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseGuess(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestModelPlaysRound(t *testing.T) {
	m := newTestModel(t)

	m, _ = update(t, m, m.start()())
	if m.view.Round != 1 || m.view.Target != "Oasis" {
		t.Fatalf("after start: %+v", m.view)
	}
	if !strings.Contains(m.View(), "locating") {
		t.Error("view does not show the pending lookup")
	}

	m = awaitEvent(t, m, round.EventTargetReady)

	m, cmd := enter(t, m, "34.2400,-118.5290")
	if cmd == nil {
		t.Fatal("guess produced no command")
	}
	m, _ = update(t, m, cmd())
	if !m.view.Locked || m.view.CorrectCount != 1 {
		t.Fatalf("after guess: %+v", m.view)
	}
	if !strings.Contains(m.View(), "✓ 1. Oasis") {
		t.Errorf("history missing from view:\n%s", m.View())
	}

	m = awaitEvent(t, m, round.EventTargetReady)
	if m.view.Round != 2 {
		t.Errorf("round = %d, want 2", m.view.Round)
	}
}

func TestModelRejectsBadInput(t *testing.T) {
	m := newTestModel(t)

	m, cmd := enter(t, m, "somewhere")
	if cmd != nil {
		t.Error("bad input produced a command")
	}
	if !strings.Contains(m.notice, "expected lat,lng") {
		t.Errorf("notice = %q", m.notice)
	}
	if m.textInput.Value() != "" {
		t.Error("input not cleared")
	}
}

func TestModelGuessIgnoredNotice(t *testing.T) {
	m := newTestModel(t)

	// Not started: there is no target to guess at.
	m, cmd := enter(t, m, "34.24,-118.529")
	m, _ = update(t, m, cmd())
	if !strings.Contains(m.notice, "guess ignored") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestModelCommands(t *testing.T) {
	m := newTestModel(t)

	_, cmd := enter(t, m, "/quit")
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("/quit did not quit")
	}

	m, cmd = enter(t, m, "/clear")
	m, _ = update(t, m, cmd())
	if m.view.HighScore != score.NoHighScore || m.view.Message != "High score cleared." {
		t.Errorf("after /clear: %+v", m.view)
	}

	m, _ = update(t, m, m.start()())
	m, cmd = enter(t, m, "/restart")
	m, _ = update(t, m, cmd())
	if !strings.HasPrefix(m.view.Message, "Restarted.") {
		t.Errorf("after /restart: message = %q", m.view.Message)
	}
}

func TestModelClosedControllerQuits(t *testing.T) {
	m := newTestModel(t)
	m.ctrl.Close()

	m, cmd := update(t, m, m.snapshot()())
	if m.err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("closed controller did not quit")
	}
}
