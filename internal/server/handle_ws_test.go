package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/mapquiz/internal/round"
)

func TestSessionWSPlaysGuess(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.router)
	defer ts.Close()

	v := e.createSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + v.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() round.Event {
		t.Helper()
		var ev round.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		return ev
	}

	ev := read()
	if ev.Type != eventSnapshot {
		t.Fatalf("first message = %s, want snapshot", ev.Type)
	}
	for !ev.View.TargetReady {
		ev = read()
	}

	spot := spotOf(0)
	if err := wsjson.Write(ctx, conn, WSCommand{Type: "guess", Lat: spot.Lat, Lng: spot.Lng}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for ev.Type != round.EventGuessed {
		ev = read()
	}
	if len(ev.View.History) != 1 || !ev.View.History[0].Correct {
		t.Errorf("history after guess = %+v", ev.View.History)
	}

	if err := wsjson.Write(ctx, conn, WSCommand{Type: "restart"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for ev.Type != round.EventRestarted {
		ev = read()
	}
	if ev.View.Round != 1 || len(ev.View.History) != 0 {
		t.Errorf("view after restart = %+v", ev.View)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}
