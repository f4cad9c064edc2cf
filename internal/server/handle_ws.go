package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/round"
)

// WSCommand is a message from the client on the play socket.
type WSCommand struct {
	Type string  `json:"type"` // guess, restart or retry
	Lat  float64 `json:"lat,omitempty"`
	Lng  float64 `json:"lng,omitempty"`
}

// handleSessionWS is the bidirectional play channel: session events go
// out, guesses and restarts come in. Command results are not echoed
// separately; the resulting events carry them.
func handleSessionWS(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := sessionFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Hour)
		defer cancel()

		ch := broker.Subscribe(c.ID())
		defer broker.Unsubscribe(c.ID(), ch)

		v, err := c.Snapshot(ctx)
		if err != nil {
			conn.Close(websocket.StatusPolicyViolation, "session closed")
			return
		}
		if err := wsjson.Write(ctx, conn, round.Event{Type: eventSnapshot, View: v}); err != nil {
			return
		}

		go func() {
			defer cancel()
			for {
				var cmd WSCommand
				if err := wsjson.Read(ctx, conn, &cmd); err != nil {
					logger.Debug("websocket read ended", "error", err)
					return
				}
				if err := runWSCommand(ctx, c, cmd); err != nil {
					logger.Debug("websocket command failed", "type", cmd.Type, "error", err)
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case data := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

func runWSCommand(ctx context.Context, c *round.Controller, cmd WSCommand) error {
	switch cmd.Type {
	case "guess":
		at := mapquiz.Coord{Lat: cmd.Lat, Lng: cmd.Lng}
		if !at.Valid() {
			return nil
		}
		_, err := c.Guess(ctx, at)
		return err
	case "restart":
		_, err := c.Restart(ctx)
		return err
	case "retry":
		_, _, err := c.Retry(ctx)
		return err
	default:
		return nil
	}
}
