package round

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playperu/mapquiz/internal/geocode"
	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/score"
)

var ErrClosed = errors.New("round: controller closed")

type EventType string

const (
	EventStarted          EventType = "started"
	EventRestarted        EventType = "restarted"
	EventTargetReady      EventType = "target_ready"
	EventGeocodeFailed    EventType = "geocode_failed"
	EventGuessed          EventType = "guessed"
	EventRoundStarted     EventType = "round_started"
	EventFinished         EventType = "finished"
	EventHighScoreCleared EventType = "high_score_cleared"
	EventHighScoreChanged EventType = "high_score_changed"
)

// Event is published after every state transition.
type Event struct {
	Type EventType `json:"type"`
	View View      `json:"view"`
}

// Publisher receives every event a controller emits.
type Publisher interface {
	Publish(sessionID string, ev Event)
}

type GuessResult struct {
	Accepted bool `json:"accepted"`
	Correct  bool `json:"correct"`
	View     View `json:"view"`
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithAdvanceDelay(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

func WithGeocodeTimeout(d time.Duration) Option {
	return func(c *Controller) { c.geocodeTimeout = d }
}

func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithHighScoreHook is called, off the loop goroutine, with the
// controller's ID after it stores a new high score.
func WithHighScoreHook(f func(sessionID string)) Option {
	return func(c *Controller) { c.onHighScore = f }
}

// Controller owns one Session. Every mutation runs on its loop goroutine:
// commands, geocode completions and advance timer fires all arrive on the
// inbox, so the session never needs a lock.
type Controller struct {
	id             string
	geocoder       geocode.Geocoder
	scores         *score.HighScores
	publisher      Publisher
	logger         *slog.Logger
	now            func() time.Time
	delay          time.Duration
	geocodeTimeout time.Duration
	onHighScore    func(sessionID string)

	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once
	lastSeen  atomic.Int64

	// Loop goroutine only. highScore is a cached display string, valid
	// while highScoreFresh is set and the ledger version still equals
	// highScoreVersion.
	session          *Session
	advance          *time.Timer
	highScore        string
	highScoreVersion uint64
	highScoreFresh   bool
}

// New creates a controller and starts its loop. The session is idle until
// Start.
func New(id string, locations []mapquiz.Location, g geocode.Geocoder, scores *score.HighScores, opts ...Option) (*Controller, error) {
	session, err := NewSession(locations)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		id:             id,
		geocoder:       g,
		scores:         scores,
		logger:         slog.Default(),
		now:            time.Now,
		delay:          AdvanceDelay,
		geocodeTimeout: 10 * time.Second,
		inbox:          make(chan func()),
		done:           make(chan struct{}),
		session:        session,
		highScore:      score.NoHighScore,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session", id)
	c.touch()

	go c.loop()
	return c, nil
}

func (c *Controller) ID() string { return c.id }

// LastSeen is when a command last reached the controller.
func (c *Controller) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// Close stops the loop. Pending geocode results and advances are dropped.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Controller) loop() {
	defer func() {
		if c.advance != nil {
			c.advance.Stop()
		}
	}()
	for {
		select {
		case <-c.done:
			return
		case f := <-c.inbox:
			f()
		}
	}
}

// post hands f to the loop from a background goroutine.
func (c *Controller) post(f func()) {
	select {
	case c.inbox <- f:
	case <-c.done:
	}
}

// do runs f on the loop and waits for it.
func (c *Controller) do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	select {
	case c.inbox <- func() { f(); close(finished) }:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	c.touch()
	<-finished
	return nil
}

func (c *Controller) touch() {
	c.lastSeen.Store(c.now().UnixNano())
}

// Start begins a fresh game.
func (c *Controller) Start(ctx context.Context) (View, error) {
	return c.start(ctx, false)
}

// Restart abandons the current game, whatever its state, and begins a new
// one. In-flight geocode results and the pending advance become inert.
func (c *Controller) Restart(ctx context.Context) (View, error) {
	return c.start(ctx, true)
}

func (c *Controller) start(ctx context.Context, restart bool) (View, error) {
	var v View
	err := c.do(ctx, func() {
		c.stopAdvance()
		var req GeocodeRequest
		ev := EventStarted
		if restart {
			req = c.session.Restart(c.now())
			ev = EventRestarted
		} else {
			req = c.session.Start(c.now())
		}
		c.highScoreFresh = false
		c.lookup(req)
		v = c.emit(ev)
	})
	return v, err
}

// Retry reissues the lookup of a round whose geocode failed.
func (c *Controller) Retry(ctx context.Context) (bool, View, error) {
	var (
		ok bool
		v  View
	)
	err := c.do(ctx, func() {
		var req GeocodeRequest
		req, ok = c.session.Retry()
		if ok {
			c.lookup(req)
			v = c.emit(EventRoundStarted)
			return
		}
		v = c.view()
	})
	return ok, v, err
}

// Guess submits the player's guess for the current round. Guesses with no
// target yet, or after the round locked, are not accepted and change
// nothing.
func (c *Controller) Guess(ctx context.Context, at mapquiz.Coord) (GuessResult, error) {
	var res GuessResult
	err := c.do(ctx, func() {
		verdict, ok := c.session.Guess(at)
		if !ok {
			res.View = c.view()
			return
		}
		res.Accepted = true
		res.Correct = verdict.Correct
		c.scheduleAdvance(verdict.Ticket)
		res.View = c.emit(EventGuessed)
	})
	return res, err
}

// ClearHighScore deletes the persisted high score regardless of game state.
func (c *Controller) ClearHighScore(ctx context.Context) (View, error) {
	if err := c.scores.Clear(ctx); err != nil {
		return View{}, err
	}
	return c.HighScoreCleared(ctx)
}

// HighScoreCleared tells the session the record was deleted elsewhere.
func (c *Controller) HighScoreCleared(ctx context.Context) (View, error) {
	var v View
	err := c.do(ctx, func() {
		c.highScoreFresh = false
		c.session.SetMessage("High score cleared.")
		v = c.emit(EventHighScoreCleared)
	})
	return v, err
}

// HighScoreChanged tells the session another one stored a new record.
func (c *Controller) HighScoreChanged(ctx context.Context) error {
	return c.do(ctx, func() {
		c.highScoreFresh = false
		c.emit(EventHighScoreChanged)
	})
}

func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	var v View
	err := c.do(ctx, func() { v = c.view() })
	return v, err
}

func (c *Controller) lookup(req GeocodeRequest) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.geocodeTimeout)
		defer cancel()

		coord, err := c.geocoder.Geocode(ctx, req.Location.Address)
		c.post(func() { c.resolved(req, coord, err) })
	}()
}

func (c *Controller) resolved(req GeocodeRequest, coord mapquiz.Coord, err error) {
	if err != nil {
		if !c.session.Fail(req.Ticket) {
			c.logger.Debug("discarding stale geocode failure", "round", req.Ticket.Round, "generation", req.Ticket.Generation)
			return
		}
		c.logger.Warn("geocode failed", "location", req.Location.Name, "error", err)
		c.emit(EventGeocodeFailed)
		return
	}

	if !c.session.Resolve(req.Ticket, coord) {
		c.logger.Debug("discarding stale geocode result", "round", req.Ticket.Round, "generation", req.Ticket.Generation)
		return
	}
	c.emit(EventTargetReady)
}

func (c *Controller) scheduleAdvance(t Ticket) {
	c.stopAdvance()
	c.advance = time.AfterFunc(c.delay, func() {
		c.post(func() { c.advanced(t) })
	})
}

func (c *Controller) stopAdvance() {
	if c.advance != nil {
		c.advance.Stop()
		c.advance = nil
	}
}

func (c *Controller) advanced(t Ticket) {
	step, ok := c.session.Advance(t, c.now())
	if !ok {
		return
	}
	c.advance = nil

	if !step.Finished {
		c.lookup(*step.Next)
		c.emit(EventRoundStarted)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	beaten, err := c.scores.Submit(ctx, step.Result)
	if err != nil {
		c.logger.Error("saving high score", "error", err)
	} else if beaten {
		c.session.NewHighScore(c.now())
		c.logger.Info("new high score", "correct", step.Result.Correct, "seconds", step.Result.Seconds)
		if c.onHighScore != nil {
			go c.onHighScore(c.id)
		}
	}
	c.highScoreFresh = false
	c.emit(EventFinished)
}

// syncHighScore re-reads the record when the cached display may be out
// of date. On a read error the old display is kept and the next view
// tries again.
func (c *Controller) syncHighScore() {
	if c.highScoreFresh && c.highScoreVersion == c.scores.Version() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	version := c.scores.Version()
	rec, err := c.scores.Get(ctx)
	if err != nil {
		c.logger.Error("reading high score", "error", err)
		return
	}
	c.highScore = score.Display(rec, c.session.State().TotalRounds)
	c.highScoreVersion = version
	c.highScoreFresh = true
}

func (c *Controller) view() View {
	c.syncHighScore()
	v := c.session.View(c.now())
	v.ID = c.id
	v.HighScore = c.highScore
	return v
}

func (c *Controller) emit(t EventType) View {
	v := c.view()
	if c.publisher != nil {
		c.publisher.Publish(c.id, Event{Type: t, View: v})
	}
	return v
}
