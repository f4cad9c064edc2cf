package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/mapquiz/internal/geocode"
	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/round"
	"github.com/playperu/mapquiz/internal/score"
)

var ErrNotFound = errors.New("not found")

// Sessions holds the live game controllers, one per player session.
type Sessions struct {
	locations []mapquiz.Location
	geocoder  geocode.Geocoder
	scores    *score.HighScores
	opts      []round.Option

	mu       sync.RWMutex
	sessions map[string]*round.Controller
}

func NewSessions(locations []mapquiz.Location, g geocode.Geocoder, scores *score.HighScores, opts ...round.Option) *Sessions {
	return &Sessions{
		locations: locations,
		geocoder:  g,
		scores:    scores,
		opts:      opts,
		sessions:  make(map[string]*round.Controller),
	}
}

// Create registers a new session and starts its first game.
func (s *Sessions) Create(ctx context.Context) (round.View, error) {
	id := uuid.NewString()
	opts := append(slices.Clone(s.opts), round.WithHighScoreHook(s.broadcastHighScore))
	c, err := round.New(id, s.locations, s.geocoder, s.scores, opts...)
	if err != nil {
		return round.View{}, fmt.Errorf("creating session: %w", err)
	}

	s.mu.Lock()
	s.sessions[id] = c
	s.mu.Unlock()

	v, err := c.Start(ctx)
	if err != nil {
		s.Delete(id)
		return round.View{}, fmt.Errorf("starting session: %w", err)
	}
	return v, nil
}

func (s *Sessions) Get(id string) (*round.Controller, error) {
	s.mu.RLock()
	c, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Sessions) Delete(id string) error {
	s.mu.Lock()
	c, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	c.Close()
	return nil
}

// ClearHighScore deletes the record and tells every live session, so their
// views and event streams show the cleared state.
func (s *Sessions) ClearHighScore(ctx context.Context) error {
	if err := s.scores.Clear(ctx); err != nil {
		return err
	}
	var errs []error
	for _, c := range s.controllers() {
		if _, err := c.HighScoreCleared(ctx); err != nil && !errors.Is(err, round.ErrClosed) {
			errs = append(errs, fmt.Errorf("notifying session %s: %w", c.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// broadcastHighScore tells every session but origin about a new record.
func (s *Sessions) broadcastHighScore(origin string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, c := range s.controllers() {
		if c.ID() != origin {
			c.HighScoreChanged(ctx)
		}
	}
}

func (s *Sessions) controllers() []*round.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*round.Controller, 0, len(s.sessions))
	for _, c := range s.sessions {
		out = append(out, c)
	}
	return out
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap closes sessions that have not seen a command since before cutoff.
func (s *Sessions) Reap(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.sessions {
		if c.LastSeen().Before(cutoff) {
			c.Close()
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RunReaper reaps idle sessions once a minute until ctx is done.
func (s *Sessions) RunReaper(ctx context.Context, logger *slog.Logger, ttl time.Duration) error {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			if n := s.Reap(now.Add(-ttl)); n > 0 {
				logger.Info("reaped idle sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}

func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.sessions {
		c.Close()
		delete(s.sessions, id)
	}
}
