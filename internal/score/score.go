// Package score is the score and timer ledger: session elapsed time and the
// persisted best-ever result.
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playperu/mapquiz/internal/kv"
	"github.com/playperu/mapquiz/internal/mapquiz"
)

// HighScoreKey is the single key the high score is stored under.
const HighScoreKey = "mapquiz:high_score"

// NoHighScore is displayed when no record exists.
const NoHighScore = "—"

// Timer measures session time from a single start timestamp. Readings are
// a pure function of the clock, so how often they are sampled does not
// matter.
type Timer struct {
	start   time.Time
	stop    time.Time
	running bool
}

func (t *Timer) Start(now time.Time) {
	t.start = now
	t.stop = time.Time{}
	t.running = true
}

// Stop freezes the elapsed time. Stopping a stopped timer is a no-op.
func (t *Timer) Stop(now time.Time) {
	if !t.running {
		return
	}
	t.stop = now
	t.running = false
}

func (t *Timer) Running() bool { return t.running }

// Elapsed returns seconds since Start, or up to Stop once stopped. A timer
// that was never started reads zero.
func (t *Timer) Elapsed(now time.Time) float64 {
	switch {
	case t.start.IsZero():
		return 0
	case t.running:
		return now.Sub(t.start).Seconds()
	default:
		return t.stop.Sub(t.start).Seconds()
	}
}

// HighScores reads and writes the persisted best record. Submit's
// read-then-write is serialized so concurrent sessions cannot interleave.
type HighScores struct {
	store   kv.Store
	logger  *slog.Logger
	mu      sync.Mutex
	version atomic.Uint64
}

// Version changes whenever this process stores or clears the record.
// Readers caching a display string compare it to know when to re-read.
func (h *HighScores) Version() uint64 { return h.version.Load() }

func NewHighScores(store kv.Store, logger *slog.Logger) *HighScores {
	return &HighScores{store: store, logger: logger}
}

// Get returns the stored record, or nil when there is none. A value that
// fails to parse is treated as absent.
func (h *HighScores) Get(ctx context.Context) (*mapquiz.ScoreRecord, error) {
	raw, err := h.store.Get(ctx, HighScoreKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading high score: %w", err)
	}

	rec, err := mapquiz.DecodeScoreRecord(raw)
	if err != nil {
		h.logger.Warn("ignoring malformed high score", "value", raw, "error", err)
		return nil, nil
	}
	return &rec, nil
}

// Submit stores rec if it beats the current record and reports whether it
// did.
func (h *HighScores) Submit(ctx context.Context, rec mapquiz.ScoreRecord) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, err := h.Get(ctx)
	if err != nil {
		return false, err
	}
	if !rec.Beats(prev) {
		return false, nil
	}

	raw, err := rec.Encode()
	if err != nil {
		return false, fmt.Errorf("encoding high score: %w", err)
	}
	if err := h.store.Set(ctx, HighScoreKey, raw); err != nil {
		return false, fmt.Errorf("writing high score: %w", err)
	}
	h.version.Add(1)
	return true, nil
}

// Clear removes the record unconditionally.
func (h *HighScores) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Delete(ctx, HighScoreKey); err != nil {
		return fmt.Errorf("clearing high score: %w", err)
	}
	h.version.Add(1)
	return nil
}

// Display renders rec for a game of total rounds, or NoHighScore for nil.
func Display(rec *mapquiz.ScoreRecord, total int) string {
	if rec == nil {
		return NoHighScore
	}
	return rec.Format(total)
}
