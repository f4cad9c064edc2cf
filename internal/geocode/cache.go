package geocode

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/playperu/mapquiz/internal/mapquiz"
)

// Cache remembers successful lookups and coalesces concurrent lookups of
// the same address into one upstream call. Failures are not cached, so a
// restart after a failed lookup asks the provider again.
//
// The shared upstream call runs under its own context bounded by timeout,
// so one caller giving up does not fail the others waiting on it.
type Cache struct {
	next    Geocoder
	timeout time.Duration
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]mapquiz.Coord
}

func NewCache(next Geocoder, timeout time.Duration) *Cache {
	return &Cache{
		next:    next,
		timeout: timeout,
		entries: make(map[string]mapquiz.Coord),
	}
}

func (c *Cache) Geocode(ctx context.Context, address string) (mapquiz.Coord, error) {
	c.mu.RLock()
	coord, ok := c.entries[address]
	c.mu.RUnlock()
	if ok {
		return coord, nil
	}

	ch := c.group.DoChan(address, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		coord, err := c.next.Geocode(ctx, address)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[address] = coord
		c.mu.Unlock()
		return coord, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return mapquiz.Coord{}, res.Err
		}
		return res.Val.(mapquiz.Coord), nil
	case <-ctx.Done():
		return mapquiz.Coord{}, ctx.Err()
	}
}
