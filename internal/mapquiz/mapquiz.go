// Package mapquiz defines the core domain types of the campus map quiz:
// coordinates, locations, target regions and score records.
package mapquiz

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TargetHalfExtent is the tolerance around a location's true coordinate, in
// degrees. Roughly 30 m at the campus latitude; the fixed-degree offset is
// only acceptable because every location lies within one small campus.
const TargetHalfExtent = 0.00028

// Coord is a WGS84 point in decimal degrees.
type Coord struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether c is within latitude and longitude range.
func (c Coord) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Location is one quiz stop: the name shown to the player and the address
// sent to the geocoder.
type Location struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
}

// Bounds is an axis-aligned box in degrees.
type Bounds struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// Contains reports whether c lies inside b, bounds inclusive.
func (b Bounds) Contains(c Coord) bool {
	return c.Lat >= b.South && c.Lat <= b.North &&
		c.Lng >= b.West && c.Lng <= b.East
}

// TargetRegion is the tolerance box a guess must land in to be correct.
type TargetRegion struct {
	Name       string  `json:"name"`
	Center     Coord   `json:"center"`
	HalfExtent float64 `json:"halfExtent"`
}

// NewTargetRegion wraps a resolved coordinate in the standard tolerance box.
func NewTargetRegion(name string, center Coord) TargetRegion {
	return TargetRegion{Name: name, Center: center, HalfExtent: TargetHalfExtent}
}

func (t TargetRegion) Bounds() Bounds {
	return Bounds{
		North: t.Center.Lat + t.HalfExtent,
		South: t.Center.Lat - t.HalfExtent,
		East:  t.Center.Lng + t.HalfExtent,
		West:  t.Center.Lng - t.HalfExtent,
	}
}

// Contains is the guess evaluator: true iff c is inside the region's box.
func (t TargetRegion) Contains(c Coord) bool {
	return t.Bounds().Contains(c)
}

// ScoreRecord is one session's outcome, and the persisted high score.
type ScoreRecord struct {
	Correct int     `json:"correct"`
	Seconds float64 `json:"seconds"`
}

// Beats reports whether r should replace prev as the high score. More
// correct answers win; on equal correct answers the lower time wins. A nil
// prev is always beaten. Exact ties do not replace.
func (r ScoreRecord) Beats(prev *ScoreRecord) bool {
	if prev == nil {
		return true
	}
	if r.Correct != prev.Correct {
		return r.Correct > prev.Correct
	}
	return r.Seconds < prev.Seconds
}

// Format renders the record as "3/5 in 12.3s".
func (r ScoreRecord) Format(total int) string {
	return fmt.Sprintf("%d/%d in %.1fs", r.Correct, total, r.Seconds)
}

func (r ScoreRecord) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var errIncompleteScore = errors.New("score record is missing fields")

// DecodeScoreRecord parses a persisted record. Anything but a JSON object
// carrying both fields with non-negative values is rejected.
func DecodeScoreRecord(raw string) (ScoreRecord, error) {
	var r struct {
		Correct *int     `json:"correct"`
		Seconds *float64 `json:"seconds"`
	}
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return ScoreRecord{}, fmt.Errorf("decoding score record: %w", err)
	}
	if r.Correct == nil || r.Seconds == nil {
		return ScoreRecord{}, errIncompleteScore
	}
	if *r.Correct < 0 || *r.Seconds < 0 {
		return ScoreRecord{}, fmt.Errorf("score record has negative field: correct=%d seconds=%g", *r.Correct, *r.Seconds)
	}
	return ScoreRecord{Correct: *r.Correct, Seconds: *r.Seconds}, nil
}
