// Package session describes timing data for a single F1 session and the
// loaders that fetch it.
package session

import (
	"context"
	"fmt"
	"time"
)

// Kind is the session code used by timing sources.
type Kind string

const (
	FP1              Kind = "FP1"
	FP2              Kind = "FP2"
	FP3              Kind = "FP3"
	Qualifying       Kind = "Q"
	SprintQualifying Kind = "SQ"
	Sprint           Kind = "S"
	Race             Kind = "R"
)

// PracticeKinds is the fixed order in which practice sessions are read.
var PracticeKinds = []Kind{FP1, FP2, FP3}

var kindNames = map[Kind]string{
	FP1:              "Practice 1",
	FP2:              "Practice 2",
	FP3:              "Practice 3",
	Qualifying:       "Qualifying",
	SprintQualifying: "Sprint Qualifying",
	Sprint:           "Sprint",
	Race:             "Race",
}

// Name returns the long session name, e.g. "Practice 1".
func (k Kind) Name() string {
	return kindNames[k]
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) IsPractice() bool {
	return k == FP1 || k == FP2 || k == FP3
}

// ParseKind accepts either the session code or the long name.
func ParseKind(s string) (Kind, error) {
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown session kind %q", s)
}

// Lap is a single lap. Time is zero when the lap has no recorded duration.
type Lap struct {
	Driver string        `json:"driver"`
	Number int           `json:"number"`
	Time   time.Duration `json:"time"`
}

// Result is one row of a session classification. Position is zero for
// drivers without a classified result.
type Result struct {
	Abbreviation string `json:"abbreviation"`
	Position     int    `json:"position"`
}

type Key struct {
	Year  int    `json:"year"`
	Event string `json:"event"`
	Kind  Kind   `json:"kind"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s", k.Year, k.Event, k.Kind)
}

type Session struct {
	Key
	Laps    []Lap    `json:"laps"`
	Results []Result `json:"results"`
}

// TimedLaps returns the laps that carry a duration.
func (s *Session) TimedLaps() []Lap {
	timed := make([]Lap, 0, len(s.Laps))
	for _, lap := range s.Laps {
		if lap.Time > 0 {
			timed = append(timed, lap)
		}
	}
	return timed
}

// HasData reports whether the session carries a timed lap or a classified
// result. Sources return empty sessions for events that have not run yet.
func (s *Session) HasData() bool {
	if len(s.TimedLaps()) > 0 {
		return true
	}
	for _, r := range s.Results {
		if r.Position > 0 {
			return true
		}
	}
	return false
}

// Loader fetches a fully populated session.
type Loader interface {
	Load(ctx context.Context, year int, event string, kind Kind) (*Session, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, year int, event string, kind Kind) (*Session, error)

func (f LoaderFunc) Load(ctx context.Context, year int, event string, kind Kind) (*Session, error) {
	return f(ctx, year, event, kind)
}
