// Package features turns session data into the per-driver table the
// outcome models train on.
package features

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"podium/internal/session"
)

// ErrNoTimedLaps marks a session that loaded but has no lap durations.
var ErrNoTimedLaps = errors.New("no lap data available")

// Column is one practice feature.
type Column int

const (
	FP1Avg Column = iota
	FP1Best
	FP2Avg
	FP2Best
	FP3Avg
	FP3Best
	NumColumns
)

func (c Column) String() string {
	kind := session.PracticeKinds[int(c)/2]
	if int(c)%2 == 0 {
		return string(kind) + "_avg"
	}
	return string(kind) + "_best"
}

// ColumnsFor returns the average and best lap columns of a practice session.
func ColumnsFor(kind session.Kind) (avg, best Column, ok bool) {
	i := slices.Index(session.PracticeKinds, kind)
	if i < 0 {
		return 0, 0, false
	}
	return Column(2 * i), Column(2*i + 1), true
}

// LapStats holds a driver's mean and fastest lap in seconds.
type LapStats struct {
	Avg  float64
	Best float64
}

type SessionFrame struct {
	Kind    session.Kind
	Drivers map[string]LapStats
}

// Attempt is the outcome of loading one practice session: either a frame
// or the reason there is none.
type Attempt struct {
	Kind  session.Kind
	Frame *SessionFrame
	Err   error
}

func (a Attempt) OK() bool {
	return a.Err == nil && a.Frame != nil
}

type PracticeRow struct {
	Driver string
	Values [NumColumns]null.Val[float64]
}

// PracticeTable is the outer merge of all usable practice sessions. An
// empty table has neither rows nor columns.
type PracticeTable struct {
	Columns []Column
	Rows    []PracticeRow
}

func (t PracticeTable) Empty() bool {
	return len(t.Rows) == 0
}

func (t PracticeTable) Lookup(driver string) (PracticeRow, bool) {
	return lo.Find(t.Rows, func(r PracticeRow) bool {
		return r.Driver == driver
	})
}

// FrameFromSession groups timed laps by driver.
func FrameFromSession(s *session.Session) (*SessionFrame, error) {
	laps := s.TimedLaps()
	if len(laps) == 0 {
		return nil, ErrNoTimedLaps
	}
	byDriver := lo.GroupBy(laps, func(l session.Lap) string {
		return l.Driver
	})
	frame := &SessionFrame{
		Kind:    s.Kind,
		Drivers: make(map[string]LapStats, len(byDriver)),
	}
	for driver, driverLaps := range byDriver {
		times := lo.Map(driverLaps, func(l session.Lap, _ int) float64 {
			return l.Time.Seconds()
		})
		frame.Drivers[driver] = LapStats{
			Avg:  stat.Mean(times, nil),
			Best: floats.Min(times),
		}
	}
	return frame, nil
}

// Recorder receives per-session bookkeeping.
type Recorder interface {
	SessionLoaded(kind string)
	SessionSkipped(kind string)
}

type nopRecorder struct{}

func (nopRecorder) SessionLoaded(string)  {}
func (nopRecorder) SessionSkipped(string) {}

type Aggregator struct {
	loader   session.Loader
	recorder Recorder
}

func NewAggregator(loader session.Loader, recorder Recorder) *Aggregator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Aggregator{
		loader:   loader,
		recorder: recorder,
	}
}

// Attempts loads every practice session in order and never fails.
func (a *Aggregator) Attempts(ctx context.Context, year int, event string) []Attempt {
	attempts := make([]Attempt, 0, len(session.PracticeKinds))
	for _, kind := range session.PracticeKinds {
		attempt := Attempt{Kind: kind}
		s, err := a.loader.Load(ctx, year, event, kind)
		if err != nil {
			attempt.Err = fmt.Errorf("could not load %s: %w", kind, err)
		} else {
			attempt.Frame, attempt.Err = FrameFromSession(s)
		}
		attempts = append(attempts, attempt)
	}
	return attempts
}

// Aggregate loads the practice sessions and merges the usable ones.
func (a *Aggregator) Aggregate(ctx context.Context, year int, event string) PracticeTable {
	start := time.Now()
	logger := log.With().Str("component", "practice").Logger()
	frames := []*SessionFrame{}
	for _, attempt := range a.Attempts(ctx, year, event) {
		if !attempt.OK() {
			logger.Warn().Err(attempt.Err).Str("session", string(attempt.Kind)).Msg("Skipping practice session")
			a.recorder.SessionSkipped(string(attempt.Kind))
			continue
		}
		a.recorder.SessionLoaded(string(attempt.Kind))
		frames = append(frames, attempt.Frame)
	}
	table := Merge(frames)
	logger.Info().
		Int("sessions", len(frames)).
		Int("drivers", len(table.Rows)).
		Dur("elapsed", time.Since(start)).
		Msg("Aggregated practice features")
	return table
}

// Merge outer-joins the frames on driver, left to right. A driver present
// in any frame gets a row; columns of frames they are missing from stay null.
func Merge(frames []*SessionFrame) PracticeTable {
	table := PracticeTable{}
	drivers := map[string]*PracticeRow{}
	for _, frame := range frames {
		avg, best, ok := ColumnsFor(frame.Kind)
		if !ok {
			continue
		}
		table.Columns = append(table.Columns, avg, best)
		for driver, stats := range frame.Drivers {
			row, exists := drivers[driver]
			if !exists {
				row = &PracticeRow{Driver: driver}
				drivers[driver] = row
			}
			row.Values[avg] = null.From(stats.Avg)
			row.Values[best] = null.From(stats.Best)
		}
	}
	if len(drivers) == 0 {
		return PracticeTable{}
	}
	keys := lo.Keys(drivers)
	slices.Sort(keys)
	table.Rows = lo.Map(keys, func(driver string, _ int) PracticeRow {
		return *drivers[driver]
	})
	return table
}
