// Package csvsource reads sessions from <directory>/<year>/<event-slug>/<KIND>.csv.
package csvsource

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"podium/internal/session"
)

const (
	driverColumn       = "Driver"
	lapNumberColumn    = "LapNumber"
	lapTimeColumn      = "LapTime"
	abbreviationColumn = "Abbreviation"
	positionColumn     = "Position"
)

var slugPattern = regexp.MustCompile("[^a-z0-9]+")

// Slug turns an event name into its directory name.
func Slug(event string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(event), "-")
	return strings.Trim(slug, "-")
}

type Source struct {
	directory string
}

func New(directory string) *Source {
	return &Source{directory: directory}
}

// Path returns the file a session is read from.
func (s *Source) Path(year int, event string, kind session.Kind) string {
	return filepath.Join(s.directory, strconv.Itoa(year), Slug(event), string(kind)+".csv")
}

func (s *Source) Load(_ context.Context, year int, event string, kind session.Kind) (*session.Session, error) {
	path := s.Path(year, event, kind)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", session.ErrSessionNotFound, path)
		}
		return nil, err
	}
	defer file.Close()
	df := dataframe.ReadCSV(
		file,
		dataframe.NaNValues([]string{"", "NA", "NaN"}),
		dataframe.WithTypes(map[string]series.Type{
			driverColumn:       series.String,
			abbreviationColumn: series.String,
			lapNumberColumn:    series.Float,
			lapTimeColumn:      series.Float,
			positionColumn:     series.Float,
		}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, df.Err)
	}
	result := &session.Session{
		Key: session.Key{Year: year, Event: event, Kind: kind},
	}
	names := df.Names()
	if slices.Contains(names, driverColumn) {
		result.Laps = readLaps(df, names)
	}
	if slices.Contains(names, abbreviationColumn) {
		result.Results, err = readResults(df, names)
		if err != nil {
			return nil, fmt.Errorf("failed to read results from %s: %w", path, err)
		}
	}
	return result, nil
}

// readLaps leaves Time zero for every lap when the file has no LapTime
// column, which callers treat as a session without lap durations.
func readLaps(df dataframe.DataFrame, names []string) []session.Lap {
	drivers := df.Col(driverColumn).Records()
	var numbers, times []float64
	if slices.Contains(names, lapNumberColumn) {
		numbers = df.Col(lapNumberColumn).Float()
	}
	if slices.Contains(names, lapTimeColumn) {
		times = df.Col(lapTimeColumn).Float()
	}
	laps := make([]session.Lap, len(drivers))
	for i, driver := range drivers {
		laps[i].Driver = driver
		if numbers != nil && !math.IsNaN(numbers[i]) {
			laps[i].Number = int(numbers[i])
		} else {
			laps[i].Number = i + 1
		}
		if times != nil && !math.IsNaN(times[i]) && times[i] > 0 {
			laps[i].Time = time.Duration(times[i] * float64(time.Second))
		}
	}
	return laps
}

func readResults(df dataframe.DataFrame, names []string) ([]session.Result, error) {
	if !slices.Contains(names, positionColumn) {
		return nil, fmt.Errorf("missing %s column", positionColumn)
	}
	abbreviations := df.Col(abbreviationColumn).Records()
	positions := df.Col(positionColumn).Float()
	results := make([]session.Result, len(abbreviations))
	for i, abbreviation := range abbreviations {
		results[i].Abbreviation = abbreviation
		if !math.IsNaN(positions[i]) {
			results[i].Position = int(positions[i])
		}
	}
	return results, nil
}
