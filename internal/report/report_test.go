package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podium/internal/features"
	"podium/internal/model"
)

func row(driver string, position int, winner, podium, top10 float64) features.Row {
	r := features.Row{
		Driver:     driver,
		Position:   position,
		WinnerProb: winner,
		PodiumProb: podium,
		Top10Prob:  top10,
		Winner:     model.Winner.Label(position),
		Podium:     model.Podium.Label(position),
		Top10:      model.Top10.Label(position),
	}
	r.Practice[features.FP1Avg] = 80 + float64(position)
	return r
}

func dataset() *features.Dataset {
	rows := []features.Row{
		row("NOR", 2, 0.30, 0.80, 0.95),
		row("VER", 1, 0.60, 0.90, 0.99),
		row("LEC", 4, 0.05, 0.20, 0.90),
		row("PIA", 3, 0.10, 0.70, 0.97),
	}
	for i := 5; i <= 12; i++ {
		rows = append(rows, row(string(rune('A'+i))+"XX", i, 0.0, 0.0, 0.5))
	}
	return &features.Dataset{Columns: []features.Column{features.FP1Avg}, Rows: rows}
}

func TestNew_Ranking(t *testing.T) {
	r, err := New(2025, "Italian Grand Prix", dataset(), nil)
	require.NoError(t, err)

	assert.Equal(t, Entry{Driver: "VER", Position: 1, Probability: 0.60}, r.Winner)
	assert.Equal(t, []Entry{
		{Driver: "VER", Position: 1, Probability: 0.90},
		{Driver: "NOR", Position: 2, Probability: 0.80},
		{Driver: "PIA", Position: 3, Probability: 0.70},
	}, r.Podium)
	require.Len(t, r.Top10, 10)
	for i, e := range r.Top10 {
		assert.Equal(t, i+1, e.Position)
	}
}

func TestNew_WinnerTieBreak(t *testing.T) {
	d := &features.Dataset{Rows: []features.Row{
		row("SAI", 5, 0.4, 0, 0),
		row("HAM", 3, 0.4, 0, 0),
		row("ALO", 3, 0.4, 0, 0),
	}}
	r, err := New(2025, "Italian Grand Prix", d, nil)
	require.NoError(t, err)
	assert.Equal(t, "ALO", r.Winner.Driver)
}

func TestNew_Empty(t *testing.T) {
	_, err := New(2025, "Italian Grand Prix", &features.Dataset{}, nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestShortEvent(t *testing.T) {
	assert.Equal(t, "Italian GP", ShortEvent("Italian Grand Prix"))
	assert.Equal(t, "Pre-Season Testing", ShortEvent("Pre-Season Testing"))
}

func TestWrite(t *testing.T) {
	r, err := New(2025, "Italian Grand Prix", dataset(), nil)
	require.NoError(t, err)
	var buffer bytes.Buffer
	require.NoError(t, r.Write(&buffer))
	output := buffer.String()

	for _, header := range []string{
		"🏆 Predicted Winner for Italian GP 2025:",
		"🥇 Predicted Podium for Italian GP 2025:",
		"🔟 Predicted Top 10 Finishers for Italian GP 2025:",
		"🏁 Final Predicted Standings for Italian GP 2025:",
	} {
		assert.Contains(t, output, header)
	}
	assert.Contains(t, output, "WinnerProb")
	assert.Contains(t, output, "0.600000")

	standings := output[strings.Index(output, "🏁"):]
	lines := strings.Split(strings.TrimSpace(standings), "\n")[1:]
	require.Len(t, lines, 10)
	assert.Equal(t, "1. VER", lines[0])
	assert.Equal(t, "2. NOR", lines[1])
	assert.Equal(t, "10. KXX", lines[9])
}

func TestSummaries(t *testing.T) {
	predictions := []model.Prediction{
		{Outcome: model.Podium, Positives: 3},
		{Outcome: model.Winner, Positives: 1},
		{Outcome: model.Top10, Positives: 10, Fallback: true},
	}
	r, err := New(2025, "Italian Grand Prix", dataset(), predictions)
	require.NoError(t, err)

	summaries := r.Summaries()
	require.Len(t, summaries, 3)
	winner := summaries[1]
	assert.Equal(t, model.Winner, winner.Outcome)
	assert.Equal(t, 1, winner.Positives)
	assert.False(t, winner.Fallback)
	assert.True(t, summaries[2].Fallback)

	// VER at 0.60 is the only driver in the 0.50 - 0.75 bin.
	bin := winner.Bins[3]
	assert.Equal(t, []float64{0.60}, bin.Probabilities)
	assert.Equal(t, 1.0, bin.HitRate())
	assert.Len(t, winner.Bins[0].Probabilities, 9)
	assert.Zero(t, winner.Bins[0].Hits)

	var buffer bytes.Buffer
	require.NoError(t, r.WriteSummary(&buffer))
	assert.Contains(t, buffer.String(), "Top10 (1/position heuristic, 10 of 12 drivers labelled):")
	assert.Contains(t, buffer.String(), "0.75 - 1.00: -")
}

func TestExport(t *testing.T) {
	r, err := New(2025, "Italian Grand Prix", dataset(), nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "prediction.csv")
	require.NoError(t, r.Export(path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	frame := dataframe.ReadCSV(file)
	require.NoError(t, frame.Err)
	assert.Equal(t, []string{
		"Driver", "Position", "FP1_avg",
		"Podium", "PodiumProb", "Winner", "WinnerProb", "Top10", "Top10Prob",
	}, frame.Names())
	assert.Equal(t, 12, frame.Nrow())
	assert.Equal(t, "NOR", frame.Col("Driver").Elem(0).String())
}
