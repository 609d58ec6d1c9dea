// Package report ranks the predicted dataset and renders it for the console.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"

	"podium/internal/features"
	"podium/internal/model"
)

var ErrEmptyDataset = errors.New("dataset has no drivers")

type Entry struct {
	Driver      string
	Position    int
	Probability float64
}

type Report struct {
	Year        int
	Event       string
	Winner      Entry
	Podium      []Entry
	Top10       []Entry
	Dataset     *features.Dataset
	Predictions []model.Prediction
}

// New ranks a dataset whose probabilities have been filled in. The winner
// is the row with the highest winner probability; ties go to the better
// grid position, then to the driver code. Podium and top 10 are the
// qualifying positions within the threshold, in grid order.
func New(year int, event string, dataset *features.Dataset, predictions []model.Prediction) (*Report, error) {
	if dataset == nil || len(dataset.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	ranked := slices.Clone(dataset.Rows)
	slices.SortStableFunc(ranked, func(a, b features.Row) int {
		return lo.CoalesceOrEmpty(
			cmp.Compare(b.WinnerProb, a.WinnerProb),
			cmp.Compare(a.Position, b.Position),
			strings.Compare(a.Driver, b.Driver),
		)
	})
	return &Report{
		Year:        year,
		Event:       event,
		Winner:      entry(ranked[0], model.Winner),
		Podium:      within(dataset.Rows, model.Podium),
		Top10:       within(dataset.Rows, model.Top10),
		Dataset:     dataset,
		Predictions: predictions,
	}, nil
}

func entry(row features.Row, outcome model.Outcome) Entry {
	return Entry{
		Driver:      row.Driver,
		Position:    row.Position,
		Probability: outcome.Probability(row),
	}
}

func within(rows []features.Row, outcome model.Outcome) []Entry {
	selected := lo.FilterMap(rows, func(row features.Row, _ int) (Entry, bool) {
		return entry(row, outcome), row.Position <= outcome.Threshold()
	})
	slices.SortStableFunc(selected, func(a, b Entry) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return selected
}

// ShortEvent abbreviates "Grand Prix" the way race titles usually do.
func ShortEvent(event string) string {
	return strings.ReplaceAll(event, "Grand Prix", "GP")
}

func (r *Report) Title() string {
	return fmt.Sprintf("%s %d", ShortEvent(r.Event), r.Year)
}

func (r *Report) Write(w io.Writer) error {
	title := r.Title()
	sections := []struct {
		header  string
		column  string
		entries []Entry
	}{
		{"🏆 Predicted Winner for", "WinnerProb", []Entry{r.Winner}},
		{"🥇 Predicted Podium for", "PodiumProb", r.Podium},
		{"🔟 Predicted Top 10 Finishers for", "Top10Prob", r.Top10},
	}
	for _, section := range sections {
		if _, err := fmt.Fprintf(w, "\n%s %s:\n", section.header, title); err != nil {
			return err
		}
		if err := writeTable(w, section.column, section.entries); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\n🏁 Final Predicted Standings for %s:\n", title); err != nil {
		return err
	}
	for _, e := range r.Top10 {
		if _, err := fmt.Fprintf(w, "%d. %s\n", e.Position, e.Driver); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, column string, entries []Entry) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(table, "Driver\tPosition\t%s\t\n", column)
	for _, e := range entries {
		fmt.Fprintf(table, "%s\t%d\t%.6f\t\n", e.Driver, e.Position, e.Probability)
	}
	return table.Flush()
}
