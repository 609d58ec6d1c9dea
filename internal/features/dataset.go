package features

import (
	"github.com/aarondl/opt/null"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"podium/internal/session"
)

// PositionFeature is the name of the grid position feature.
const PositionFeature = "Position"

// Row is one qualifying entrant. Labels and probabilities are filled in by
// the outcome predictors, one pair per outcome.
type Row struct {
	Driver   string
	Position int
	Practice [NumColumns]float64

	Podium int
	Winner int
	Top10  int

	PodiumProb float64
	WinnerProb float64
	Top10Prob  float64
}

// Dataset holds exactly one row per classified qualifying entrant, in
// qualifying result order. Columns lists the practice columns present.
type Dataset struct {
	Columns []Column
	Rows    []Row
}

// MergedRow is a qualifying entrant with practice values not yet imputed.
type MergedRow struct {
	Driver   string
	Position int
	Values   [NumColumns]null.Val[float64]
}

// Entrants keeps classified results, one per driver in order of first
// appearance. A driver listed twice keeps the better position.
func Entrants(results []session.Result) []session.Result {
	classified := lo.Filter(results, func(r session.Result, _ int) bool {
		return r.Position > 0 && r.Abbreviation != ""
	})
	entrants := make([]session.Result, 0, len(classified))
	index := map[string]int{}
	for _, r := range classified {
		if i, ok := index[r.Abbreviation]; ok {
			entrants[i].Position = min(entrants[i].Position, r.Position)
			continue
		}
		index[r.Abbreviation] = len(entrants)
		entrants = append(entrants, r)
	}
	return entrants
}

// LeftMerge keeps every entrant and attaches whatever practice values exist.
func LeftMerge(entrants []session.Result, practice PracticeTable) []MergedRow {
	return lo.Map(entrants, func(r session.Result, _ int) MergedRow {
		row := MergedRow{Driver: r.Abbreviation, Position: r.Position}
		if p, ok := practice.Lookup(r.Abbreviation); ok {
			row.Values = p.Values
		}
		return row
	})
}

// Impute replaces null values in each column with the mean of the column's
// present values and returns the columns that could be filled. A column
// without any present value is left out of the result. Running Impute on
// already imputed rows changes nothing.
func Impute(rows []MergedRow, columns []Column) []Column {
	kept := make([]Column, 0, len(columns))
	for _, column := range columns {
		present := []float64{}
		for _, row := range rows {
			if v, ok := row.Values[column].Get(); ok {
				present = append(present, v)
			}
		}
		if len(present) == 0 {
			log.Warn().Str("component", "dataset").Stringer("column", column).Msg("Dropping practice column without values")
			continue
		}
		mean := stat.Mean(present, nil)
		for i := range rows {
			if rows[i].Values[column].IsNull() {
				rows[i].Values[column] = null.From(mean)
			}
		}
		kept = append(kept, column)
	}
	return kept
}

// Assemble merges qualifying positions with practice features and fills
// missing practice values with column means.
func Assemble(results []session.Result, practice PracticeTable) *Dataset {
	entrants := Entrants(results)
	if dropped := len(results) - len(entrants); dropped > 0 {
		log.Debug().Str("component", "dataset").Int("dropped", dropped).Msg("Ignoring unclassified or duplicate qualifying results")
	}
	merged := LeftMerge(entrants, practice)
	columns := Impute(merged, practice.Columns)
	dataset := &Dataset{
		Columns: columns,
		Rows:    make([]Row, len(merged)),
	}
	for i, m := range merged {
		dataset.Rows[i] = Row{Driver: m.Driver, Position: m.Position}
		for _, column := range columns {
			dataset.Rows[i].Practice[column] = m.Values[column].GetOr(0)
		}
	}
	return dataset
}

// FeatureNames lists the model inputs in matrix order.
func (d *Dataset) FeatureNames() []string {
	names := []string{PositionFeature}
	for _, column := range d.Columns {
		names = append(names, column.String())
	}
	return names
}

// Features returns the model input matrix: grid position followed by the
// practice columns. Labels and probabilities are never part of it.
func (d *Dataset) Features() [][]float64 {
	x := make([][]float64, len(d.Rows))
	for i, row := range d.Rows {
		features := make([]float64, 0, 1+len(d.Columns))
		features = append(features, float64(row.Position))
		for _, column := range d.Columns {
			features = append(features, row.Practice[column])
		}
		x[i] = features
	}
	return x
}

func (d *Dataset) Drivers() []string {
	return lo.Map(d.Rows, func(r Row, _ int) string {
		return r.Driver
	})
}
