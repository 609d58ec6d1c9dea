package report

import (
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/samber/lo"

	"podium/internal/features"
	"podium/internal/model"
)

// Frame converts the dataset into a dataframe with one column per feature,
// label and probability.
func (r *Report) Frame() dataframe.DataFrame {
	rows := r.Dataset.Rows
	columns := []series.Series{
		series.New(r.Dataset.Drivers(), series.String, "Driver"),
		series.New(lo.Map(rows, func(row features.Row, _ int) int {
			return row.Position
		}), series.Int, features.PositionFeature),
	}
	for _, column := range r.Dataset.Columns {
		values := lo.Map(rows, func(row features.Row, _ int) float64 {
			return row.Practice[column]
		})
		columns = append(columns, series.New(values, series.Float, column.String()))
	}
	for _, outcome := range model.Outcomes {
		labels := lo.Map(rows, func(row features.Row, _ int) int {
			return outcome.LabelOf(row)
		})
		probabilities := lo.Map(rows, func(row features.Row, _ int) float64 {
			return outcome.Probability(row)
		})
		columns = append(columns,
			series.New(labels, series.Int, outcome.String()),
			series.New(probabilities, series.Float, outcome.String()+"Prob"),
		)
	}
	return dataframe.New(columns...)
}

// Export writes the dataset to a CSV file.
func (r *Report) Export(path string) error {
	frame := r.Frame()
	if frame.Err != nil {
		return fmt.Errorf("failed to build export frame: %w", frame.Err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()
	if err := frame.WriteCSV(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
