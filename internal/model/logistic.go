package model

import (
	"fmt"
	"io"
	"math"

	"github.com/cdipaolo/goml/base"
	"github.com/cdipaolo/goml/linear"
	"gonum.org/v1/gonum/stat"
)

const (
	logisticAlpha      = 0.01
	logisticIterations = 1000
)

// Logistic is a logistic regression on standardised features.
type Logistic struct {
	means  []float64
	scales []float64
	model  *linear.Logistic
}

func NewLogistic() *Logistic {
	return &Logistic{}
}

func (l *Logistic) Fit(x [][]float64, y []int) error {
	width, err := checkTrainingSet(x, y)
	if err != nil {
		return err
	}
	l.means = make([]float64, width)
	l.scales = make([]float64, width)
	column := make([]float64, len(x))
	for j := 0; j < width; j++ {
		for i, row := range x {
			column[i] = row[j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		l.means[j] = mean
		l.scales[j] = std
	}
	trainingSet := make([][]float64, len(x))
	labels := make([]float64, len(y))
	for i, row := range x {
		trainingSet[i] = l.standardise(row)
		labels[i] = float64(y[i])
	}
	model := linear.NewLogistic(base.BatchGA, logisticAlpha, 0, logisticIterations, trainingSet, labels)
	model.Output = io.Discard
	if err := model.Learn(); err != nil {
		return fmt.Errorf("failed to train model: %w", err)
	}
	l.model = model
	return nil
}

func (l *Logistic) PredictProba(x [][]float64) ([]float64, error) {
	if l.model == nil {
		return nil, fmt.Errorf("model has not been fit")
	}
	probabilities := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(l.means) {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), len(l.means))
		}
		prediction, err := l.model.Predict(l.standardise(row))
		if err != nil {
			return nil, fmt.Errorf("failed to make predictions: %w", err)
		}
		probabilities[i] = prediction[0]
	}
	return probabilities, nil
}

func (l *Logistic) standardise(row []float64) []float64 {
	scaled := make([]float64, len(row))
	for j, value := range row {
		scaled[j] = (value - l.means[j]) / l.scales[j]
	}
	return scaled
}
