package model

import (
	"errors"
	"fmt"
)

var errEmptyTrainingSet = errors.New("empty training set")

// Classifier is a binary classifier. Labels are 0 or 1 and PredictProba
// returns the probability of class 1 for each row.
type Classifier interface {
	Fit(x [][]float64, y []int) error
	PredictProba(x [][]float64) ([]float64, error)
}

// Factory creates an untrained classifier for an outcome.
type Factory func(outcome Outcome) Classifier

// InsufficientDataError is returned when there is nothing to train on.
type InsufficientDataError struct {
	Outcome  Outcome
	Rows     int
	Features int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data to train %s model: %d rows, %d features", e.Outcome, e.Rows, e.Features)
}

func checkTrainingSet(x [][]float64, y []int) (int, error) {
	if len(x) == 0 {
		return 0, errEmptyTrainingSet
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("%d rows but %d labels", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return 0, errors.New("no feature columns")
	}
	for i, row := range x {
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}
	return width, nil
}
