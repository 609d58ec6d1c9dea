package model

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"podium/internal/features"
)

// FallbackObserver is told when an outcome is scored with the heuristic.
type FallbackObserver interface {
	HeuristicFallback(outcome string)
}

// Prediction describes how an outcome's probabilities were produced.
type Prediction struct {
	Outcome   Outcome
	Positives int
	Fallback  bool
}

type Predictor struct {
	newClassifier Factory
	observer      FallbackObserver
}

func NewPredictor(factory Factory, observer FallbackObserver) *Predictor {
	return &Predictor{
		newClassifier: factory,
		observer:      observer,
	}
}

// DefaultFactory returns forests of the default sizes seeded with DefaultSeed.
func DefaultFactory(outcome Outcome) Classifier {
	return NewForest(outcome.DefaultTrees(), DefaultSeed)
}

// Predict labels every row for the outcome and stores the class-1
// probability. Only Position and the practice columns are used as
// features, never the labels or probabilities of other outcomes.
//
// When every row has the same label no classifier is trained and the
// probability is 1/Position instead.
func (p *Predictor) Predict(dataset *features.Dataset, outcome Outcome) (Prediction, error) {
	prediction := Prediction{Outcome: outcome}
	x := dataset.Features()
	if len(x) == 0 {
		return prediction, &InsufficientDataError{
			Outcome:  outcome,
			Rows:     0,
			Features: len(dataset.FeatureNames()),
		}
	}
	logger := log.With().Str("component", "model").Stringer("outcome", outcome).Logger()
	y := make([]int, len(dataset.Rows))
	for i := range dataset.Rows {
		row := &dataset.Rows[i]
		y[i] = outcome.Label(row.Position)
		outcome.setLabel(row, y[i])
	}
	prediction.Positives = lo.Count(y, 1)
	if len(lo.Uniq(y)) < 2 {
		logger.Warn().Int("rows", len(y)).Msg("Only one class found in labels, using 1/position")
		for i := range dataset.Rows {
			row := &dataset.Rows[i]
			outcome.setProbability(row, 1.0/float64(row.Position))
		}
		prediction.Fallback = true
		if p.observer != nil {
			p.observer.HeuristicFallback(outcome.String())
		}
		return prediction, nil
	}
	factory := p.newClassifier
	if factory == nil {
		factory = DefaultFactory
	}
	classifier := factory(outcome)
	if err := classifier.Fit(x, y); err != nil {
		return prediction, fmt.Errorf("failed to train %s model: %w", outcome, err)
	}
	probabilities, err := classifier.PredictProba(x)
	if err != nil {
		return prediction, fmt.Errorf("failed to predict %s: %w", outcome, err)
	}
	if len(probabilities) != len(dataset.Rows) {
		return prediction, fmt.Errorf("%s model returned %d probabilities for %d rows", outcome, len(probabilities), len(dataset.Rows))
	}
	for i := range dataset.Rows {
		outcome.setProbability(&dataset.Rows[i], probabilities[i])
	}
	logger.Debug().
		Int("rows", len(y)).
		Int("positives", prediction.Positives).
		Strs("features", dataset.FeatureNames()).
		Msg("Trained classifier")
	return prediction, nil
}

// PredictAll runs the predictor for every outcome in order.
func (p *Predictor) PredictAll(dataset *features.Dataset) ([]Prediction, error) {
	predictions := make([]Prediction, 0, len(Outcomes))
	for _, outcome := range Outcomes {
		prediction, err := p.Predict(dataset, outcome)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, prediction)
	}
	return predictions, nil
}
