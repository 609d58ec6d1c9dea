// Package pipeline runs one prediction: practice features, qualifying,
// dataset assembly, the outcome models and the report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"podium/internal/features"
	"podium/internal/metrics"
	"podium/internal/model"
	"podium/internal/report"
	"podium/internal/session"
)

type Pipeline struct {
	loader     session.Loader
	aggregator *features.Aggregator
	predictor  *model.Predictor
	metrics    *metrics.Metrics
}

// New builds a pipeline. A nil factory uses the default forests and a nil
// metrics collector records nothing.
func New(loader session.Loader, factory model.Factory, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		loader:     loader,
		aggregator: features.NewAggregator(loader, m),
		predictor:  model.NewPredictor(factory, m),
		metrics:    m,
	}
}

// Run predicts winner, podium and top 10 for an event. Practice sessions
// are optional; a qualifying session that cannot be loaded fails the run
// with a *session.DataUnavailableError.
func (p *Pipeline) Run(ctx context.Context, year int, event string) (*report.Report, error) {
	start := time.Now()
	logger := log.With().Str("component", "pipeline").Int("year", year).Str("event", event).Logger()
	logger.Info().Msg("Starting prediction")

	practice := p.aggregator.Aggregate(ctx, year, event)
	if practice.Empty() {
		logger.Warn().Msg("No practice features available, training on grid position only")
	}

	key := session.Key{Year: year, Event: event, Kind: session.Qualifying}
	qualifying, err := p.loader.Load(ctx, year, event, session.Qualifying)
	if err != nil {
		return nil, session.Unavailable(key, err)
	}
	p.metrics.SessionLoaded(string(session.Qualifying))

	dataset := features.Assemble(qualifying.Results, practice)
	logger.Info().
		Int("drivers", len(dataset.Rows)).
		Strs("features", dataset.FeatureNames()).
		Msg("Assembled dataset")

	predictions, err := p.predictor.PredictAll(dataset)
	if err != nil {
		return nil, err
	}
	r, err := report.New(year, event, dataset, predictions)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}
	elapsed := time.Since(start)
	p.metrics.RunFinished(elapsed, time.Now())
	logger.Info().
		Str("winner", r.Winner.Driver).
		Dur("elapsed", elapsed).
		Msg("Prediction finished")
	return r, nil
}
