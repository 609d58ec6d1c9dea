package report

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"podium/internal/model"
)

// Summary groups an outcome's predicted probabilities into bins and shows
// how often the drivers in each bin carry the label.
type Summary struct {
	Outcome   model.Outcome
	Positives int
	Fallback  bool
	Bins      []ProbabilityBin
}

type ProbabilityBin struct {
	Min           float64
	Max           float64
	Probabilities []float64
	Hits          int
}

func newBins() []ProbabilityBin {
	return []ProbabilityBin{
		newBin(0.00, 0.10),
		newBin(0.10, 0.25),
		newBin(0.25, 0.50),
		newBin(0.50, 0.75),
		newBin(0.75, 1.01),
	}
}

func newBin(low, high float64) ProbabilityBin {
	return ProbabilityBin{
		Min:           low,
		Max:           high,
		Probabilities: []float64{},
	}
}

func (b *ProbabilityBin) add(probability float64, hit bool) {
	if probability < b.Min || probability >= b.Max {
		return
	}
	b.Probabilities = append(b.Probabilities, probability)
	if hit {
		b.Hits++
	}
}

func (b *ProbabilityBin) Mean() float64 {
	if len(b.Probabilities) == 0 {
		return 0
	}
	return stat.Mean(b.Probabilities, nil)
}

// HitRate is the share of drivers in the bin whose label is 1.
func (b *ProbabilityBin) HitRate() float64 {
	if len(b.Probabilities) == 0 {
		return 0
	}
	return float64(b.Hits) / float64(len(b.Probabilities))
}

func (r *Report) Summaries() []Summary {
	summaries := make([]Summary, 0, len(model.Outcomes))
	for _, outcome := range model.Outcomes {
		summary := Summary{
			Outcome: outcome,
			Bins:    newBins(),
		}
		for _, p := range r.Predictions {
			if p.Outcome == outcome {
				summary.Fallback = p.Fallback
			}
		}
		for _, row := range r.Dataset.Rows {
			hit := outcome.LabelOf(row) == 1
			if hit {
				summary.Positives++
			}
			for i := range summary.Bins {
				summary.Bins[i].add(outcome.Probability(row), hit)
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func (r *Report) WriteSummary(w io.Writer) error {
	for _, summary := range r.Summaries() {
		method := "classifier"
		if summary.Fallback {
			method = "1/position heuristic"
		}
		if _, err := fmt.Fprintf(w, "\n%s (%s, %d of %d drivers labelled):\n", summary.Outcome, method, summary.Positives, len(r.Dataset.Rows)); err != nil {
			return err
		}
		for _, bin := range summary.Bins {
			count := len(bin.Probabilities)
			var err error
			if count > 0 {
				_, err = fmt.Fprintf(w, "\t%.2f - %.2f: %.1f%% (mean %.3f, %d drivers)\n", bin.Min, min(bin.Max, 1.0), 100.0*bin.HitRate(), bin.Mean(), count)
			} else {
				_, err = fmt.Fprintf(w, "\t%.2f - %.2f: -\n", bin.Min, min(bin.Max, 1.0))
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
