// Package model trains one binary classifier per race outcome and stores
// the class-1 probability on each dataset row.
package model

import (
	"fmt"

	"podium/internal/features"
)

type Outcome int

const (
	Podium Outcome = iota
	Winner
	Top10
)

var Outcomes = []Outcome{Podium, Winner, Top10}

func (o Outcome) String() string {
	switch o {
	case Podium:
		return "Podium"
	case Winner:
		return "Winner"
	case Top10:
		return "Top10"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Threshold is the worst position that still counts as the outcome.
func (o Outcome) Threshold() int {
	switch o {
	case Winner:
		return 1
	case Podium:
		return 3
	default:
		return 10
	}
}

// DefaultTrees is the forest size used when none is configured.
func (o Outcome) DefaultTrees() int {
	switch o {
	case Winner:
		return 300
	case Podium:
		return 200
	default:
		return 250
	}
}

func (o Outcome) Label(position int) int {
	if position >= 1 && position <= o.Threshold() {
		return 1
	}
	return 0
}

func (o Outcome) LabelOf(row features.Row) int {
	switch o {
	case Winner:
		return row.Winner
	case Podium:
		return row.Podium
	default:
		return row.Top10
	}
}

func (o Outcome) Probability(row features.Row) float64 {
	switch o {
	case Winner:
		return row.WinnerProb
	case Podium:
		return row.PodiumProb
	default:
		return row.Top10Prob
	}
}

func (o Outcome) setLabel(row *features.Row, label int) {
	switch o {
	case Winner:
		row.Winner = label
	case Podium:
		row.Podium = label
	default:
		row.Top10 = label
	}
}

func (o Outcome) setProbability(row *features.Row, probability float64) {
	switch o {
	case Winner:
		row.WinnerProb = probability
	case Podium:
		row.PodiumProb = probability
	default:
		row.Top10Prob = probability
	}
}
