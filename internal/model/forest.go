package model

import (
	"fmt"
	"math/rand"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/trees"
)

const (
	classAttribute = "label"
	DefaultSeed    = 42
)

// Forest is a bagged ensemble of golearn ID3 trees. Each tree is fit on a
// bootstrap sample drawn from Seed and the class-1 probability of a row is
// the share of trees voting 1. Tree induction itself is deterministic, so
// the same seed and data give the same probabilities.
type Forest struct {
	Trees int
	Seed  int64

	width  int
	models []*trees.ID3DecisionTree
}

func NewForest(size int, seed int64) *Forest {
	return &Forest{
		Trees: size,
		Seed:  seed,
	}
}

func (f *Forest) Fit(x [][]float64, y []int) error {
	width, err := checkTrainingSet(x, y)
	if err != nil {
		return err
	}
	if f.Trees <= 0 {
		return fmt.Errorf("invalid forest size %d", f.Trees)
	}
	rng := rand.New(rand.NewSource(f.Seed))
	f.width = width
	f.models = make([]*trees.ID3DecisionTree, 0, f.Trees)
	sampleX := make([][]float64, len(x))
	sampleY := make([]int, len(y))
	for n := 0; n < f.Trees; n++ {
		for i := range x {
			j := rng.Intn(len(x))
			sampleX[i] = x[j]
			sampleY[i] = y[j]
		}
		instances, err := newInstances(width, sampleX, sampleY)
		if err != nil {
			return err
		}
		// Each split consumes its attribute, so depth is bounded by width.
		tree := trees.NewID3DecisionTree(0)
		if err := tree.Fit(instances); err != nil {
			return fmt.Errorf("failed to fit tree: %w", err)
		}
		f.models = append(f.models, tree)
	}
	return nil
}

func (f *Forest) PredictProba(x [][]float64) ([]float64, error) {
	if len(f.models) == 0 {
		return nil, fmt.Errorf("forest has not been fit")
	}
	for i, row := range x {
		if len(row) != f.width {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), f.width)
		}
	}
	instances, err := newInstances(f.width, x, nil)
	if err != nil {
		return nil, err
	}
	votes := make([]int, len(x))
	for _, tree := range f.models {
		predictions, err := tree.Predict(instances)
		if err != nil {
			return nil, fmt.Errorf("failed to predict: %w", err)
		}
		for i := range x {
			if base.GetClass(predictions, i) == "1" {
				votes[i]++
			}
		}
	}
	probabilities := make([]float64, len(x))
	for i, v := range votes {
		probabilities[i] = float64(v) / float64(len(f.models))
	}
	return probabilities, nil
}

// newInstances builds a golearn grid with float features x0..xN and a
// categorical class attribute. A nil y labels every row 0.
func newInstances(width int, x [][]float64, y []int) (*base.DenseInstances, error) {
	instances := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, width)
	for j := 0; j < width; j++ {
		specs[j] = instances.AddAttribute(base.NewFloatAttribute(fmt.Sprintf("x%d", j)))
	}
	class := base.NewCategoricalAttribute()
	class.SetName(classAttribute)
	negative := class.GetSysValFromString("0")
	positive := class.GetSysValFromString("1")
	classSpec := instances.AddAttribute(class)
	if err := instances.AddClassAttribute(class); err != nil {
		return nil, fmt.Errorf("failed to add class attribute: %w", err)
	}
	if err := instances.Extend(len(x)); err != nil {
		return nil, fmt.Errorf("failed to allocate %d rows: %w", len(x), err)
	}
	for i, row := range x {
		for j, value := range row {
			instances.Set(specs[j], i, base.PackFloatToBytes(value))
		}
		if y != nil && y[i] == 1 {
			instances.Set(classSpec, i, positive)
		} else {
			instances.Set(classSpec, i, negative)
		}
	}
	return instances, nil
}
