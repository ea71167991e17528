package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomForest averages bagged regression trees over {0,1} targets, so
// every leaf mean is an estimate of P(y=1).
type RandomForest struct {
	Trees    []*regressionTree `json:"trees"`
	NumTrees int               `json:"num_trees"`
	MaxDepth int               `json:"max_depth"`
	Seed     int64             `json:"seed"`
}

// NewRandomForest returns a forest with the default configuration.
func NewRandomForest() *RandomForest {
	return &RandomForest{NumTrees: 50, MaxDepth: 8, Seed: 42}
}

// Fit trains the forest: every tree sees a bootstrap resample and draws
// sqrt(width) candidate features per split.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training set: %d rows, %d labels", len(X), len(y))
	}

	targets := floatLabels(y)
	featureSub := int(math.Sqrt(float64(len(X[0]))))
	if featureSub < 1 {
		featureSub = 1
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]*regressionTree, f.NumTrees)
	for t := 0; t < f.NumTrees; t++ {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		tree := &regressionTree{MaxDepth: f.MaxDepth, MinLeaf: 2}
		tree.fit(X, targets, idx, featureSub, rng)
		f.Trees[t] = tree
	}

	return nil
}

// PredictProba returns the forest's estimate of P(y=1) for one row.
func (f *RandomForest) PredictProba(row []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, fmt.Errorf("random forest is not fitted")
	}
	sum := 0.0
	for _, tree := range f.Trees {
		sum += tree.predict(row)
	}
	return clamp01(sum / float64(len(f.Trees))), nil
}

func floatLabels(y []int) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = float64(v)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
