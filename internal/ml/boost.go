package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// GradientBoost is a gradient-boosted ensemble of shallow regression
// trees on the logistic loss. Each round fits a tree to the residual
// y - sigmoid(F) and nudges the log-odds by a shrunken step.
type GradientBoost struct {
	Trees        []*regressionTree `json:"trees"`
	Rounds       int               `json:"rounds"`
	MaxDepth     int               `json:"max_depth"`
	LearningRate float64           `json:"learning_rate"`
	Bias         float64           `json:"bias"`
	Seed         int64             `json:"seed"`
}

// NewGradientBoost returns a booster with the default configuration.
func NewGradientBoost() *GradientBoost {
	return &GradientBoost{Rounds: 50, MaxDepth: 3, LearningRate: 0.1, Seed: 42}
}

// Fit trains the booster.
func (g *GradientBoost) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training set: %d rows, %d labels", len(X), len(y))
	}

	pos := 0
	for _, v := range y {
		pos += v
	}
	// Initial log-odds of the positive class, clamped away from
	// degenerate all-one / all-zero label sets.
	p := (float64(pos) + 0.5) / (float64(len(y)) + 1.0)
	g.Bias = math.Log(p / (1 - p))

	scores := make([]float64, len(X))
	for i := range scores {
		scores[i] = g.Bias
	}

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	residuals := make([]float64, len(X))
	rng := rand.New(rand.NewSource(g.Seed))

	g.Trees = make([]*regressionTree, 0, g.Rounds)
	for round := 0; round < g.Rounds; round++ {
		for i := range X {
			residuals[i] = float64(y[i]) - sigmoid(scores[i])
		}

		tree := &regressionTree{MaxDepth: g.MaxDepth, MinLeaf: 5}
		tree.fit(X, residuals, idx, 0, rng)
		g.Trees = append(g.Trees, tree)

		for i := range X {
			scores[i] += g.LearningRate * tree.predict(X[i])
		}
	}

	return nil
}

// PredictProba returns the boosted estimate of P(y=1) for one row.
func (g *GradientBoost) PredictProba(row []float64) (float64, error) {
	if len(g.Trees) == 0 {
		return 0, fmt.Errorf("gradient boost is not fitted")
	}
	score := g.Bias
	for _, tree := range g.Trees {
		score += g.LearningRate * tree.predict(row)
	}
	return sigmoid(score), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
