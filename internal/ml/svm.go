package ml

import (
	"fmt"
	"math/rand"
)

// SVM is a linear support-vector classifier trained with Pegasos-style
// stochastic subgradient descent on the hinge loss. It expects scaled
// inputs; the probability output is a sigmoid over the margin.
type SVM struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Lambda  float64   `json:"lambda"`
	Epochs  int       `json:"epochs"`
	Seed    int64     `json:"seed"`
}

// NewSVM returns a classifier with the default configuration.
func NewSVM() *SVM {
	return &SVM{Lambda: 1e-4, Epochs: 100, Seed: 42}
}

// Fit trains the classifier. Labels are {0,1} and mapped to {-1,+1}.
func (s *SVM) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training set: %d rows, %d labels", len(X), len(y))
	}

	width := len(X[0])
	s.Weights = make([]float64, width)
	s.Bias = 0

	rng := rand.New(rand.NewSource(s.Seed))
	order := rng.Perm(len(X))

	t := 0
	for epoch := 0; epoch < s.Epochs; epoch++ {
		rng.Shuffle(len(order), func(a, b int) {
			order[a], order[b] = order[b], order[a]
		})
		for _, i := range order {
			t++
			eta := 1 / (s.Lambda * float64(t))

			label := float64(2*y[i] - 1)
			margin := label * (dot(s.Weights, X[i]) + s.Bias)

			for j := range s.Weights {
				s.Weights[j] *= 1 - eta*s.Lambda
			}
			if margin < 1 {
				for j := range s.Weights {
					s.Weights[j] += eta * label * X[i][j]
				}
				s.Bias += eta * label
			}
		}
	}

	return nil
}

// PredictProba maps the signed margin through a sigmoid.
func (s *SVM) PredictProba(row []float64) (float64, error) {
	if len(s.Weights) == 0 {
		return 0, fmt.Errorf("svm is not fitted")
	}
	if len(row) != len(s.Weights) {
		return 0, fmt.Errorf("row width %d does not match svm width %d", len(row), len(s.Weights))
	}
	return sigmoid(dot(s.Weights, row) + s.Bias), nil
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
