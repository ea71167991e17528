package ml

import (
	"math"
	"testing"
)

func TestScalerFitTransform(t *testing.T) {
	X := [][]float64{
		{1.0, 10, 0},
		{2.0, 20, 0},
		{3.0, 30, 0},
	}

	var s StandardScaler
	if err := s.Fit(X); err != nil {
		t.Fatalf("Fit() = %v", err)
	}

	out, err := s.Transform([]float64{2.0, 20, 0})
	if err != nil {
		t.Fatalf("Transform() = %v", err)
	}
	for j, v := range out {
		if math.Abs(v) > 1e-12 {
			t.Errorf("column %d of the mean row = %v, want 0", j, v)
		}
	}

	// Constant columns must pass through centered, not divide by zero.
	out, err = s.Transform([]float64{1.0, 10, 5})
	if err != nil {
		t.Fatalf("Transform() = %v", err)
	}
	if out[2] != 5 {
		t.Errorf("constant column scaled to %v, want 5", out[2])
	}
	if math.IsNaN(out[0]) || math.IsInf(out[0], 0) {
		t.Errorf("scaled value is not finite: %v", out[0])
	}
}

func TestScalerRejectsWidthMismatch(t *testing.T) {
	var s StandardScaler
	if err := s.Fit([][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("Fit() = %v", err)
	}
	if _, err := s.Transform([]float64{1, 2, 3}); err == nil {
		t.Error("Transform() accepted a row of the wrong width")
	}
}

func TestRegressionTreeSplitsCleanly(t *testing.T) {
	// y follows the first feature exactly; a depth-1 tree is enough.
	X := [][]float64{
		{-1, 0}, {-2, 1}, {-3, 0}, {-1.5, 1},
		{1, 0}, {2, 1}, {3, 0}, {1.5, 1},
	}
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	tree := &regressionTree{MaxDepth: 3, MinLeaf: 1}
	tree.fit(X, y, idx, 0, nil)

	for i, row := range X {
		if got := tree.predict(row); got != y[i] {
			t.Errorf("predict(%v) = %v, want %v", row, got, y[i])
		}
	}
}
