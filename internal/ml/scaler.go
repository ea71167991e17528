package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler is a per-column affine transform fitted on training
// features. Columns follow the feature schema; artifacts fitted against
// a different schema are unusable.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit learns per-column mean and standard deviation.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("cannot fit scaler on empty matrix")
	}

	width := len(X[0])
	s.Mean = make([]float64, width)
	s.Std = make([]float64, width)

	col := make([]float64, len(X))
	for j := 0; j < width; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		m, sd := stat.MeanStdDev(col, nil)
		s.Mean[j] = m
		if sd == 0 || len(X) < 2 {
			// Constant columns (the trend flags can be) pass through centered.
			sd = 1
		}
		s.Std[j] = sd
	}

	return nil
}

// Transform scales a single row. The input is not modified.
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("row width %d does not match scaler width %d", len(row), len(s.Mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll scales every row of a matrix.
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// Fitted reports whether Fit has been called (or an artifact loaded).
func (s *StandardScaler) Fitted() bool {
	return len(s.Mean) > 0
}
