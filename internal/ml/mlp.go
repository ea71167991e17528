package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// NeuralNet is a small feed-forward classifier (two ReLU hidden layers,
// sigmoid output) trained with full-batch gradient descent. It expects
// scaled inputs.
type NeuralNet struct {
	Hidden1      int     `json:"hidden1"`
	Hidden2      int     `json:"hidden2"`
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	Seed         int64   `json:"seed"`

	W1 [][]float64 `json:"w1"`
	B1 []float64   `json:"b1"`
	W2 [][]float64 `json:"w2"`
	B2 []float64   `json:"b2"`
	W3 [][]float64 `json:"w3"`
	B3 []float64   `json:"b3"`
}

// NewNeuralNet returns a network with the default configuration.
func NewNeuralNet() *NeuralNet {
	return &NeuralNet{Hidden1: 100, Hidden2: 50, Epochs: 300, LearningRate: 0.05, Seed: 42}
}

// Fit trains the network.
func (n *NeuralNet) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training set: %d rows, %d labels", len(X), len(y))
	}

	rows := len(X)
	width := len(X[0])
	rng := rand.New(rand.NewSource(n.Seed))

	w1 := heInit(width, n.Hidden1, rng)
	w2 := heInit(n.Hidden1, n.Hidden2, rng)
	w3 := heInit(n.Hidden2, 1, rng)
	b1 := mat.NewVecDense(n.Hidden1, nil)
	b2 := mat.NewVecDense(n.Hidden2, nil)
	b3 := mat.NewVecDense(1, nil)

	xm := mat.NewDense(rows, width, nil)
	for i, row := range X {
		xm.SetRow(i, row)
	}
	ym := mat.NewVecDense(rows, floatLabels(y))

	inv := 1.0 / float64(rows)

	for epoch := 0; epoch < n.Epochs; epoch++ {
		// Forward pass.
		z1 := addBias(matMul(xm, w1), b1)
		a1 := applyElem(z1, relu)
		z2 := addBias(matMul(a1, w2), b2)
		a2 := applyElem(z2, relu)
		z3 := addBias(matMul(a2, w3), b3)
		out := applyElem(z3, sigmoid)

		// Backward pass: dZ3 = (out - y) / rows.
		dz3 := mat.NewDense(rows, 1, nil)
		for i := 0; i < rows; i++ {
			dz3.Set(i, 0, (out.At(i, 0)-ym.AtVec(i))*inv)
		}

		dw3 := matMul(a2.T(), dz3)
		db3 := colSums(dz3)

		da2 := matMul(dz3, w3.T())
		dz2 := hadamardMask(da2, z2)
		dw2 := matMul(a1.T(), dz2)
		db2 := colSums(dz2)

		da1 := matMul(dz2, w2.T())
		dz1 := hadamardMask(da1, z1)
		dw1 := matMul(xm.T(), dz1)
		db1 := colSums(dz1)

		step(w1, dw1, n.LearningRate)
		step(w2, dw2, n.LearningRate)
		step(w3, dw3, n.LearningRate)
		stepVec(b1, db1, n.LearningRate)
		stepVec(b2, db2, n.LearningRate)
		stepVec(b3, db3, n.LearningRate)
	}

	n.W1, n.B1 = denseToSlices(w1), vecToSlice(b1)
	n.W2, n.B2 = denseToSlices(w2), vecToSlice(b2)
	n.W3, n.B3 = denseToSlices(w3), vecToSlice(b3)

	return nil
}

// PredictProba runs a single row through the network.
func (n *NeuralNet) PredictProba(row []float64) (float64, error) {
	if len(n.W1) == 0 {
		return 0, fmt.Errorf("neural network is not fitted")
	}
	if len(row) != len(n.W1) {
		return 0, fmt.Errorf("row width %d does not match network input %d", len(row), len(n.W1))
	}

	a1 := forwardLayer(row, n.W1, n.B1, true)
	a2 := forwardLayer(a1, n.W2, n.B2, true)
	out := forwardLayer(a2, n.W3, n.B3, false)

	return sigmoid(out[0]), nil
}

// forwardLayer computes act(x·W + b) for a single row.
func forwardLayer(x []float64, w [][]float64, b []float64, useRelu bool) []float64 {
	out := make([]float64, len(b))
	for j := range out {
		sum := b[j]
		for i, v := range x {
			sum += v * w[i][j]
		}
		if useRelu {
			sum = relu(sum)
		}
		out[j] = sum
	}
	return out
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// heInit draws weights from a scaled normal suitable for ReLU layers.
func heInit(in, out int, rng *rand.Rand) *mat.Dense {
	scale := math.Sqrt(2.0 / float64(in))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
	return mat.NewDense(in, out, data)
}

func matMul(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// addBias adds a bias vector to every row.
func addBias(m *mat.Dense, b *mat.VecDense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(i, j)+b.AtVec(j))
		}
	}
	return out
}

func applyElem(m *mat.Dense, f func(float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return f(v) }, m)
	return &out
}

// hadamardMask zeroes gradient entries where the pre-activation was not
// positive (the ReLU derivative).
func hadamardMask(grad, pre *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if pre.At(i, j) > 0 {
				out.Set(i, j, grad.At(i, j))
			}
		}
	}
	return out
}

func colSums(m *mat.Dense) *mat.VecDense {
	rows, cols := m.Dims()
	out := mat.NewVecDense(cols, nil)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		out.SetVec(j, sum)
	}
	return out
}

func step(w, grad *mat.Dense, lr float64) {
	rows, cols := w.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			w.Set(i, j, w.At(i, j)-lr*grad.At(i, j))
		}
	}
}

func stepVec(b, grad *mat.VecDense, lr float64) {
	for i := 0; i < b.Len(); i++ {
		b.SetVec(i, b.AtVec(i)-lr*grad.AtVec(i))
	}
}

func denseToSlices(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
