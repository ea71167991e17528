package ml

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry the mean
// target of the samples that reached them; for binary targets that mean
// is P(y=1).
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// regressionTree is a CART tree fitted with variance-reduction splits.
// It underlies both the random forest (binary targets) and the gradient
// booster (residual targets).
type regressionTree struct {
	Root     *treeNode `json:"root"`
	MaxDepth int       `json:"max_depth"`
	MinLeaf  int       `json:"min_leaf"`
}

// fit grows the tree on the given sample indices. featureSub > 0 limits
// every split to that many randomly drawn candidate features.
func (t *regressionTree) fit(X [][]float64, y []float64, idx []int, featureSub int, rng *rand.Rand) {
	if t.MaxDepth <= 0 {
		t.MaxDepth = 6
	}
	if t.MinLeaf <= 0 {
		t.MinLeaf = 2
	}
	t.Root = t.grow(X, y, idx, 0, featureSub, rng)
}

func (t *regressionTree) grow(X [][]float64, y []float64, idx []int, depth, featureSub int, rng *rand.Rand) *treeNode {
	if depth >= t.MaxDepth || len(idx) < 2*t.MinLeaf || pure(y, idx) {
		return &treeNode{Leaf: true, Value: meanAt(y, idx)}
	}

	feature, threshold, ok := t.bestSplit(X, y, idx, featureSub, rng)
	if !ok {
		return &treeNode{Leaf: true, Value: meanAt(y, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.MinLeaf || len(right) < t.MinLeaf {
		return &treeNode{Leaf: true, Value: meanAt(y, idx)}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.grow(X, y, left, depth+1, featureSub, rng),
		Right:     t.grow(X, y, right, depth+1, featureSub, rng),
	}
}

// bestSplit scans candidate features with a sorted sweep, maximizing the
// reduction in sum of squared errors.
func (t *regressionTree) bestSplit(X [][]float64, y []float64, idx []int, featureSub int, rng *rand.Rand) (int, float64, bool) {
	width := len(X[idx[0]])
	candidates := make([]int, width)
	for j := range candidates {
		candidates[j] = j
	}
	if featureSub > 0 && featureSub < width {
		rng.Shuffle(width, func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})
		candidates = candidates[:featureSub]
	}

	var (
		total, totalSq float64
		n              = float64(len(idx))
	)
	for _, i := range idx {
		total += y[i]
		totalSq += y[i] * y[i]
	}
	baseSSE := totalSq - total*total/n

	bestGain := 1e-12
	bestFeature, bestThreshold := -1, 0.0

	order := make([]int, len(idx))
	for _, feature := range candidates {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return X[order[a]][feature] < X[order[b]][feature]
		})

		var leftSum, leftSq float64
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			cur, next := X[i][feature], X[order[k+1]][feature]
			if cur == next {
				continue
			}

			nl := float64(k + 1)
			nr := n - nl
			rightSum := total - leftSum
			rightSq := totalSq - leftSq

			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if gain := baseSSE - sse; gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// predict walks the tree for one feature row.
func (t *regressionTree) predict(row []float64) float64 {
	node := t.Root
	for node != nil && !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		return 0
	}
	return node.Value
}

func meanAt(y []float64, idx []int) float64 {
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func pure(y []float64, idx []int) bool {
	first := y[idx[0]]
	for _, i := range idx[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}
