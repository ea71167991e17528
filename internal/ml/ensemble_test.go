package ml

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/TickPredictor/models"
)

// separableSet builds a 13-wide dataset where the label is decided by
// the first column with a wide margin. Every member of the ensemble
// should learn it.
func separableSet(n int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(7))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		label := i % 2
		row := make([]float64, 13)
		for j := range row {
			row[j] = rng.NormFloat64() * 0.1
		}
		if label == 1 {
			row[0] += 2.0
		} else {
			row[0] -= 2.0
		}
		X[i] = row
		y[i] = label
	}
	return X, y
}

func TestEnsembleTrainAccuracies(t *testing.T) {
	X, y := separableSet(200)

	e := NewEnsemble()
	accuracies, err := e.Train(X, y)
	require.NoError(t, err)

	require.Len(t, accuracies, 4)
	for _, name := range []string{NameRandomForest, NameGradientBoost, NameNeuralNetwork, NameSVM} {
		assert.Contains(t, accuracies, name)
		assert.GreaterOrEqual(t, accuracies[name], 0.8, "model %s should learn a separable set", name)
	}
	assert.Equal(t, 4, e.ModelCount())
}

func TestEnsembleTrainRejectsTinySets(t *testing.T) {
	X, y := separableSet(8)
	e := NewEnsemble()
	_, err := e.Train(X, y)
	require.Error(t, err)
}

func TestEnsembleVoteLabels(t *testing.T) {
	X, y := separableSet(200)

	e := NewEnsemble()
	_, err := e.Train(X, y)
	require.NoError(t, err)

	bullish := make([]float64, 13)
	bullish[0] = 2.0
	votes := e.Vote(bullish)
	require.Len(t, votes, 4)
	for name, v := range votes {
		assert.Equal(t, models.DirectionBullish, v.Label, "model %s", name)
		assert.GreaterOrEqual(t, v.Confidence, 0.5)
		assert.LessOrEqual(t, v.Confidence, 1.0)
	}

	bearish := make([]float64, 13)
	bearish[0] = -2.0
	votes = e.Vote(bearish)
	for name, v := range votes {
		assert.Equal(t, models.DirectionBearish, v.Label, "model %s", name)
	}
}

func TestEnsemblePersistenceRoundTrip(t *testing.T) {
	X, y := separableSet(200)

	e := NewEnsemble()
	_, err := e.Train(X, y)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, e.Save(dir))

	// Every artifact is an individual stable file.
	for _, name := range []string{ScalerArtifact, "random_forest.json", "gradient_boost.json", "neural_network.json", "svm.json"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, "artifact %s", name)
	}

	reloaded := NewEnsemble()
	require.NoError(t, reloaded.Load(dir))
	require.Equal(t, 4, reloaded.ModelCount())

	row := make([]float64, 13)
	row[0] = 1.5
	row[3] = -0.2

	want := e.Vote(row)
	got := reloaded.Vote(row)
	require.Len(t, got, len(want))
	for name, v := range want {
		assert.Equal(t, v.Label, got[name].Label, "model %s label", name)
		assert.InDelta(t, v.Confidence, got[name].Confidence, 1e-9, "model %s confidence", name)
	}
}

func TestEnsembleLoadToleratesMissingModels(t *testing.T) {
	X, y := separableSet(200)

	e := NewEnsemble()
	_, err := e.Train(X, y)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, e.Save(dir))
	require.NoError(t, os.Remove(filepath.Join(dir, "svm.json")))

	reloaded := NewEnsemble()
	require.NoError(t, reloaded.Load(dir))
	assert.Equal(t, 3, reloaded.ModelCount())

	votes := reloaded.Vote(make([]float64, 13))
	assert.Len(t, votes, 3)
	assert.NotContains(t, votes, NameSVM)
}

func TestEnsembleLoadRequiresScaler(t *testing.T) {
	dir := t.TempDir()
	e := NewEnsemble()
	require.Error(t, e.Load(dir))
}

func TestCheckArtifacts(t *testing.T) {
	X, y := separableSet(200)

	e := NewEnsemble()
	_, err := e.Train(X, y)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, e.Save(dir))
	require.NoError(t, os.Remove(filepath.Join(dir, "neural_network.json")))

	present := CheckArtifacts(dir)
	assert.True(t, present["scaler"])
	assert.True(t, present[NameRandomForest])
	assert.False(t, present[NameNeuralNetwork])
}

// failingClassifier simulates a model that blows up at predict time.
type failingClassifier struct{}

func (failingClassifier) Fit(_ [][]float64, _ []int) error { return nil }
func (failingClassifier) PredictProba(_ []float64) (float64, error) {
	return 0, fmt.Errorf("model exploded")
}

func TestEnsembleVoteSkipsFailingModel(t *testing.T) {
	X, y := separableSet(200)

	e := NewEnsemble()
	_, err := e.Train(X, y)
	require.NoError(t, err)

	e.fitted[NameGradientBoost] = failingClassifier{}

	row := make([]float64, 13)
	row[0] = 2.0
	votes := e.Vote(row)

	assert.Len(t, votes, 3)
	assert.NotContains(t, votes, NameGradientBoost)
}
