package ml

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TickPredictor/models"
)

// Model names. The set is closed: persisted artifacts are only portable
// because these names and their scaling requirements never change.
const (
	NameRandomForest  = "random_forest"
	NameGradientBoost = "gradient_boost"
	NameNeuralNetwork = "neural_network"
	NameSVM           = "svm"
)

// ScalerArtifact is the file name of the persisted scaler.
const ScalerArtifact = "scaler.json"

// Classifier is a binary probabilistic classifier over feature rows.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	PredictProba(row []float64) (float64, error)
}

// ModelSpec describes one member of the closed model set.
type ModelSpec struct {
	Name         string
	NeedsScaling bool
	New          func() Classifier
}

// Specs enumerates the ensemble members in a fixed order.
var Specs = []ModelSpec{
	{Name: NameRandomForest, NeedsScaling: false, New: func() Classifier { return NewRandomForest() }},
	{Name: NameGradientBoost, NeedsScaling: false, New: func() Classifier { return NewGradientBoost() }},
	{Name: NameNeuralNetwork, NeedsScaling: true, New: func() Classifier { return NewNeuralNet() }},
	{Name: NameSVM, NeedsScaling: true, New: func() Classifier { return NewSVM() }},
}

// splitSeed pins the train/test shuffle so accuracy numbers are
// reproducible across runs.
const splitSeed = 42

// testFraction is the held-out share of the training set.
const testFraction = 0.3

// Ensemble owns the fitted scaler and the classifiers, and knows how to
// persist and reload them as individual JSON artifacts.
type Ensemble struct {
	scaler *StandardScaler
	fitted map[string]Classifier
	logger zerolog.Logger
}

// NewEnsemble returns an empty, unfitted ensemble.
func NewEnsemble() *Ensemble {
	return &Ensemble{
		scaler: &StandardScaler{},
		fitted: make(map[string]Classifier),
		logger: log.With().Str("component", "ensemble").Logger(),
	}
}

// ModelCount returns the number of fitted (or loaded) models.
func (e *Ensemble) ModelCount() int {
	return len(e.fitted)
}

// Scaler exposes the fitted scaler.
func (e *Ensemble) Scaler() *StandardScaler {
	return e.scaler
}

// Train fits the scaler and every model of the closed set on a 70/30
// split and returns the per-model held-out accuracy.
func (e *Ensemble) Train(X [][]float64, y []int) (map[string]float64, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("feature/label length mismatch: %d vs %d", len(X), len(y))
	}
	if len(X) < 10 {
		return nil, fmt.Errorf("not enough samples to train: %d", len(X))
	}

	trainX, trainY, testX, testY := split(X, y)

	if err := e.scaler.Fit(trainX); err != nil {
		return nil, fmt.Errorf("fitting scaler: %w", err)
	}
	trainScaled, err := e.scaler.TransformAll(trainX)
	if err != nil {
		return nil, fmt.Errorf("scaling training split: %w", err)
	}
	testScaled, err := e.scaler.TransformAll(testX)
	if err != nil {
		return nil, fmt.Errorf("scaling test split: %w", err)
	}

	accuracies := make(map[string]float64, len(Specs))
	for _, spec := range Specs {
		clf := spec.New()

		fitX, evalX := trainX, testX
		if spec.NeedsScaling {
			fitX, evalX = trainScaled, testScaled
		}

		if err := clf.Fit(fitX, trainY); err != nil {
			return nil, fmt.Errorf("training %s: %w", spec.Name, err)
		}

		acc, err := accuracy(clf, evalX, testY)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", spec.Name, err)
		}

		accuracies[spec.Name] = acc
		e.fitted[spec.Name] = clf

		e.logger.Info().Str("model", spec.Name).Float64("accuracy", acc).Msg("model trained")
	}

	return accuracies, nil
}

// Vote produces a per-model direction and confidence for one raw feature
// row. A model that fails to predict is logged and skipped; its absence
// shrinks the vote count rather than poisoning the consensus.
func (e *Ensemble) Vote(row []float64) map[string]models.ModelVote {
	votes := make(map[string]models.ModelVote, len(e.fitted))

	for _, spec := range Specs {
		clf, ok := e.fitted[spec.Name]
		if !ok {
			continue
		}

		input := row
		if spec.NeedsScaling {
			scaled, err := e.scaler.Transform(row)
			if err != nil {
				e.logger.Warn().Str("model", spec.Name).Err(err).Msg("scaling failed, model skipped")
				continue
			}
			input = scaled
		}

		p, err := clf.PredictProba(input)
		if err != nil {
			e.logger.Warn().Str("model", spec.Name).Err(err).Msg("prediction failed, model skipped")
			continue
		}

		label := models.DirectionBearish
		if p >= 0.5 {
			label = models.DirectionBullish
		}
		confidence := p
		if 1-p > confidence {
			confidence = 1 - p
		}

		votes[spec.Name] = models.ModelVote{Label: label, Confidence: confidence}
	}

	return votes
}

// Save writes the scaler and every fitted model into dir as individual
// JSON artifacts. Each file is written to a temp name and renamed so a
// concurrent loader never observes a partial artifact.
func (e *Ensemble) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating models directory: %w", err)
	}

	if err := writeJSONAtomic(filepath.Join(dir, ScalerArtifact), e.scaler); err != nil {
		return fmt.Errorf("saving scaler: %w", err)
	}

	for _, spec := range Specs {
		clf, ok := e.fitted[spec.Name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, spec.Name+".json")
		if err := writeJSONAtomic(path, clf); err != nil {
			return fmt.Errorf("saving %s: %w", spec.Name, err)
		}
	}

	e.logger.Info().Str("dir", dir).Int("models", len(e.fitted)).Msg("ensemble persisted")
	return nil
}

// Load reads the scaler and whichever model artifacts exist in dir.
// Individually missing model files are tolerated; the missing models are
// simply absent from inference. A missing scaler is fatal because the
// scaled models cannot run without it.
func (e *Ensemble) Load(dir string) error {
	scaler := &StandardScaler{}
	if err := readJSON(filepath.Join(dir, ScalerArtifact), scaler); err != nil {
		return fmt.Errorf("loading scaler: %w", err)
	}
	e.scaler = scaler

	loaded := 0
	for _, spec := range Specs {
		path := filepath.Join(dir, spec.Name+".json")
		clf := spec.New()
		if err := readJSON(path, clf); err != nil {
			if os.IsNotExist(err) {
				e.logger.Warn().Str("model", spec.Name).Msg("model artifact missing, skipped")
				continue
			}
			return fmt.Errorf("loading %s: %w", spec.Name, err)
		}
		e.fitted[spec.Name] = clf
		loaded++
	}

	e.logger.Info().Str("dir", dir).Int("models", loaded).Msg("ensemble loaded")
	return nil
}

// CheckArtifacts reports which expected artifact files exist in dir.
func CheckArtifacts(dir string) map[string]bool {
	present := make(map[string]bool, len(Specs)+1)
	_, err := os.Stat(filepath.Join(dir, ScalerArtifact))
	present["scaler"] = err == nil
	for _, spec := range Specs {
		_, err := os.Stat(filepath.Join(dir, spec.Name+".json"))
		present[spec.Name] = err == nil
	}
	return present
}

// split shuffles deterministically and carves off the held-out share.
func split(X [][]float64, y []int) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	rng := rand.New(rand.NewSource(splitSeed))
	order := rng.Perm(len(X))

	testSize := int(float64(len(X)) * testFraction)
	if testSize < 1 {
		testSize = 1
	}
	cut := len(X) - testSize

	for _, i := range order[:cut] {
		trainX = append(trainX, X[i])
		trainY = append(trainY, y[i])
	}
	for _, i := range order[cut:] {
		testX = append(testX, X[i])
		testY = append(testY, y[i])
	}
	return trainX, trainY, testX, testY
}

func accuracy(clf Classifier, X [][]float64, y []int) (float64, error) {
	if len(X) == 0 {
		return 0, nil
	}
	correct := 0
	for i, row := range X {
		p, err := clf.PredictProba(row)
		if err != nil {
			return 0, err
		}
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X)), nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
