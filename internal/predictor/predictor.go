package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TickPredictor/internal/features"
	"github.com/Alias1177/TickPredictor/models"
)

// minTrainingTicks is the smallest raw window worth training on.
const minTrainingTicks = 100

// minTrainingSamples is the smallest usable feature matrix.
const minTrainingSamples = 10

// minInferenceTicks is the smallest window a live prediction needs.
const minInferenceTicks = 20

// EnsembleEngine is the model-layer contract the predictor drives.
type EnsembleEngine interface {
	Train(X [][]float64, y []int) (map[string]float64, error)
	Vote(row []float64) map[string]models.ModelVote
	Save(dir string) error
	Load(dir string) error
	ModelCount() int
}

// TrainReport summarizes one training run.
type TrainReport struct {
	Accuracies map[string]float64 `json:"accuracies"`
	Samples    int                `json:"samples"`
	Ticks      int                `json:"ticks"`
	ModelCount int                `json:"model_count"`
	Source     string             `json:"source"`
}

// Predictor glues the tick source, the feature builder and the ensemble
// into the two user-facing operations: offline training and live
// inference. A nil Prediction with a nil error means "no signal this
// round", not a failure.
type Predictor struct {
	source    models.TickSource
	ensemble  EnsembleEngine
	modelsDir string

	windowSize int
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a predictor. windowSize is the number of recent ticks
// pulled for a live prediction; values below the feature warmup are
// raised to the minimum.
func New(source models.TickSource, ensemble EnsembleEngine, modelsDir string, windowSize int) *Predictor {
	if windowSize < minInferenceTicks {
		windowSize = minInferenceTicks
	}
	return &Predictor{
		source:     source,
		ensemble:   ensemble,
		modelsDir:  modelsDir,
		windowSize: windowSize,
		logger:     log.With().Str("component", "predictor").Logger(),
		now:        time.Now,
	}
}

// Train pulls the historical window, builds features, trains the
// ensemble and persists the artifacts. A nil report with nil error means
// there was not enough data to train on.
func (p *Predictor) Train(ctx context.Context, symbol string, daysBack int) (*TrainReport, error) {
	window, err := p.source.LoadTrainingWindow(ctx, symbol, daysBack)
	if err != nil {
		return nil, fmt.Errorf("loading training window: %w", err)
	}
	if window.Len() < minTrainingTicks {
		p.logger.Warn().
			Str("symbol", symbol).
			Int("ticks", window.Len()).
			Msg("not enough ticks to train")
		return nil, nil
	}

	X, y, _ := features.Build(window)
	if len(X) < minTrainingSamples {
		p.logger.Warn().
			Str("symbol", symbol).
			Int("samples", len(X)).
			Msg("not enough samples after feature engineering")
		return nil, nil
	}

	accuracies, err := p.ensemble.Train(X, y)
	if err != nil {
		return nil, fmt.Errorf("training ensemble: %w", err)
	}

	if err := p.ensemble.Save(p.modelsDir); err != nil {
		return nil, fmt.Errorf("persisting ensemble: %w", err)
	}

	report := &TrainReport{
		Accuracies: accuracies,
		Samples:    len(X),
		Ticks:      window.Len(),
		ModelCount: p.ensemble.ModelCount(),
		Source:     window.Source,
	}

	p.logger.Info().
		Str("symbol", symbol).
		Int("ticks", report.Ticks).
		Int("samples", report.Samples).
		Int("models", report.ModelCount).
		Str("source", report.Source).
		Msg("training complete")

	return report, nil
}

// Predict runs one live inference over the latest tick window. It
// returns nil (and no error) when there is no usable data or no loaded
// model; per-model failures inside the ensemble shrink the vote count
// but never surface here.
func (p *Predictor) Predict(ctx context.Context, symbol string) (*models.Prediction, error) {
	if p.ensemble.ModelCount() == 0 {
		p.logger.Warn().Msg("no models loaded, skipping prediction")
		return nil, nil
	}

	window, err := p.source.LoadInferenceWindow(ctx, symbol, p.windowSize)
	if err != nil {
		return nil, fmt.Errorf("loading inference window: %w", err)
	}
	if window.Len() < minInferenceTicks {
		p.logger.Warn().
			Str("symbol", symbol).
			Int("ticks", window.Len()).
			Msg("not enough ticks for prediction")
		return nil, nil
	}

	row := features.Latest(window)
	if row == nil {
		p.logger.Warn().Str("symbol", symbol).Msg("could not assemble features")
		return nil, nil
	}

	votes := p.ensemble.Vote(row)
	if len(votes) == 0 {
		p.logger.Warn().Str("symbol", symbol).Msg("no model produced a vote")
		return nil, nil
	}

	consensus, strength := Consensus(votes)

	sum := 0.0
	for _, v := range votes {
		sum += v.Confidence
	}

	pred := &models.Prediction{
		Votes:             votes,
		Consensus:         consensus,
		ConsensusStrength: strength,
		AvgConfidence:     sum / float64(len(votes)),
		DataSource:        window.Source,
		Timestamp:         p.now().UTC(),
	}

	p.logger.Info().
		Str("symbol", symbol).
		Str("consensus", pred.Consensus).
		Str("strength", pred.ConsensusStrength).
		Float64("avg_confidence", pred.AvgConfidence).
		Str("source", pred.DataSource).
		Msg("prediction generated")

	return pred, nil
}

// Consensus applies the majority rule over the votes: strictly more than
// half BULLISH wins, strictly less loses, a tie is NEUTRAL. The strength
// numerator is the larger camp either way.
func Consensus(votes map[string]models.ModelVote) (string, string) {
	bulls := 0
	for _, v := range votes {
		if v.Label == models.DirectionBullish {
			bulls++
		}
	}
	total := len(votes)

	consensus := models.DirectionNeutral
	switch {
	case 2*bulls > total:
		consensus = models.DirectionBullish
	case 2*bulls < total:
		consensus = models.DirectionBearish
	}

	majority := bulls
	if total-bulls > majority {
		majority = total - bulls
	}

	return consensus, fmt.Sprintf("%d/%d", majority, total)
}

// SaveSnapshot serializes the prediction into the shared latest-
// prediction file. The write is atomic so the decider side never reads a
// torn snapshot.
func SaveSnapshot(pred *models.Prediction, path string) error {
	data, err := json.MarshalIndent(pred.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding prediction snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing prediction snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publishing prediction snapshot: %w", err)
	}
	return nil
}
