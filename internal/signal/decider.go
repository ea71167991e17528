package signal

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TickPredictor/models"
)

// Hold reasons. These strings are part of the trade-intent contract and
// are matched by downstream tooling.
const (
	ReasonOutdated      = "signal outdated"
	ReasonLowConfidence = "confidence below floor"
	ReasonNoConsensus   = "no directional consensus"
	ReasonNoPrediction  = "no prediction available"
)

// Thresholds are the decider's fixed, auditable policy constants. All
// confidence values are fractions in [0,1].
type Thresholds struct {
	ConfidenceFloor float64       // below this the signal is ignored
	DoubleLotAt     float64       // confidence tier for the x2.0 lot
	BoostLotAt      float64       // confidence tier for the x1.5 lot
	BaseLot         float64       // lot size before multipliers
	StopLossPips    int           // symmetric risk bracket
	TakeProfitPips  int
	MaxAge          time.Duration // predictions older than this are stale
	Validity        time.Duration // lifetime of a non-HOLD intent
	StrongAt        float64       // informational strength labels
	ModerateAt      float64
}

// DefaultThresholds returns the contract values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConfidenceFloor: 0.65,
		DoubleLotAt:     0.80,
		BoostLotAt:      0.70,
		BaseLot:         0.01,
		StopLossPips:    25,
		TakeProfitPips:  30,
		MaxAge:          30 * time.Minute,
		Validity:        15 * time.Minute,
		StrongAt:        0.75,
		ModerateAt:      0.65,
	}
}

// Decider converts predictions into trade intents under the threshold
// policy. It holds no state besides the thresholds.
type Decider struct {
	thresholds Thresholds
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a decider with the given thresholds.
func New(t Thresholds) *Decider {
	return &Decider{
		thresholds: t,
		logger:     log.With().Str("component", "signal_decider").Logger(),
		now:        time.Now,
	}
}

// Decide gates the prediction and produces a trade intent. Every gate
// rejection is a normal HOLD outcome carrying its reason, never an
// error. Percentage confidences are normalized before comparison.
func (d *Decider) Decide(pred *models.Prediction, symbol string) models.TradeIntent {
	now := d.now().UTC()

	if pred == nil {
		return d.hold(symbol, ReasonNoPrediction, 0, time.Time{})
	}

	confidence := models.NormalizeConfidence(pred.AvgConfidence)
	age := now.Sub(pred.Timestamp.UTC())

	if age > d.thresholds.MaxAge {
		d.logger.Warn().
			Dur("age", age).
			Msg("prediction is stale")
		return d.hold(symbol, ReasonOutdated, confidence, pred.Timestamp)
	}

	var action string
	switch pred.Consensus {
	case models.DirectionBullish:
		action = models.ActionBuy
	case models.DirectionBearish:
		action = models.ActionSell
	default:
		return d.hold(symbol, ReasonNoConsensus, confidence, pred.Timestamp)
	}

	if confidence < d.thresholds.ConfidenceFloor {
		return d.hold(symbol, ReasonLowConfidence, confidence, pred.Timestamp)
	}

	intent := models.TradeIntent{
		Action:         action,
		Symbol:         symbol,
		LotSize:        d.thresholds.BaseLot * d.lotMultiplier(confidence),
		StopLossPips:   d.thresholds.StopLossPips,
		TakeProfitPips: d.thresholds.TakeProfitPips,
		ValidUntil:     pred.Timestamp.UTC().Add(d.thresholds.Validity),
		Strength:       d.strength(confidence),
		Confidence:     confidence,
		Reason: fmt.Sprintf("%s consensus %s (%s)",
			d.strength(confidence), pred.Consensus, pred.ConsensusStrength),
		PredictionTime: pred.Timestamp.UTC(),
	}

	d.logger.Info().
		Str("action", intent.Action).
		Float64("lot", intent.LotSize).
		Float64("confidence", confidence).
		Str("strength", intent.Strength).
		Msg("trade intent generated")

	return intent
}

func (d *Decider) hold(symbol, reason string, confidence float64, predTime time.Time) models.TradeIntent {
	return models.TradeIntent{
		Action:         models.ActionHold,
		Symbol:         symbol,
		Strength:       d.strength(confidence),
		Confidence:     confidence,
		Reason:         reason,
		PredictionTime: predTime,
	}
}

func (d *Decider) lotMultiplier(confidence float64) float64 {
	switch {
	case confidence >= d.thresholds.DoubleLotAt:
		return 2.0
	case confidence >= d.thresholds.BoostLotAt:
		return 1.5
	default:
		return 1.0
	}
}

func (d *Decider) strength(confidence float64) string {
	switch {
	case confidence >= d.thresholds.StrongAt:
		return models.StrengthStrong
	case confidence >= d.thresholds.ModerateAt:
		return models.StrengthModerate
	default:
		return models.StrengthWeak
	}
}

// LoadSnapshot reads the latest-prediction file written by the predictor
// side. A missing file is a normal condition and returns nil.
func LoadSnapshot(path string) (*models.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading prediction snapshot: %w", err)
	}

	var snap models.PredictionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding prediction snapshot: %w", err)
	}

	pred, err := snap.Restore()
	if err != nil {
		return nil, fmt.Errorf("restoring prediction snapshot: %w", err)
	}
	return pred, nil
}

// SaveIntent writes the trade intent to the shared signal file in its
// exchange form (percentage confidence). The write is atomic.
func SaveIntent(intent models.TradeIntent, consensusStrength, path string) error {
	snap := models.TradeIntentSnapshot{
		Action:              intent.Action,
		Confidence:          intent.Confidence * 100,
		Timestamp:           intent.PredictionTime.UTC().Format(models.TimestampLayout),
		ModelsConsensus:     consensusStrength,
		TradeRecommendation: intent.Strength,
		Reason:              intent.Reason,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding trade intent: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing trade intent: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publishing trade intent: %w", err)
	}
	return nil
}
