package models

import (
	"time"
)

// TimestampLayout is the stamp format used in every JSON artifact the
// pipeline exchanges. All stamps are UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// Direction labels emitted by the ensemble.
const (
	DirectionBullish = "BULLISH"
	DirectionBearish = "BEARISH"
	DirectionNeutral = "NEUTRAL"
)

// Trade actions emitted by the signal decider.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Signal strength labels (informational only).
const (
	StrengthStrong   = "STRONG"
	StrengthModerate = "MODERATE"
	StrengthWeak     = "WEAK"
)

// Tick is a single bid/ask quote observation. Ticks are immutable and
// always satisfy ask >= bid; rows violating that never leave the store.
type Tick struct {
	Bid  float64   `json:"bid"`
	Ask  float64   `json:"ask"`
	Time time.Time `json:"time"`
}

// Mid returns the arithmetic mean of bid and ask.
func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread returns ask minus bid.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// TickWindow is a chronologically ascending tick sequence for one symbol,
// together with a label naming the table(s) it was read from.
type TickWindow struct {
	Symbol string
	Ticks  []Tick
	Source string
}

// Len returns the number of ticks in the window.
func (w TickWindow) Len() int {
	return len(w.Ticks)
}

// ModelVote is a single classifier's opinion for one inference call.
// Confidence is a fraction in [0,1].
type ModelVote struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Prediction is the full ensemble output for one inference call.
// Confidences are fractions in [0,1]; conversion to percentages happens
// only when a snapshot is serialized.
type Prediction struct {
	Votes             map[string]ModelVote `json:"votes"`
	Consensus         string               `json:"consensus"`
	ConsensusStrength string               `json:"consensus_strength"`
	AvgConfidence     float64              `json:"avg_confidence"`
	DataSource        string               `json:"data_source"`
	Timestamp         time.Time            `json:"timestamp"`
}

// TotalModels returns the number of models that voted.
func (p *Prediction) TotalModels() int {
	return len(p.Votes)
}

// PredictionSnapshot is the on-disk exchange form of a Prediction.
// Confidences are percentages (0-100) and the timestamp is formatted
// with TimestampLayout in UTC. Producer and consumer share only this file.
type PredictionSnapshot struct {
	Predictions       map[string]string  `json:"predictions"`
	Confidences       map[string]float64 `json:"confidences"`
	Consensus         string             `json:"consensus"`
	ConsensusStrength string             `json:"consensus_strength"`
	AvgConfidence     float64            `json:"avg_confidence"`
	DataSource        string             `json:"data_source"`
	TotalModels       int                `json:"total_models"`
	Timestamp         string             `json:"timestamp"`
}

// Snapshot converts the prediction into its serialized exchange form.
func (p *Prediction) Snapshot() PredictionSnapshot {
	preds := make(map[string]string, len(p.Votes))
	confs := make(map[string]float64, len(p.Votes))
	for name, v := range p.Votes {
		preds[name] = v.Label
		confs[name] = round1(v.Confidence * 100)
	}
	return PredictionSnapshot{
		Predictions:       preds,
		Confidences:       confs,
		Consensus:         p.Consensus,
		ConsensusStrength: p.ConsensusStrength,
		AvgConfidence:     round1(p.AvgConfidence * 100),
		DataSource:        p.DataSource,
		TotalModels:       len(p.Votes),
		Timestamp:         p.Timestamp.UTC().Format(TimestampLayout),
	}
}

// Restore converts the snapshot back into an in-memory Prediction with
// fractional confidences. The timestamp is parsed as UTC.
func (s PredictionSnapshot) Restore() (*Prediction, error) {
	ts, err := time.ParseInLocation(TimestampLayout, s.Timestamp, time.UTC)
	if err != nil {
		return nil, err
	}
	votes := make(map[string]ModelVote, len(s.Predictions))
	for name, label := range s.Predictions {
		votes[name] = ModelVote{
			Label:      label,
			Confidence: NormalizeConfidence(s.Confidences[name]),
		}
	}
	return &Prediction{
		Votes:             votes,
		Consensus:         s.Consensus,
		ConsensusStrength: s.ConsensusStrength,
		AvgConfidence:     NormalizeConfidence(s.AvgConfidence),
		DataSource:        s.DataSource,
		Timestamp:         ts,
	}, nil
}

// NormalizeConfidence maps a confidence that may arrive as a percentage
// into the fractional [0,1] form used in memory.
func NormalizeConfidence(c float64) float64 {
	if c > 1.0 {
		return c / 100
	}
	return c
}

// TradeIntent is the decider's policy-gated recommendation. It is not an
// order: lot size, stop distances and deadline are inputs for an executor.
type TradeIntent struct {
	Action         string    `json:"action"`
	Symbol         string    `json:"symbol"`
	LotSize        float64   `json:"lot_size"`
	StopLossPips   int       `json:"sl_pips"`
	TakeProfitPips int       `json:"tp_pips"`
	ValidUntil     time.Time `json:"valid_until"`
	Strength       string    `json:"strength"`
	Confidence     float64   `json:"confidence"`
	Reason         string    `json:"reason"`
	PredictionTime time.Time `json:"source_prediction_time"`
}

// Actionable reports whether the intent is an actual BUY or SELL.
func (t TradeIntent) Actionable() bool {
	return t.Action == ActionBuy || t.Action == ActionSell
}

// TradeIntentSnapshot is the on-disk form of a TradeIntent consumed by
// the executor side. Confidence is a percentage.
type TradeIntentSnapshot struct {
	Action              string  `json:"action"`
	Confidence          float64 `json:"confidence"`
	Timestamp           string  `json:"timestamp"`
	ModelsConsensus     string  `json:"models_consensus"`
	TradeRecommendation string  `json:"trade_recommendation"`
	Reason              string  `json:"reason"`
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
