package features

import (
	"math"
	"time"

	"github.com/Alias1177/TickPredictor/models"
)

// Columns is the feature schema shared by the builder, the scaler and
// every classifier. Persisted model artifacts are only valid for this
// exact column order; change it and retrain.
var Columns = []string{
	"bid", "ask", "spread",
	"price_change", "price_change_5", "price_change_10",
	"ma_5", "ma_10", "ma_20",
	"volatility_5", "volatility_10",
	"trend_5", "trend_10",
}

// Width is the number of feature columns.
var Width = len(Columns)

// warmup rows carry undefined trailing-window values and are dropped.
// ma_20 is the longest lookback: rows 0..18 are incomplete.
const warmup = 19

// minTicks is the smallest window the builder accepts.
const minTicks = 20

// Matrix is a set of feature rows, one per usable tick.
type Matrix [][]float64

// Build converts a tick window into the training matrix X, the target
// vector y and the tick times aligned with the rows of X.
//
// The target is the direction of the next mid-price move, so the final
// usable row has no label and is dropped from both X and y. Too little
// data yields empty results, never an error.
func Build(window models.TickWindow) (Matrix, []int, []time.Time) {
	X, times := featureRows(window)
	if len(X) < 2 {
		return nil, nil, nil
	}

	mids := midSeries(window)
	// featureRows dropped the warmup prefix; mids is still full-length.
	offset := warmup

	y := make([]int, 0, len(X)-1)
	for i := 0; i < len(X)-1; i++ {
		if mids[offset+i+1] > mids[offset+i] {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	return X[:len(X)-1], y, times[:len(times)-1]
}

// Latest returns the feature row for the most recent tick, or nil when
// the window is too short to fill the trailing lookbacks.
func Latest(window models.TickWindow) []float64 {
	X, _ := featureRows(window)
	if len(X) == 0 {
		return nil
	}
	return X[len(X)-1]
}

func midSeries(window models.TickWindow) []float64 {
	mids := make([]float64, window.Len())
	for i, t := range window.Ticks {
		mids[i] = t.Mid()
	}
	return mids
}

// featureRows computes every derived series and drops the warmup prefix.
func featureRows(window models.TickWindow) (Matrix, []time.Time) {
	n := window.Len()
	if n < minTicks {
		return nil, nil
	}

	mids := midSeries(window)

	X := make(Matrix, 0, n-warmup)
	times := make([]time.Time, 0, n-warmup)

	for i := warmup; i < n; i++ {
		tick := window.Ticks[i]

		ma5 := mean(mids[i-4 : i+1])
		ma10 := mean(mids[i-9 : i+1])
		ma20 := mean(mids[i-19 : i+1])

		trend5 := 0.0
		if mids[i] > ma5 {
			trend5 = 1.0
		}
		trend10 := 0.0
		if mids[i] > ma10 {
			trend10 = 1.0
		}

		row := []float64{
			tick.Bid,
			tick.Ask,
			tick.Spread(),
			mids[i] - mids[i-1],
			mids[i] - mids[i-5],
			mids[i] - mids[i-10],
			ma5,
			ma10,
			ma20,
			sampleStd(mids[i-4 : i+1]),
			sampleStd(mids[i-9 : i+1]),
			trend5,
			trend10,
		}

		X = append(X, row)
		times = append(times, tick.Time)
	}

	return X, times
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStd is the n-1 denominator standard deviation, matching the
// rolling std the features were trained against.
func sampleStd(vals []float64) float64 {
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}
