package features

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Alias1177/TickPredictor/models"
)

func TestBuildWindowBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		ticks       int
		wantSamples int
		wantLatest  bool
	}{
		{name: "empty window", ticks: 0, wantSamples: 0, wantLatest: false},
		{name: "one below warmup", ticks: 19, wantSamples: 0, wantLatest: false},
		{name: "exactly at warmup", ticks: 20, wantSamples: 0, wantLatest: true},
		{name: "one usable sample", ticks: 21, wantSamples: 1, wantLatest: true},
		{name: "larger window", ticks: 60, wantSamples: 40, wantLatest: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := generateWindow(tt.ticks, func(i int) (float64, float64) {
				return 1.1000 + float64(i)*0.0001, 1.1002 + float64(i)*0.0001
			})

			X, y, times := Build(window)
			if len(X) != tt.wantSamples {
				t.Errorf("Build() returned %d samples, want %d", len(X), tt.wantSamples)
			}
			if len(X) != len(y) {
				t.Errorf("Build() X/y misaligned: %d vs %d", len(X), len(y))
			}
			if len(X) != len(times) {
				t.Errorf("Build() X/times misaligned: %d vs %d", len(X), len(times))
			}

			latest := Latest(window)
			if (latest != nil) != tt.wantLatest {
				t.Errorf("Latest() = %v, want present=%v", latest, tt.wantLatest)
			}
		})
	}
}

func TestFeatureWidth(t *testing.T) {
	window := generateWindow(50, func(i int) (float64, float64) {
		return 1.2000 + float64(i%7)*0.0003, 1.2004 + float64(i%7)*0.0003
	})

	X, _, _ := Build(window)
	if len(X) == 0 {
		t.Fatal("Build() returned no samples")
	}
	for i, row := range X {
		if len(row) != Width {
			t.Errorf("row %d has %d columns, want %d", i, len(row), Width)
		}
	}

	if latest := Latest(window); len(latest) != Width {
		t.Errorf("Latest() has %d columns, want %d", len(latest), Width)
	}
}

func TestBuildDeterminism(t *testing.T) {
	window := generateWindow(120, func(i int) (float64, float64) {
		bid := 1.0850 + 0.0004*math.Sin(float64(i)/3)
		return bid, bid + 0.0002
	})

	x1, y1, _ := Build(window)
	x2, y2, _ := Build(window)

	if !reflect.DeepEqual(x1, x2) {
		t.Error("Build() feature matrix is not deterministic")
	}
	if !reflect.DeepEqual(y1, y2) {
		t.Error("Build() targets are not deterministic")
	}
}

func TestFeatureValuesOnLinearDrift(t *testing.T) {
	// Linearly rising mid with constant spread: every derived value has
	// a closed form.
	const step = 0.0002
	const spread = 0.0002

	window := generateWindow(30, func(i int) (float64, float64) {
		bid := 1.1000 + float64(i)*step
		return bid, bid + spread
	})

	row := Latest(window)
	if row == nil {
		t.Fatal("Latest() returned nil")
	}

	i := 29
	mid := 1.1000 + spread/2 + float64(i)*step

	want := []struct {
		column string
		value  float64
	}{
		{"spread", spread},
		{"price_change", step},
		{"price_change_5", 5 * step},
		{"price_change_10", 10 * step},
		{"ma_5", mid - 2*step},
		{"ma_10", mid - 4.5*step},
		{"ma_20", mid - 9.5*step},
		{"volatility_5", step * math.Sqrt(2.5)},
		{"volatility_10", step * math.Sqrt(55.0/6.0)},
		{"trend_5", 1},
		{"trend_10", 1},
	}

	for _, tt := range want {
		col := columnIndex(t, tt.column)
		if math.Abs(row[col]-tt.value) > 1e-9 {
			t.Errorf("column %s = %.10f, want %.10f", tt.column, row[col], tt.value)
		}
	}
}

func TestTargetIsNextMidDirection(t *testing.T) {
	// Up, up, down at the tail end of the window.
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 1.3000 + float64(i)*0.0001
	}
	prices[38] = prices[37] + 0.0005
	prices[39] = prices[38] - 0.0010

	window := generateWindow(40, func(i int) (float64, float64) {
		return prices[i], prices[i] + 0.0002
	})

	_, y, _ := Build(window)
	if len(y) < 2 {
		t.Fatalf("Build() returned %d targets", len(y))
	}
	if y[len(y)-2] != 1 {
		t.Errorf("target before the spike = %d, want 1", y[len(y)-2])
	}
	if y[len(y)-1] != 0 {
		t.Errorf("target at the spike = %d, want 0 (next mid falls)", y[len(y)-1])
	}
}

func columnIndex(t *testing.T, name string) int {
	t.Helper()
	for i, c := range Columns {
		if c == name {
			return i
		}
	}
	t.Fatalf("unknown feature column %q", name)
	return -1
}

func generateWindow(n int, quote func(int) (float64, float64)) models.TickWindow {
	base := time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)
	ticks := make([]models.Tick, n)
	for i := 0; i < n; i++ {
		bid, ask := quote(i)
		ticks[i] = models.Tick{Bid: bid, Ask: ask, Time: base.Add(time.Duration(i) * time.Second)}
	}
	return models.TickWindow{Symbol: "EURUSD", Ticks: ticks, Source: "test"}
}
