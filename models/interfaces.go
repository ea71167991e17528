package models

import "context"

// TickSource is the read-only contract the predictor consumes. The
// repository implements it against Postgres; tests stub it.
type TickSource interface {
	LoadTrainingWindow(ctx context.Context, symbol string, daysBack int) (TickWindow, error)
	LoadInferenceWindow(ctx context.Context, symbol string, n int) (TickWindow, error)
}
