package core

import (
	"context"
	"time"

	"jenkins2ado/internal/metrics"
)

// Executor runs the work of a single step under a timeout
type Executor struct {
	Timeout time.Duration
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{Timeout: timeout}
}

// RunStep executes fn and records its duration and outcome
func (e *Executor) RunStep(ctx context.Context, step StepName, fn func(ctx context.Context) (StepStatus, error)) (StepStatus, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	status, err := fn(ctx)
	if err != nil {
		status = StatusFailed
	}
	metrics.ObserveStep(string(step), string(status), time.Since(start))
	return status, err
}
