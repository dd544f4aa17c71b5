package agent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of evaluating one expression of a batch.
type Outcome struct {
	Expression string
	Value      float64
	Err        error
}

// EvaluateAll evaluates every expression on at most workers goroutines.
// Outcomes are in input order. A failing expression does not stop the batch;
// only ctx cancellation does, in which case ctx.Err() is returned.
func EvaluateAll(ctx context.Context, expressions []string, workers int) ([]Outcome, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Outcome, len(expressions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, expr := range expressions {
		if gctx.Err() != nil {
			break
		}
		i, expr := i, expr
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := Evaluate(expr)
			out[i] = Outcome{Expression: expr, Value: v, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
