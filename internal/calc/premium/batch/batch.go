// Package batch runs many independent optimizations concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/logging"

	"golang.org/x/sync/errgroup"
)

// MaxItems caps a single batch.
const MaxItems = 200

var ErrEmpty = errors.New("batch: no items")

// Item is the outcome of one input. Exactly one of Result and Error is set.
type Item struct {
	Index  int         `json:"index"`
	ID     int64       `json:"id,omitempty"`
	Result *dam.Result `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type Runner struct {
	Options dam.Options
	Workers int
	// Timeout bounds each run; zero means no limit beyond ctx.
	Timeout time.Duration
	// Store is optional. A storage failure aborts the remaining runs.
	Store dam.Saver
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Run optimizes every input. Runs share nothing, so each gets its own
// goroutine bounded by Workers. Per-input failures are reported in the
// matching Item; only storage errors and ctx cancellation fail the batch.
func (r *Runner) Run(ctx context.Context, inputs []dam.Input) ([]Item, error) {
	if len(inputs) == 0 {
		return nil, ErrEmpty
	}
	if len(inputs) > MaxItems {
		return nil, fmt.Errorf("batch: %d items exceeds limit of %d", len(inputs), MaxItems)
	}

	log := logging.New("batch")
	items := make([]Item, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for i, in := range inputs {
		g.Go(func() error {
			items[i].Index = i
			runCtx := gctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(gctx, r.Timeout)
				defer cancel()
			}

			res, err := dam.Optimize(runCtx, in, r.Options)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				items[i].Error = err.Error()
				log.Warn("item failed", "index", i, "H", in.H, "err", err)
				return nil
			}
			items[i].Result = &res
			if r.Store != nil {
				id, err := r.Store.Insert(gctx, res)
				if err != nil {
					return fmt.Errorf("save item %d: %w", i, err)
				}
				items[i].ID = id
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	log.Info("batch finished", "items", len(items))
	return items, nil
}
