package dam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"DamOpt/internal/logging"

	"github.com/google/uuid"
)

// Options tune the search. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Hidden       int
	LearningRate float64
	WeightDecay  float64
	LogEvery     int // 0 disables progress lines
	Logger       *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Hidden:       DefaultHidden,
		LearningRate: 1e-3,
		WeightDecay:  0.01,
		LogEvery:     500,
	}
}

func (o Options) validate() error {
	if o.Hidden <= 0 || o.Hidden > 1024 {
		return fmt.Errorf("%w: hidden width %d", ErrInvalidInput, o.Hidden)
	}
	if !(o.LearningRate > 0) || !isFinite(o.LearningRate) {
		return fmt.Errorf("%w: learning rate %g", ErrInvalidInput, o.LearningRate)
	}
	if !(o.WeightDecay >= 0) || !isFinite(o.WeightDecay) {
		return fmt.Errorf("%w: weight decay %g", ErrInvalidInput, o.WeightDecay)
	}
	return nil
}

// run owns all mutable state of one optimization. Nothing is shared between
// runs, so independent runs may execute on separate goroutines.
type run struct {
	in    Input
	site  Site
	obj   Objective
	seed  uint64
	model *Model
	opt   *AdamW
	grad  []float64
	log   *slog.Logger
	every int
	runID string
	hist  []float64
	start time.Time
	last  Params
	seen  bool
}

func newRun(in Input, opts Options) *run {
	seed := rand.Uint64()
	if in.Seed != nil {
		seed = *in.Seed
	}
	model := NewModel(opts.Hidden, seed)
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("optimizer")
	}
	runID := uuid.NewString()
	return &run{
		in:    in,
		site:  in.Site(),
		obj:   in.Objective(),
		seed:  seed,
		model: model,
		opt:   NewAdamW(model.Size(), opts.LearningRate, opts.WeightDecay),
		grad:  make([]float64, model.Size()),
		log:   logger.With("run_id", runID),
		every: opts.LogEvery,
		runID: runID,
		hist:  make([]float64, 0, in.Epochs),
	}
}

// Optimize searches for the smallest section meeting the stability and
// no-tension conditions. The iteration budget in.Epochs is the only stopping
// rule.
//
// On ErrNumericDivergence and ErrCanceled the returned Result is the partial
// record built from the last finite step, with Status set accordingly.
func Optimize(ctx context.Context, in Input, opts Options) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	return newRun(in, opts).execute(ctx)
}

func (r *run) execute(ctx context.Context) (Result, error) {
	r.start = time.Now()
	r.log.Debug("optimization started", "H", r.in.H, "epochs", r.in.Epochs, "seed", r.seed)

	for epoch := 0; epoch < r.in.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			res := r.partial(StatusCanceled)
			r.log.Warn("optimization canceled", "epoch", epoch, "err", err)
			return res, fmt.Errorf("%w at epoch %d: %w", ErrCanceled, epoch, err)
		}

		p, act := r.model.forward()
		if !p.finite() {
			return r.diverged(epoch)
		}
		st, sens, err := evaluateWithGradient(r.site, p)
		if errors.Is(err, ErrNumericDivergence) {
			return r.diverged(epoch)
		}
		if err != nil {
			return Result{}, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		loss := r.obj.Loss(st)
		if !isFinite(loss) {
			return r.diverged(epoch)
		}
		r.hist = append(r.hist, loss)
		r.last, r.seen = p, true

		r.model.backward(act, r.obj.gradient(st, sens), r.grad)
		r.opt.Step(r.model.theta, r.grad)

		if r.every > 0 && epoch%r.every == 0 {
			r.log.Debug("epoch", "epoch", epoch, "loss", loss, "K", st.K, "sigma", st.Sigma)
		}
	}

	// inference pass on the trained weights
	p := r.model.Params()
	if !p.finite() {
		return r.diverged(r.in.Epochs)
	}
	st, err := Evaluate(r.site, p)
	if errors.Is(err, ErrNumericDivergence) {
		return r.diverged(r.in.Epochs)
	}
	if err != nil {
		return Result{}, err
	}
	res := r.finish(p, st, StatusExhausted)
	r.log.Info("optimization finished",
		"epochs", r.in.Epochs,
		"loss", res.FinalLoss,
		"K", res.K,
		"sigma", res.Sigma,
		"A", res.A,
		"elapsed", time.Since(r.start),
	)
	return res, nil
}

func (r *run) finish(p Params, st State, status Status) Result {
	res := Assemble(r.in, p, st, r.hist, time.Since(r.start))
	res.RunID = r.runID
	res.SeedUsed = r.seed
	res.Status = status
	return res
}

// partial assembles a result from the last parameters whose loss was finite.
func (r *run) partial(status Status) Result {
	p := r.last
	if !r.seen {
		p = r.model.Params()
	}
	st, err := Evaluate(r.site, p)
	if err != nil {
		st = State{}
	}
	return r.finish(p, st, status)
}

func (r *run) diverged(epoch int) (Result, error) {
	res := r.partial(StatusDiverged)
	r.log.Error("loss diverged", "epoch", epoch)
	return res, &DivergenceError{Epoch: epoch, Result: &res}
}
