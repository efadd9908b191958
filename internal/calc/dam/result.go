package dam

import (
	"slices"
	"time"
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusExhausted is the normal end: every epoch of the budget ran.
	StatusExhausted Status = "exhausted_budget"
	StatusDiverged  Status = "diverged"
	StatusCanceled  Status = "canceled"
)

// Result is the record handed to storage, report and chart consumers.
// Treat it as read-only once returned.
type Result struct {
	RunID    string `json:"run_id"`
	SeedUsed uint64 `json:"seed_used"`
	Status   Status `json:"status"`

	Input
	Params

	A     float64 `json:"A"`
	K     float64 `json:"K"`
	Sigma float64 `json:"sigma"`

	Physics         State     `json:"physics"`
	LossHistory     []float64 `json:"loss_history"`
	FinalLoss       float64   `json:"final_loss"`
	ComputationTime float64   `json:"computation_time"` // seconds

	StabilityOK bool `json:"stability_ok"`  // K >= Kc
	NoTensionOK bool `json:"no_tension_ok"` // sigma <= 0
}

// Assemble packages a finished run. It copies history and never fails.
func Assemble(in Input, p Params, st State, history []float64, elapsed time.Duration) Result {
	res := Result{
		Status:          StatusExhausted,
		Input:           in,
		Params:          p,
		A:               st.A,
		K:               st.K,
		Sigma:           st.Sigma,
		Physics:         st,
		LossHistory:     slices.Clone(history),
		ComputationTime: elapsed.Seconds(),
		StabilityOK:     st.K >= in.Kc,
		NoTensionOK:     st.Sigma <= 0,
	}
	if res.LossHistory == nil {
		res.LossHistory = []float64{}
	}
	if len(history) > 0 {
		res.FinalLoss = history[len(history)-1]
	}
	if in.Seed != nil {
		seed := *in.Seed
		res.Input.Seed = &seed
	}
	return res
}

// Feasible reports whether both constraints hold.
func (r Result) Feasible() bool {
	return r.StabilityOK && r.NoTensionOK
}
