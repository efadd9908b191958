package dam

import "math"

const (
	// BigPenalty makes a stability deficit dominate the gradient.
	BigPenalty = 1e5
	// SigmaWeight scales the edge-stress penalty.
	SigmaWeight = 100.0
)

// Objective turns a State into the scalar penalty loss.
//
// The sigma term is sigma^2, so compressive stress is penalised as well as
// tension. The search is pulled towards sigma = 0 from both sides, which is
// the intended behaviour.
type Objective struct {
	Kc      float64
	KFactor float64
	Alpha   float64
}

// Terms is the loss broken into its parts.
type Terms struct {
	PenaltyK     float64 `json:"penalty_k"`
	PenaltySigma float64 `json:"penalty_sigma"`
	Area         float64 `json:"area"`
	Total        float64 `json:"total"`
}

func (o Objective) deficit(k float64) float64 {
	return math.Max(o.Kc*o.KFactor-k, 0)
}

// Terms evaluates each penalty for st.
func (o Objective) Terms(st State) Terms {
	d := o.deficit(st.K)
	t := Terms{
		PenaltyK:     BigPenalty * d * d,
		PenaltySigma: SigmaWeight * st.Sigma * st.Sigma,
		Area:         o.Alpha * st.A,
	}
	t.Total = t.PenaltyK + t.PenaltySigma + t.Area
	return t
}

// Loss is Terms(st).Total.
func (o Objective) Loss(st State) float64 {
	return o.Terms(st).Total
}

// gradient is dLoss/d(n, m, xi).
func (o Objective) gradient(st State, sens Sensitivity) grad3 {
	dK := -2 * BigPenalty * o.deficit(st.K)
	dSigma := 2 * SigmaWeight * st.Sigma
	return sens.K.scale(dK).add(sens.Sigma.scale(dSigma)).add(sens.A.scale(o.Alpha))
}
