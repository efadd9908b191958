package dam

import (
	"fmt"
	"math"
)

// Epsilon is the smallest base width accepted before the section is
// considered degenerate.
const Epsilon = 1e-9

// Site holds the site and material constants of a cross-section.
type Site struct {
	H       float64 `json:"H"`
	GammaBT float64 `json:"gamma_bt"`
	GammaN  float64 `json:"gamma_n"`
	F       float64 `json:"f"`
	C       float64 `json:"C"`
	A1      float64 `json:"a1"`
}

// Params is the dimensionless shape triple (n, m, xi).
type Params struct {
	N  float64 `json:"n"`
	M  float64 `json:"m"`
	Xi float64 `json:"xi"`
}

func (p Params) finite() bool {
	return isFinite(p.N) && isFinite(p.M) && isFinite(p.Xi)
}

// Arms are the base width and the lever arms of every load about the base
// centre. They depend on geometry only.
type Arms struct {
	B   float64 `json:"B"`
	LG1 float64 `json:"lG1"`
	LG2 float64 `json:"lG2"`
	Lt  float64 `json:"lt"`
	L2  float64 `json:"l2"`
	L22 float64 `json:"l2_2"`
	L1  float64 `json:"l1"`
}

// State is every mechanical quantity derived from (Site, Params).
type State struct {
	Arms
	G1  float64 `json:"G1"`
	G2  float64 `json:"G2"`
	G   float64 `json:"G"`
	W1  float64 `json:"W1"`
	W21 float64 `json:"W2_1"`
	W22 float64 `json:"W2_2"`
	W2  float64 `json:"W2"`
	Wt  float64 `json:"Wt"`
	P   float64 `json:"P"`
	M0  float64 `json:"M0"`

	Sigma float64 `json:"sigma"`
	Fct   float64 `json:"Fct"`
	Fgt   float64 `json:"Fgt"`
	K     float64 `json:"K"`
	A     float64 `json:"A"`
}

// Geometry computes the base width and moment arms of a section of height h.
func Geometry(h float64, p Params) (Arms, error) {
	u := 1 - p.Xi
	b := h * (p.M + p.N*u)
	if !(b > Epsilon) {
		return Arms{}, fmt.Errorf("%w: B=%g for H=%g n=%g m=%g xi=%g", ErrDegenerateGeometry, b, h, p.N, p.M, p.Xi)
	}
	return Arms{
		B:   b,
		LG1: h * (p.M/6 - p.N*u/2),
		LG2: h * (p.M/2 - p.N*u/6),
		Lt:  h * (p.M + p.N*u) / 6,
		L2:  h * p.M / 2,
		L22: h*p.M/2 + h*p.N*u/6,
		L1:  h / 3,
	}, nil
}

// Evaluate computes dead weight, hydrostatic thrust, uplift and moment
// equilibrium of the two-slope section. It has no state; the same inputs
// always give the same State. Inputs large enough to overflow any of B, M0,
// sigma, K or A yield ErrNumericDivergence instead of a non-finite State.
func Evaluate(s Site, p Params) (State, error) {
	arms, err := Geometry(s.H, p)
	if err != nil {
		return State{}, err
	}
	h, h2 := s.H, s.H*s.H
	u := 1 - p.Xi

	var st State
	st.Arms = arms
	st.G1 = 0.5 * s.GammaBT * p.M * h2
	st.G2 = 0.5 * s.GammaBT * p.N * h2 * u * u
	st.G = st.G1 + st.G2
	st.W1 = 0.5 * s.GammaN * h2
	st.W21 = s.GammaN * p.N * u * p.Xi * h2
	st.W22 = 0.5 * s.GammaN * p.N * h2 * u * u
	st.W2 = st.W21 + st.W22
	st.Wt = 0.5 * s.GammaN * s.A1 * h * (p.M*h + p.N*h*u)
	st.P = st.G + st.W2 - st.Wt

	st.M0 = -st.G1*arms.LG1 - st.G2*arms.LG2 + st.Wt*arms.Lt -
		st.W21*arms.L2 - st.W22*arms.L22 + st.W1*arms.L1

	// extreme fibre stress at the upstream edge
	st.Sigma = st.P/arms.B - 6*st.M0/(arms.B*arms.B)

	st.Fct = s.F*(st.G+st.W2-st.Wt) + s.C*h*(p.M+p.N*u)
	st.Fgt = 0.5 * s.GammaN * h2
	st.K = st.Fct / st.Fgt
	st.A = 0.5 * h2 * (p.M + p.N*u*u)

	for _, q := range []struct {
		name string
		v    float64
	}{{"B", st.B}, {"M0", st.M0}, {"sigma", st.Sigma}, {"K", st.K}, {"A", st.A}} {
		if !isFinite(q.v) {
			return State{}, fmt.Errorf("%w: %s=%g for H=%g n=%g m=%g xi=%g", ErrNumericDivergence, q.name, q.v, h, p.N, p.M, p.Xi)
		}
	}
	return st, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
