package dam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func referenceSite(h float64) Site {
	return DefaultInput(h).Site()
}

func TestEvaluateRectangularSection(t *testing.T) {
	// n = 0 leaves a plain triangle of base m*H, easy to check by hand.
	st, err := Evaluate(referenceSite(10), Params{N: 0, M: 1, Xi: 0.5})
	require.NoError(t, err)

	require.InDelta(t, 10.0, st.B, 1e-12)
	require.InDelta(t, 120.0, st.G1, 1e-9)
	require.Zero(t, st.G2)
	require.InDelta(t, 50.0, st.W1, 1e-9)
	require.InDelta(t, 30.0, st.Wt, 1e-9)
	require.InDelta(t, 90.0, st.P, 1e-9)
	require.InDelta(t, 50.0/3, st.M0, 1e-9)
	require.InDelta(t, 8.0, st.Sigma, 1e-9)
	require.InDelta(t, 1.36, st.K, 1e-12)
	require.InDelta(t, 50.0, st.A, 1e-9)
}

func TestEvaluateReferenceSection(t *testing.T) {
	st, err := Evaluate(referenceSite(60), Params{N: 0.2, M: 2, Xi: 0.4})
	require.NoError(t, err)

	require.InDelta(t, 89.51085795656817, st.Sigma, 1e-9)
	require.InDelta(t, 2.743493333333334, st.K, 1e-12)
	require.InDelta(t, 3729.6, st.A, 1e-9)
	require.InDelta(t, st.G1+st.G2, st.G, 1e-9)
	require.InDelta(t, st.W21+st.W22, st.W2, 1e-9)
	require.InDelta(t, st.Fct/st.Fgt, st.K, 1e-12)
}

func TestEvaluateIsPure(t *testing.T) {
	s := referenceSite(120)
	p := Params{N: 0.1, M: 0.9, Xi: 0.3}
	a, err := Evaluate(s, p)
	require.NoError(t, err)
	b, err := Evaluate(s, p)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEvaluateDegenerate(t *testing.T) {
	_, err := Evaluate(referenceSite(60), Params{N: 0, M: 0, Xi: 0.5})
	require.ErrorIs(t, err, ErrDegenerateGeometry)

	_, err = Evaluate(referenceSite(60), Params{N: math.NaN(), M: 1, Xi: 0.5})
	require.ErrorIs(t, err, ErrDegenerateGeometry)

	// n*(1-xi) cancels m exactly
	_, err = Geometry(60, Params{N: 0.5, M: -0.25, Xi: 0.5})
	require.ErrorIs(t, err, ErrDegenerateGeometry)
}

func TestEvaluateRejectsOverflow(t *testing.T) {
	cases := []struct {
		name string
		site Site
		p    Params
	}{
		{"huge height", referenceSite(1e160), Params{N: 0.1, M: 1, Xi: 0.5}},
		{"huge slope", referenceSite(1), Params{N: 0, M: 1e300, Xi: 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := Evaluate(tc.site, tc.p)
			require.ErrorIs(t, err, ErrNumericDivergence)
			require.Equal(t, State{}, st)
		})
	}
}

func TestSiteValidate(t *testing.T) {
	require.NoError(t, referenceSite(60).Validate())

	err := referenceSite(1e160).Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, "H", ie.Field)

	s := referenceSite(60)
	s.A1 = math.NaN()
	require.ErrorIs(t, s.Validate(), ErrInvalidInput)
}

func TestEvaluateFiniteAcrossFeasibleRange(t *testing.T) {
	for _, h := range []float64{MinHeight, 60, MaxHeight} {
		for _, n := range []float64{0, 0.1, 0.4} {
			for _, m := range []float64{0.5, 2, 4} {
				for _, xi := range []float64{0.01, 0.5, 1} {
					st, err := Evaluate(referenceSite(h), Params{N: n, M: m, Xi: xi})
					require.NoError(t, err)
					for name, v := range map[string]float64{"sigma": st.Sigma, "K": st.K, "A": st.A} {
						require.Truef(t, isFinite(v), "%s not finite at H=%g n=%g m=%g xi=%g", name, h, n, m, xi)
					}
					require.Positive(t, st.A)
				}
			}
		}
	}
}

func TestEvaluateWithGradientMatchesFiniteDifferences(t *testing.T) {
	s := referenceSite(60)
	p := Params{N: 0.2, M: 2, Xi: 0.4}
	_, sens, err := evaluateWithGradient(s, p)
	require.NoError(t, err)

	const step = 1e-6
	shift := func(i int, d float64) Params {
		q := p
		switch i {
		case 0:
			q.N += d
		case 1:
			q.M += d
		case 2:
			q.Xi += d
		}
		return q
	}
	for i := 0; i < 3; i++ {
		hi, err := Evaluate(s, shift(i, step))
		require.NoError(t, err)
		lo, err := Evaluate(s, shift(i, -step))
		require.NoError(t, err)

		require.InEpsilon(t, (hi.Sigma-lo.Sigma)/(2*step), sens.Sigma[i], 1e-5, "dsigma/d%d", i)
		require.InEpsilon(t, (hi.K-lo.K)/(2*step), sens.K[i], 1e-5, "dK/d%d", i)
		require.InEpsilon(t, (hi.A-lo.A)/(2*step), sens.A[i], 1e-5, "dA/d%d", i)
	}
}
