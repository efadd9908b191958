package dam

// grad3 holds partial derivatives with respect to (n, m, xi).
type grad3 [3]float64

func (g grad3) add(o grad3) grad3 {
	return grad3{g[0] + o[0], g[1] + o[1], g[2] + o[2]}
}

func (g grad3) scale(k float64) grad3 {
	return grad3{k * g[0], k * g[1], k * g[2]}
}

// product rule for a*b
func prod(a float64, da grad3, b float64, db grad3) grad3 {
	return da.scale(b).add(db.scale(a))
}

// Sensitivity is the closed-form Jacobian of the constrained quantities.
type Sensitivity struct {
	Sigma grad3
	K     grad3
	A     grad3
}

// evaluateWithGradient returns Evaluate's State together with the analytic
// derivatives of sigma, K and A. Values come from Evaluate so the two paths
// never disagree.
func evaluateWithGradient(s Site, p Params) (State, Sensitivity, error) {
	st, err := Evaluate(s, p)
	if err != nil {
		return State{}, Sensitivity{}, err
	}
	h, h2 := s.H, s.H*s.H
	n, xi := p.N, p.Xi
	u := 1 - xi

	// s = m + n*u, the base width over H
	ds := grad3{u, 1, -n}
	dB := ds.scale(h)

	dG1 := grad3{0, 0.5 * s.GammaBT * h2, 0}
	dG2 := grad3{0.5 * s.GammaBT * h2 * u * u, 0, -s.GammaBT * n * h2 * u}
	dW21 := grad3{s.GammaN * u * xi * h2, 0, s.GammaN * n * h2 * (u - xi)}
	dW22 := grad3{0.5 * s.GammaN * h2 * u * u, 0, -s.GammaN * n * h2 * u}
	dWt := ds.scale(0.5 * s.GammaN * s.A1 * h2)
	dP := dG1.add(dG2).add(dW21).add(dW22).add(dWt.scale(-1))

	dLG1 := grad3{-u / 2, 1.0 / 6, n / 2}.scale(h)
	dLG2 := grad3{-u / 6, 0.5, n / 6}.scale(h)
	dLt := ds.scale(h / 6)
	dL2 := grad3{0, h / 2, 0}
	dL22 := grad3{h * u / 6, h / 2, -h * n / 6}

	dM0 := prod(st.G1, dG1, st.LG1, dLG1).scale(-1).
		add(prod(st.G2, dG2, st.LG2, dLG2).scale(-1)).
		add(prod(st.Wt, dWt, st.Lt, dLt)).
		add(prod(st.W21, dW21, st.L2, dL2).scale(-1)).
		add(prod(st.W22, dW22, st.L22, dL22).scale(-1))

	b := st.B
	dSigma := dP.scale(1 / b).
		add(dB.scale(-st.P / (b * b))).
		add(dM0.scale(-6 / (b * b))).
		add(dB.scale(12 * st.M0 / (b * b * b)))

	dK := dP.scale(s.F).add(ds.scale(s.C * h)).scale(1 / st.Fgt)
	dA := grad3{u * u, 1, -2 * n * u}.scale(0.5 * h2)

	return st, Sensitivity{Sigma: dSigma, K: dK, A: dA}, nil
}
