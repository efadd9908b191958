package dam

import "math"

// AdamW is Adam with decoupled weight decay.
type AdamW struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64

	m, v []float64
	t    int
}

func NewAdamW(size int, lr, weightDecay float64) *AdamW {
	return &AdamW{
		LR:          lr,
		Beta1:       0.9,
		Beta2:       0.999,
		Eps:         1e-8,
		WeightDecay: weightDecay,
		m:           make([]float64, size),
		v:           make([]float64, size),
	}
}

// Step applies one update to theta in place.
func (a *AdamW) Step(theta, grad []float64) {
	a.t++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.t))
	for i, g := range grad {
		theta[i] -= a.LR * a.WeightDecay * theta[i]
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g
		mHat := a.m[i] / bc1
		vHat := a.v[i] / bc2
		theta[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Eps)
	}
}
