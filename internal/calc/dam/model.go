package dam

import (
	"math"
	"math/rand/v2"
)

// DefaultHidden is the width of both hidden layers.
const DefaultHidden = 32

// Output ranges of the bounding transform.
const (
	nScale  = 0.4
	mScale  = 3.5
	mOffset = 0.5
	xScale  = 0.99
	xOffset = 0.01
)

// Model is the trainable reparameterisation of (n, m, xi): a 1-h-h-3
// perceptron with tanh hidden layers and sigmoid heads, fed the constant 1.
// All weights live in one flat slice so the optimizer can treat them as a
// vector.
type Model struct {
	hidden int
	theta  []float64

	// offsets into theta
	w1, b1, w2, b2, w3, b3 int
}

// activations cached by forward for backward.
type activations struct {
	h1, h2 []float64
	out    [3]float64
}

// NewModel returns a model initialised like a default dense layer:
// U(-1/sqrt(fan_in), 1/sqrt(fan_in)) drawn from a PCG source seeded with seed.
func NewModel(hidden int, seed uint64) *Model {
	if hidden <= 0 {
		hidden = DefaultHidden
	}
	m := &Model{hidden: hidden}
	m.w1 = 0
	m.b1 = m.w1 + hidden
	m.w2 = m.b1 + hidden
	m.b2 = m.w2 + hidden*hidden
	m.w3 = m.b2 + hidden
	m.b3 = m.w3 + 3*hidden
	m.theta = make([]float64, m.b3+3)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	fill := func(from, to int, bound float64) {
		for i := from; i < to; i++ {
			m.theta[i] = (2*rng.Float64() - 1) * bound
		}
	}
	inner := 1 / math.Sqrt(float64(hidden))
	fill(m.w1, m.w2, 1) // fan_in of the first layer is 1
	fill(m.w2, m.w3, inner)
	fill(m.w3, len(m.theta), inner)
	return m
}

// Size is the number of trainable weights.
func (m *Model) Size() int {
	return len(m.theta)
}

// Params runs the model without keeping activations.
func (m *Model) Params() Params {
	p, _ := m.forward()
	return p
}

func (m *Model) forward() (Params, activations) {
	h := m.hidden
	act := activations{h1: make([]float64, h), h2: make([]float64, h)}
	for k := 0; k < h; k++ {
		act.h1[k] = math.Tanh(m.theta[m.w1+k] + m.theta[m.b1+k])
	}
	for j := 0; j < h; j++ {
		z := m.theta[m.b2+j]
		row := m.theta[m.w2+j*h : m.w2+(j+1)*h]
		for k, w := range row {
			z += w * act.h1[k]
		}
		act.h2[j] = math.Tanh(z)
	}
	for i := 0; i < 3; i++ {
		z := m.theta[m.b3+i]
		row := m.theta[m.w3+i*h : m.w3+(i+1)*h]
		for k, w := range row {
			z += w * act.h2[k]
		}
		act.out[i] = sigmoid(z)
	}
	return Params{
		N:  act.out[0] * nScale,
		M:  act.out[1]*mScale + mOffset,
		Xi: act.out[2]*xScale + xOffset,
	}, act
}

// backward writes dLoss/dtheta into grad given dLoss/d(n, m, xi).
func (m *Model) backward(act activations, dp grad3, grad []float64) {
	h := m.hidden
	scales := [3]float64{nScale, mScale, xScale}

	var dz [3]float64
	for i := 0; i < 3; i++ {
		s := act.out[i]
		dz[i] = dp[i] * scales[i] * s * (1 - s)
		grad[m.b3+i] = dz[i]
		for k := 0; k < h; k++ {
			grad[m.w3+i*h+k] = dz[i] * act.h2[k]
		}
	}

	da2 := make([]float64, h)
	for k := 0; k < h; k++ {
		var g float64
		for i := 0; i < 3; i++ {
			g += m.theta[m.w3+i*h+k] * dz[i]
		}
		da2[k] = g * (1 - act.h2[k]*act.h2[k])
	}
	for j := 0; j < h; j++ {
		grad[m.b2+j] = da2[j]
		for k := 0; k < h; k++ {
			grad[m.w2+j*h+k] = da2[j] * act.h1[k]
		}
	}

	for k := 0; k < h; k++ {
		var g float64
		for j := 0; j < h; j++ {
			g += m.theta[m.w2+j*h+k] * da2[j]
		}
		da1 := g * (1 - act.h1[k]*act.h1[k])
		// the input is the constant 1
		grad[m.w1+k] = da1
		grad[m.b1+k] = da1
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
