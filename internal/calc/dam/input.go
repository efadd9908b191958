package dam

import "math"

// Limits of the accepted engineering constants. They follow the ranges the
// design form has always offered.
const (
	MinHeight = 10.0
	MaxHeight = 300.0
	MaxEpochs = 50000
)

// Input is the immutable design input of one optimization run.
type Input struct {
	H       float64 `json:"H" yaml:"H"`               // dam height, m
	GammaBT float64 `json:"gamma_bt" yaml:"gamma_bt"` // concrete unit weight, T/m3
	GammaN  float64 `json:"gamma_n" yaml:"gamma_n"`   // water unit weight, T/m3
	F       float64 `json:"f" yaml:"f"`               // friction coefficient
	C       float64 `json:"C" yaml:"C"`               // cohesion, T/m2
	Kc      float64 `json:"Kc" yaml:"Kc"`             // required stability factor
	A1      float64 `json:"a1" yaml:"a1"`             // uplift coefficient
	Alpha   float64 `json:"alpha" yaml:"alpha"`       // area penalty weight
	KFactor float64 `json:"k_factor" yaml:"k_factor"` // multiplier on Kc
	Epochs  int     `json:"epochs" yaml:"epochs"`
	Seed    *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// DefaultInput returns the reference constants for a dam of height h.
func DefaultInput(h float64) Input {
	return Input{
		H:       h,
		GammaBT: 2.4,
		GammaN:  1.0,
		F:       0.7,
		C:       0.5,
		Kc:      1.2,
		A1:      0.6,
		Alpha:   0.01,
		KFactor: 1.0,
		Epochs:  5000,
	}
}

type bound struct {
	field    string
	value    float64
	min, max float64
}

// Validate rejects any field outside its physical range before a run starts.
func (in Input) Validate() error {
	return check(append(in.Site().bounds(),
		bound{"Kc", in.Kc, 1.0, 2.0},
		bound{"alpha", in.Alpha, 0, 10},
		bound{"k_factor", in.KFactor, 0.5, 3},
		bound{"epochs", float64(in.Epochs), 0, MaxEpochs},
	))
}

// Validate applies the same ranges as Input.Validate to the site constants
// alone, for callers that evaluate a shape without running the optimizer.
func (s Site) Validate() error {
	return check(s.bounds())
}

func (s Site) bounds() []bound {
	return []bound{
		{"H", s.H, MinHeight, MaxHeight},
		{"gamma_bt", s.GammaBT, 2.0, 3.0},
		{"gamma_n", s.GammaN, 0.9, 1.1},
		{"f", s.F, 0.3, 0.9},
		{"C", s.C, 0, 10},
		{"a1", s.A1, 0, 1},
	}
}

func check(bounds []bound) error {
	for _, b := range bounds {
		if math.IsNaN(b.value) || b.value < b.min || b.value > b.max {
			return &InputError{Field: b.field, Value: b.value, Min: b.min, Max: b.max}
		}
	}
	return nil
}

// Site returns the physical constants consumed by Evaluate.
func (in Input) Site() Site {
	return Site{H: in.H, GammaBT: in.GammaBT, GammaN: in.GammaN, F: in.F, C: in.C, A1: in.A1}
}

// Objective returns the penalty objective configured by this input.
func (in Input) Objective() Objective {
	return Objective{Kc: in.Kc, KFactor: in.KFactor, Alpha: in.Alpha}
}
