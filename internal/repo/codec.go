package repo

import (
	"encoding/json"
	"fmt"

	"DamOpt/internal/calc/dam"
)

// EncodeLossHistory serialises the loss trace as a JSON array.
func EncodeLossHistory(h []float64) (string, error) {
	if h == nil {
		h = []float64{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encode loss history: %w", err)
	}
	return string(b), nil
}

func DecodeLossHistory(s string) ([]float64, error) {
	var h []float64
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return nil, fmt.Errorf("decode loss history: %w", err)
	}
	if h == nil {
		h = []float64{}
	}
	return h, nil
}

// restore recomputes the derived fields of a row. Physics is never stored;
// it is rebuilt from the inputs and parameters.
func restore(res *dam.Result) {
	if st, err := dam.Evaluate(res.Site(), res.Params); err == nil {
		res.Physics = st
	}
	res.StabilityOK = res.K >= res.Kc
	res.NoTensionOK = res.Sigma <= 0
	if n := len(res.LossHistory); n > 0 {
		res.FinalLoss = res.LossHistory[n-1]
	}
}
