package batch

import (
	"encoding/json"
	"errors"
	"net/http"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/logging"
)

type Handler struct {
	Runner *Runner
}

type Request struct {
	Items []json.RawMessage `json:"items"`
}

type Response struct {
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

// DecodeInputs fills each raw item over the reference constants so a
// request only needs to carry what differs.
func DecodeInputs(raw []json.RawMessage) ([]dam.Input, error) {
	out := make([]dam.Input, 0, len(raw))
	for _, msg := range raw {
		in := dam.DefaultInput(0)
		if err := json.Unmarshal(msg, &in); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	inputs, err := DecodeInputs(req.Items)
	if err != nil {
		http.Error(w, "Invalid item", http.StatusBadRequest)
		return
	}
	h.run(w, r, inputs)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, inputs []dam.Input) {
	items, err := h.Runner.Run(r.Context(), inputs)
	if err != nil {
		if errors.Is(err, ErrEmpty) || len(inputs) > MaxItems {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logging.New("batch").Error("batch aborted", "err", err)
		http.Error(w, "Batch aborted", http.StatusInternalServerError)
		return
	}
	WriteResponse(w, items)
}

func WriteResponse(w http.ResponseWriter, items []Item) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{Count: len(items), Items: items})
}
