package dam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"DamOpt/internal/logging"
)

// Saver persists finished runs.
type Saver interface {
	Insert(ctx context.Context, res Result) (int64, error)
}

type Handler struct {
	Store   Saver // optional; results are not persisted when nil
	Options Options
	Timeout time.Duration
}

type OptimizeResponse struct {
	ID     int64  `json:"id,omitempty"`
	Result Result `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	input := DefaultInput(0)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	res, err := Optimize(ctx, input, h.Options)
	if err != nil {
		var div *DivergenceError
		switch {
		case errors.As(err, &div):
			writeJSON(w, http.StatusUnprocessableEntity, OptimizeResponse{Result: res, Error: err.Error()})
		case errors.Is(err, ErrCanceled):
			writeJSON(w, http.StatusServiceUnavailable, OptimizeResponse{Result: res, Error: err.Error()})
		default:
			WriteError(w, err)
		}
		return
	}

	resp := OptimizeResponse{Result: res}
	if h.Store != nil {
		id, err := h.Store.Insert(r.Context(), res)
		if err != nil {
			logging.New("dam").Error("save result", "run_id", res.RunID, "err", err)
			http.Error(w, "Storage error", http.StatusInternalServerError)
			return
		}
		resp.ID = id
	}
	writeJSON(w, http.StatusOK, resp)
}

// EvaluateRequest is a standalone physics query: site constants, a shape
// triple and, optionally, the objective weights used to report loss terms.
type EvaluateRequest struct {
	Site
	Params
	Kc      float64 `json:"Kc"`
	KFactor float64 `json:"k_factor"`
	Alpha   float64 `json:"alpha"`
}

type EvaluateResponse struct {
	Physics State  `json:"physics"`
	Loss    Terms  `json:"loss"`
	Figure  Figure `json:"figure"`
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	def := DefaultInput(0)
	req := EvaluateRequest{
		Site:    def.Site(),
		Kc:      def.Kc,
		KFactor: def.KFactor,
		Alpha:   def.Alpha,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := req.Site.Validate(); err != nil {
		WriteError(w, err)
		return
	}
	fig, err := Diagram(req.Site, req.Params)
	if err != nil {
		WriteError(w, err)
		return
	}
	st, err := Evaluate(req.Site, req.Params)
	if err != nil {
		WriteError(w, err)
		return
	}
	obj := Objective{Kc: req.Kc, KFactor: req.KFactor, Alpha: req.Alpha}
	writeJSON(w, http.StatusOK, EvaluateResponse{Physics: st, Loss: obj.Terms(st), Figure: fig})
}

// WriteError maps the package's error taxonomy onto HTTP status codes.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrDegenerateGeometry):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNumericDivergence):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrCanceled):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "Calculation error", http.StatusInternalServerError)
	}
}

// writeJSON encodes before writing the status so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.New("dam").Error("encode response", "err", err)
		http.Error(w, "Encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
