// Package history serves stored optimization runs.
package history

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"DamOpt/internal/logging"
	"DamOpt/internal/repo"

	"github.com/gorilla/mux"
)

type Handler struct {
	Store repo.ResultStore
}

// Summary is the list view of a stored run.
type Summary struct {
	ID          int64   `json:"id"`
	Timestamp   string  `json:"timestamp"`
	RunID       string  `json:"run_id"`
	H           float64 `json:"H"`
	N           float64 `json:"n"`
	M           float64 `json:"m"`
	Xi          float64 `json:"xi"`
	A           float64 `json:"A"`
	K           float64 `json:"K"`
	Sigma       float64 `json:"sigma"`
	StabilityOK bool    `json:"stability_ok"`
	NoTensionOK bool    `json:"no_tension_ok"`
}

func Summarize(r repo.Record) Summary {
	return Summary{
		ID:          r.ID,
		Timestamp:   r.Timestamp.Format(time.RFC3339),
		RunID:       r.RunID,
		H:           r.H,
		N:           r.N,
		M:           r.M,
		Xi:          r.Xi,
		A:           r.A,
		K:           r.K,
		Sigma:       r.Sigma,
		StabilityOK: r.StabilityOK,
		NoTensionOK: r.NoTensionOK,
	}
}

// ParseFilter reads the optional h and min_k query parameters.
func ParseFilter(r *http.Request) (repo.Filter, error) {
	var f repo.Filter
	q := r.URL.Query()
	if v := q.Get("h"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, err
		}
		f.H = &h
	}
	if v := q.Get("min_k"); v != "" {
		k, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, err
		}
		f.MinK = &k
	}
	return f, nil
}

// PathID extracts the {id} route variable.
func PathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r)
	if err != nil {
		http.Error(w, "Invalid filter", http.StatusBadRequest)
		return
	}
	records, err := h.Store.Search(r.Context(), f)
	if err != nil {
		logging.New("history").Error("search", "err", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	out := make([]Summary, 0, len(records))
	for _, rec := range records {
		out = append(out, Summarize(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	rec, found, err := h.Store.Get(r.Context(), id)
	if err != nil {
		logging.New("history").Error("get", "id", id, "err", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	deleted, err := h.Store.Delete(r.Context(), id)
	if err != nil {
		logging.New("history").Error("delete", "id", id, "err", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
