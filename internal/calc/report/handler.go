package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/calc/history"
	"DamOpt/internal/logging"
	"DamOpt/internal/repo"

	"github.com/gorilla/mux"
)

type Handler struct {
	Store repo.ResultStore
}

func (h *Handler) Capabilities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Capabilities())
}

// Download renders a stored result; the route supplies {id} and {format}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	renderer, err := Lookup(mux.Vars(r)["format"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	id, ok := history.PathID(r)
	if !ok {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	rec, found, err := h.Store.Get(r.Context(), id)
	if err != nil {
		logging.New("report").Error("load result", "id", id, "err", err)
		http.Error(w, "Storage error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	write(w, renderer, rec.Result, fmt.Sprintf("dam_report_%d", id))
}

// Generate renders a result supplied in the request body.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	renderer, err := Lookup(mux.Vars(r)["format"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var res dam.Result
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := res.Input.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	write(w, renderer, res, "dam_report")
}

func write(w http.ResponseWriter, renderer Renderer, res dam.Result, name string) {
	var buf bytes.Buffer
	if err := renderer.Render(&buf, res); err != nil {
		logging.New("report").Error("render", "format", renderer.Format(), "err", err)
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+renderer.Format()))
	w.Write(buf.Bytes())
}
