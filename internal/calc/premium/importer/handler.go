package importer

import (
	"encoding/json"
	"errors"
	"net/http"

	"DamOpt/internal/calc/premium/batch"
	"DamOpt/internal/logging"
)

// maxUpload bounds the multipart body.
const maxUpload = 10 << 20

type Handler struct {
	Runner *batch.Runner
}

type ImportResult struct {
	Count   int          `json:"count"`
	Rows    []int        `json:"rows"`
	Items   []batch.Item `json:"items"`
	Skipped []RowError   `json:"skipped,omitempty"`
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	sheet, err := Parse(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(sheet.Inputs) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(ImportResult{Items: []batch.Item{}, Skipped: sheet.Errors})
		return
	}

	items, err := h.Runner.Run(r.Context(), sheet.Inputs)
	if err != nil {
		if errors.Is(err, batch.ErrEmpty) || len(sheet.Inputs) > batch.MaxItems {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logging.New("importer").Error("import aborted", "err", err)
		http.Error(w, "Import aborted", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ImportResult{
		Count:   len(items),
		Rows:    sheet.Rows,
		Items:   items,
		Skipped: sheet.Errors,
	})
}
