package report

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/repo"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample(t *testing.T, epochs int) dam.Result {
	t.Helper()
	in := dam.DefaultInput(60)
	in.Epochs = epochs
	p := dam.Params{N: 0.12, M: 0.85, Xi: 0.35}
	st, err := dam.Evaluate(in.Site(), p)
	require.NoError(t, err)
	hist := make([]float64, epochs)
	for i := range hist {
		hist[i] = 1e6 * math.Exp(-float64(i)/50)
	}
	res := dam.Assemble(in, p, st, hist, 1200*time.Millisecond)
	res.RunID = "run-1"
	return res
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities()
	require.Len(t, caps, 2)
	for _, c := range caps {
		require.True(t, c.OK, c.Format)
	}

	r, err := Lookup(".XLSX")
	require.NoError(t, err)
	require.Equal(t, "xlsx", r.Format())

	_, err = Lookup("docx")
	require.Error(t, err)
}

func TestExcelRender(t *testing.T) {
	res := sample(t, 120)
	var buf bytes.Buffer
	require.NoError(t, Excel{}.Render(&buf, res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{resultsSheet, lossSheet, chartSheet}, f.GetSheetList())

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Equal(t, []string{"Parameter", "Value"}, rows[0])
	require.Equal(t, []string{"Dam height (H)", "60.00 m"}, rows[1])
	require.Equal(t, "Parameter ξ", rows[10][0])
	require.Equal(t, "0.3500", rows[10][1])

	loss, err := f.GetRows(lossSheet)
	require.NoError(t, err)
	require.Len(t, loss, 121)
	require.Equal(t, []string{"0", "1000000"}, loss[1])
}

func TestExcelRenderWithoutHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Excel{}.Render(&buf, sample(t, 0)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{resultsSheet, lossSheet}, f.GetSheetList())
}

func TestPDFRender(t *testing.T) {
	for _, epochs := range []int{0, 3, 5000} {
		var buf bytes.Buffer
		require.NoError(t, PDF{}.Render(&buf, sample(t, epochs)))
		require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "epochs=%d", epochs)
	}
}

func TestPDFRenderUndrawableSection(t *testing.T) {
	res := sample(t, 2)
	res.Params = dam.Params{N: math.NaN(), M: math.NaN(), Xi: math.NaN()}
	var buf bytes.Buffer
	require.NoError(t, PDF{}.Render(&buf, res))
	require.NotZero(t, buf.Len())
}

func TestRowsAreASCIIForPDF(t *testing.T) {
	res := sample(t, 1)
	for _, r := range append(InputRows(res, true), OutputRows(res, true)...) {
		for _, c := range r.Label + r.Value {
			require.Less(t, c, rune(128), "%q", r.Label+r.Value)
		}
	}
	require.Len(t, Verdicts(res), 2)
}

func TestHandlerDownload(t *testing.T) {
	store := repo.NewMemoryStore()
	id, err := store.Insert(context.Background(), sample(t, 10))
	require.NoError(t, err)

	h := &Handler{Store: store}
	r := mux.NewRouter()
	r.HandleFunc("/results/{id:[0-9]+}/report.{format}", h.Download)
	r.HandleFunc("/report/{format}", h.Generate).Methods(http.MethodPost)
	r.HandleFunc("/reports/capabilities", h.Capabilities)

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}
	base := "/results/" + strconv.FormatInt(id, 10)

	rec := get(base + "/report.pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "dam_report_")

	rec = get(base + "/report.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, Excel{}.ContentType(), rec.Header().Get("Content-Type"))

	require.Equal(t, http.StatusNotFound, get(base+"/report.docx").Code)
	require.Equal(t, http.StatusNotFound, get("/results/999/report.pdf").Code)

	rec = get("/reports/capabilities")
	var caps []Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &caps))
	require.Len(t, caps, 2)

	body, err := json.Marshal(sample(t, 5))
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/report/pdf", strings.NewReader(string(body))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/report/pdf", strings.NewReader(`{"H": 1e160, "n": 0.1, "m": 1, "xi": 0.5}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
