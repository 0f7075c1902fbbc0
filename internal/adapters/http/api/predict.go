package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/lapprice/internal/adapters/http/site"
	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/domain/types"
)

const maxPredictBody = 1 << 20

// formFields lists the inputs of the prediction form in display order.
var formFields = []string{
	model.ColCompany, model.ColTypeName, model.ColInches, model.ColScreenResolution, model.ColCPU,
	model.ColRAM, model.ColMemory, model.ColGPU, model.ColOpSys, model.ColWeight,
}

// PredictHandler serves the HTML form and the JSON prediction endpoint.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandleForm handles GET / and renders an empty form.
func (h *PredictHandler) HandleForm(w http.ResponseWriter, _ *http.Request) {
	_ = site.RenderForm(w, http.StatusOK, site.FormPage{})
}

// HandleFormSubmit handles POST /predict. Failures are rendered next to
// the submitted values.
func (h *PredictHandler) HandleFormSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_form"

	if err := r.ParseForm(); err != nil {
		_ = site.RenderForm(w, http.StatusBadRequest, site.FormPage{Error: "Prediction failed: " + userMessage(err)})
		return
	}
	values := make(map[string]string, len(formFields))
	for _, f := range formFields {
		values[f] = strings.TrimSpace(r.PostFormValue(f))
	}
	page := site.FormPage{Form: displayValues(values)}

	rec, err := recordFromForm(op, values)
	var out []float64
	if err == nil {
		out, err = h.deps.Predict(r.Context(), []model.RawRecord{rec})
	}
	if err != nil {
		status, _ := classify(err)
		page.Error = "Prediction failed: " + userMessage(err)
		_ = site.RenderForm(w, status, page)
		return
	}

	price := math.Round(out[0]*100) / 100
	page.Prediction = &price
	_ = site.RenderForm(w, http.StatusOK, page)
}

// HandleAPIPredict handles POST /api/predict.
func (h *PredictHandler) HandleAPIPredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"

	var req types.PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("no records")))
		return
	}
	for i := range req.Records {
		req.Records[i].RAM, req.Records[i].Weight = normalizeUnits(req.Records[i].RAM, req.Records[i].Weight)
	}

	out, err := h.deps.Predict(r.Context(), req.Records)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, WrapKind(op, err, err))
		return
	}
	writeJSON(w, http.StatusOK, types.PredictResponse{Predictions: out})
}

// recordFromForm requires every field and appends the GB and kg units when
// the user typed a bare number.
func recordFromForm(op string, v map[string]string) (model.RawRecord, error) {
	for _, f := range formFields {
		if v[f] == "" {
			return model.RawRecord{}, WrapKind(op, ErrBadRequest, fmt.Errorf("missing %s", f))
		}
	}
	inches, err := strconv.ParseFloat(v[model.ColInches], 64)
	if err != nil {
		return model.RawRecord{}, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid Inches %q", v[model.ColInches]))
	}
	ram, weight := normalizeUnits(v[model.ColRAM], v[model.ColWeight])
	return model.RawRecord{
		Company:          v[model.ColCompany],
		TypeName:         v[model.ColTypeName],
		Inches:           inches,
		ScreenResolution: v[model.ColScreenResolution],
		CPU:              v[model.ColCPU],
		RAM:              ram,
		Memory:           v[model.ColMemory],
		GPU:              v[model.ColGPU],
		OpSys:            v[model.ColOpSys],
		Weight:           weight,
	}, nil
}

func normalizeUnits(ram, weight string) (string, string) {
	if ram != "" && !strings.Contains(strings.ToUpper(ram), "GB") {
		ram += "GB"
	}
	if weight != "" && !strings.Contains(strings.ToLower(weight), "kg") {
		weight += "kg"
	}
	return ram, weight
}

// displayValues strips the units again so the form shows what was typed.
func displayValues(v map[string]string) map[string]string {
	out := make(map[string]string, len(v))
	for k, s := range v {
		out[k] = s
	}
	out[model.ColRAM] = strings.ReplaceAll(out[model.ColRAM], "GB", "")
	out[model.ColWeight] = strings.ReplaceAll(out[model.ColWeight], "kg", "")
	return out
}
