package api

import (
	"net/http"

	"github.com/okian/lapprice/internal/domain/model"
)

// TrainHandler triggers training runs and reports their status.
type TrainHandler struct {
	deps Dependencies
}

// NewTrainHandler creates a new train handler.
func NewTrainHandler(deps Dependencies) *TrainHandler {
	return &TrainHandler{deps: deps}
}

// HandleTrain handles POST /train. With ?wait=true it blocks until the run
// finishes and returns the final job.
func (h *TrainHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	const op = "api.train"

	job, err := h.deps.SubmitTraining(r.Context())
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, WrapKind(op, err, err))
		return
	}
	w.Header().Set("Location", "/train/"+job.ID)

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, job)
		return
	}

	done, err := h.deps.WaitJob(r.Context(), job.ID)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, WrapKind(op, err, err))
		return
	}
	status := http.StatusOK
	if done.Status == model.JobFailed {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, done)
}

// HandleGetJob handles GET /train/{id}.
func (h *TrainHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.train_job"

	id := r.PathValue("id")
	job, ok := h.deps.Job(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, job)
}
