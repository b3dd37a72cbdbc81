package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alexboumb/SuperSimpleStocks2/internal/scheduler"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// SchedulerHandler exposes the background jobs
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(sched *scheduler.Scheduler, log *logger.Logger) *SchedulerHandler {
	if log == nil {
		log = logger.Nop()
	}

	return &SchedulerHandler{
		scheduler: sched,
		logger:    log,
	}
}

// Jobs returns the statistics of every registered job, sorted by name
// GET /api/scheduler/jobs
func (h *SchedulerHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	stats := h.scheduler.GetJobStats()

	jobs := make([]scheduler.JobStats, 0, len(stats))
	for _, name := range h.scheduler.GetAllJobs() {
		if s, ok := stats[name]; ok {
			jobs = append(jobs, s)
		}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// History returns the recorded runs of a job, oldest first
// GET /api/scheduler/jobs/{name}/history
func (h *SchedulerHandler) History(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	history, err := h.scheduler.GetJobHistory(name)
	if err != nil {
		h.respondJobError(w, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"job":          name,
		"count":        len(history.Results),
		"success_rate": history.GetSuccessRate(),
		"results":      history.Results,
	})
}

// Run starts a job immediately, outside its schedule
// POST /api/scheduler/jobs/{name}/run
func (h *SchedulerHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.scheduler.RunJob(name); err != nil {
		h.respondJobError(w, err)
		return
	}

	h.logger.WithField("job", name).Info("Job triggered manually")

	respondJSON(w, h.logger, http.StatusAccepted, map[string]interface{}{
		"job":    name,
		"status": "started",
	})
}

func (h *SchedulerHandler) respondJobError(w http.ResponseWriter, err error) {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		respondError(w, h.logger, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, h.logger, http.StatusInternalServerError, err.Error())
}
