package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/pipeline"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

func (s *Server) jobFor(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFor(w, r)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	body := map[string]any{
		"job_id":   snap.ID,
		"filename": snap.Filename,
		"mode":     snap.Mode,
		"analyzer": snap.Analyzer,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"progress": snap.Progress,
	}
	if snap.Status == pipeline.StatusDone {
		body["result_url"] = fmt.Sprintf("/api/analyze/%s/result", snap.ID)
	}
	writeJSON(w, http.StatusOK, body)
}

// resultFor returns a finished job's result. Cancelled jobs return what
// they gathered, flagged as partial.
func (s *Server) resultFor(w http.ResponseWriter, r *http.Request) (*pipeline.Job, report.AnalysisResult, bool) {
	job := s.jobFor(w, r)
	if job == nil {
		return nil, report.AnalysisResult{}, false
	}
	status := job.Snapshot().Status
	res, ok := job.Result()
	if !ok || (status != pipeline.StatusDone && status != pipeline.StatusCancelled) {
		jsonError(w, fmt.Sprintf("job is %s", status), http.StatusConflict)
		return nil, report.AnalysisResult{}, false
	}
	if status == pipeline.StatusCancelled {
		w.Header().Set("X-Result-Partial", "true")
	}
	return job, res, true
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if _, res, ok := s.resultFor(w, r); ok {
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	job, res, ok := s.resultFor(w, r)
	if !ok {
		return
	}
	base := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"-highlights.json"))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(map[string]any{
		"job_id":   job.ID,
		"filename": job.Filename,
		"title":    job.Title,
		"result":   res,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	switch err := s.orchestrator.Cancel(id); {
	case errors.Is(err, pipeline.ErrJobNotFound):
		jsonError(w, "job not found", http.StatusNotFound)
	case errors.Is(err, pipeline.ErrJobFinished):
		jsonError(w, "job already finished", http.StatusConflict)
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		snap := s.orchestrator.GetJob(id).Snapshot()
		writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id, "status": snap.Status})
	}
}
