package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/parser"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/pipeline"
)

// handleAnalyze parses the upload synchronously so that malformed or empty
// reports are rejected with 400, then queues the analysis.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	modeName := r.FormValue("mode")
	if modeName == "" {
		modeName = s.cfg.AnalyzerMode
	}
	mode, err := analyzer.ParseMode(modeName)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	strict := s.cfg.StrictParse
	if v := r.FormValue("strict"); v != "" {
		if strict, err = strconv.ParseBool(v); err != nil {
			jsonError(w, "strict must be a boolean", http.StatusBadRequest)
			return
		}
	}

	doc, err := parser.Parse(bytes.NewReader(data), filename, parser.Options{PdftotextFallback: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		s.log.Info("rejected upload", "filename", filename, "error", err)
		jsonError(w, "parse: "+err.Error(), http.StatusBadRequest)
		return
	}
	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		doc.Title = title
	}

	job := pipeline.NewJob(filename, doc, mode, strict)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/analyze/%s/status", job.ID),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
