package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/change-analysis-service/internal/delivery/http/request"
	"github.com/user/change-analysis-service/internal/delivery/http/response"
	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
	"github.com/user/change-analysis-service/internal/usecase"
	"github.com/user/change-analysis-service/pkg/metrics"
)

// maxBodyBytes bounds request bodies, which may carry two base64 screenshots.
const maxBodyBytes = 32 << 20

type Handler struct {
	analyzer  usecase.ChangeAnalyzer
	extractor repository.PageExtractor
	jobs      usecase.JobManager
	capturer  repository.SnapshotCapturer
}

// NewHandler wires the HTTP handlers. jobs and capturer may be nil, in which
// case their endpoints answer 503.
func NewHandler(analyzer usecase.ChangeAnalyzer, extractor repository.PageExtractor, jobs usecase.JobManager, capturer repository.SnapshotCapturer) *Handler {
	return &Handler{
		analyzer:  analyzer,
		extractor: extractor,
		jobs:      jobs,
		capturer:  capturer,
	}
}

func (h *Handler) HandleAnalyzeChange(w http.ResponseWriter, r *http.Request) {
	report, ok := h.analyze(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, report.Result)
}

func (h *Handler) HandleChangeReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.analyze(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) (*entity.Report, bool) {
	req, ok := h.decodeChange(w, r)
	if !ok {
		return nil, false
	}

	input := req.Input()
	slog.Info("Analyzing change", "url", input.URL, "domain", input.Domain)
	report, err := h.analyzer.Analyze(r.Context(), input)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			h.writeJSON(w, http.StatusUnprocessableEntity, response.ValidationErrorResponse{Error: err.Error()})
			return nil, false
		}
		slog.Error("Failed to analyze change", "url", input.URL, "error", err)
		h.writeJSONError(w, "Internal error during analysis", http.StatusInternalServerError)
		return nil, false
	}
	return report, true
}

func (h *Handler) HandleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.writeJSONError(w, "Job queue is not available", http.StatusServiceUnavailable)
		return
	}
	req, ok := h.decodeChange(w, r)
	if !ok {
		return
	}

	jobID, err := h.jobs.Submit(r.Context(), req.Input())
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			h.writeJSON(w, http.StatusUnprocessableEntity, response.ValidationErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("Failed to submit job", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.SubmitJobResponse{
		Status:  "success",
		Message: "Change submitted for analysis",
		JobID:   jobID,
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.writeJSONError(w, "Job queue is not available", http.StatusServiceUnavailable)
		return
	}
	jobID := chi.URLParam(r, "jobID")

	status, err := h.jobs.GetStatus(r.Context(), jobID)
	if err != nil {
		slog.Error("Failed to get job status", "job_id", jobID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if status.CurrentStatus == entity.JobNotFound {
		h.writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) HandleCaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.capturer == nil {
		h.writeJSONError(w, "Page capture is disabled", http.StatusServiceUnavailable)
		return
	}

	var req request.CaptureSnapshotRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		h.writeJSONError(w, "Invalid URL format", http.StatusBadRequest)
		return
	}

	start := time.Now()
	snap, err := h.capturer.Capture(r.Context(), req.URL)
	if err != nil {
		metrics.CaptureDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		slog.Warn("Page capture failed", "url", req.URL, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, repository.ErrCaptureTimeout) {
			status = http.StatusGatewayTimeout
		}
		h.writeJSONError(w, err.Error(), status)
		return
	}
	metrics.CaptureDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	h.writeJSON(w, http.StatusOK, response.SnapshotResponse{
		ID:             snap.ID,
		URL:            snap.URL,
		DOM:            snap.DOM,
		Screenshot:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(snap.Screenshot),
		HTTPStatusCode: snap.HTTPStatusCode,
		ResponseTimeMS: snap.ResponseTimeMS,
		CapturedAt:     snap.CapturedAt,
	})
}

func (h *Handler) HandleExtractHTML(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var req request.ExtractHTMLRequest
	if err := dec.Decode(&req); err != nil {
		h.writeDecodeError(w, err)
		return
	}
	if invalid := req.Invalid(); len(invalid) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, response.ValidationErrorResponse{
			Error:  "Invalid input: fields are missing or out of range",
			Fields: invalid,
		})
		return
	}

	page := h.extractor.ExtractPage(req.HTML, req.Options())
	h.writeJSON(w, http.StatusOK, response.ExtractHTMLResponse{
		Text:     page.Text,
		Metadata: page.Metadata,
		Stats:    page.Metadata.Stats,
	})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleChangesHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "change-analysis"})
}

// decodeChange reads the body strictly: unknown or missing fields are 422.
func (h *Handler) decodeChange(w http.ResponseWriter, r *http.Request) (*request.AnalyzeChangeRequest, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var req request.AnalyzeChangeRequest
	if err := dec.Decode(&req); err != nil {
		h.writeDecodeError(w, err)
		return nil, false
	}

	if missing := req.Missing(); len(missing) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, response.ValidationErrorResponse{
			Error:  "Invalid input: required fields are missing or empty",
			Fields: missing,
		})
		return nil, false
	}
	return &req, true
}

// writeDecodeError maps a strict decode failure to 422, 413 or 400.
func (h *Handler) writeDecodeError(w http.ResponseWriter, err error) {
	if strings.HasPrefix(err.Error(), "json: unknown field") {
		h.writeJSON(w, http.StatusUnprocessableEntity, response.ValidationErrorResponse{Error: err.Error()})
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeJSONError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
