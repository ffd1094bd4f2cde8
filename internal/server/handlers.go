package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Healthy"})
}

func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	if limit := s.config.Server.MaxUploadBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sourceType := r.FormValue("source_type")
	if _, err := models.ParseSourceType(sourceType); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	filename := strings.TrimSpace(r.FormValue("filename"))
	if filename == "" {
		filename = header.Filename
	}
	s.logger.Debug("ingest request",
		zap.String("filename", filename),
		zap.String("source_type", sourceType),
		zap.Int64("size", header.Size),
		zap.String("request_id", middleware.GetReqID(r.Context())))

	resp, err := s.indexer.Ingest(r.Context(), indexer.Upload{
		Reader:     file,
		Filename:   filename,
		SourceType: sourceType,
	})
	if err != nil {
		body := map[string]any{}
		if resp != nil {
			body["job_id"] = resp.JobID
			body["status"] = resp.Status
		}
		s.respondClassified(w, r, err, body)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.ledger.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			s.respondError(w, http.StatusNotFound, "job not found")
			return
		}
		s.respondClassified(w, r, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	resp, err := s.engine.Query(r.Context(), &req)
	if err != nil {
		s.respondClassified(w, r, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.Status(r.Context()))
}

// Status reports backend health and local disk use. Backend failures are
// reported in the result rather than returned.
func (s *Server) Status(ctx context.Context) models.Status {
	emb, vs := s.engine.Status(ctx)
	status := models.Status{
		Embedding: emb,
		Vector:    vs,
		Jobs:      models.JobsStatus{Backend: s.ledger.Backend()},
		Storage: models.StorageStatus{
			UploadDir:    s.config.Storage.UploadDir,
			DatabasePath: s.config.Storage.DatabasePath,
		},
	}
	files, n, err := storage.PathStats(s.config.Storage.UploadDir)
	if err != nil {
		s.logger.Warn("status: upload dir stats failed", zap.Error(err))
	}
	status.Storage.PendingFiles, status.Storage.UploadBytes = files, n
	if dbBytes, err := storage.DatabaseBytes(s.config.Storage.DatabasePath); err == nil {
		status.Storage.DatabaseBytes = dbBytes
	}
	return status
}

// statusFor maps an error class to an HTTP status and the message shown to
// clients. Internal errors are never echoed.
func statusFor(err error) (int, string) {
	switch models.Classify(err) {
	case models.ClassClientInput:
		return http.StatusBadRequest, err.Error()
	case models.ClassTooLarge:
		return http.StatusRequestEntityTooLarge, err.Error()
	case models.ClassParsing:
		return http.StatusUnprocessableEntity, err.Error()
	case models.ClassDependencyUnavailable:
		return http.StatusServiceUnavailable, err.Error()
	case models.ClassNotFound:
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) respondClassified(w http.ResponseWriter, r *http.Request, err error, body map[string]any) {
	status, msg := statusFor(err)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request failed", fields...)
	}
	if body == nil {
		body = map[string]any{}
	}
	body["error"] = msg
	s.respondJSON(w, status, body)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
