// Package httpapi exposes the ingestion pipeline and chat engine over a
// small JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/engine"
	"github.com/docchat/docchat/internal/pipeline"
)

// maxUploadBytes caps multipart upload memory buffering.
const maxUploadBytes = 64 << 20

// Server handles document upload and chat requests.
type Server struct {
	coord   *pipeline.Coordinator
	logger  *slog.Logger
	tempDir string
}

// NewServer creates the API server around a pipeline coordinator.
func NewServer(coord *pipeline.Coordinator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	tempDir := filepath.Join(os.TempDir(), "docchat-uploads")
	os.MkdirAll(tempDir, 0o755)
	return &Server{coord: coord, logger: logger, tempDir: tempDir}
}

// Handler returns the route mux wrapped with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	return withCORS(mux)
}

type uploadResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Chunks  int    `json:"chunks,omitempty"`
}

// handleUpload receives a multipart file, stages it in a temp file, runs
// ingestion, and removes the temp file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Message: fmt.Sprintf("invalid multipart request: %v", err),
			Status:  "error",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Message: "missing file field",
			Status:  "error",
		})
		return
	}
	defer file.Close()

	// The loader picks its parser by extension, so the temp file keeps
	// the uploaded file's extension.
	tempPath := filepath.Join(s.tempDir, uuid.New().String()+filepath.Ext(header.Filename))
	out, err := os.Create(tempPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, uploadResponse{
			Message: "failed to stage upload",
			Status:  "error",
		})
		return
	}
	defer os.Remove(tempPath)

	_, err = io.Copy(out, file)
	out.Close()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, uploadResponse{
			Message: "failed to stage upload",
			Status:  "error",
		})
		return
	}

	result, err := s.coord.Ingest(r.Context(), tempPath)
	if err != nil {
		s.logger.Warn("Ingestion failed", "file", header.Filename, "error", err)
		status := http.StatusUnprocessableEntity
		if errors.Is(err, engine.ErrBusy) {
			status = http.StatusConflict
		}
		writeJSON(w, status, uploadResponse{
			Message: fmt.Sprintf("Processing failed: %v", err),
			Status:  "error",
		})
		return
	}

	s.logger.Info("Document ingested", "file", header.Filename, "chunks", result.Chunks)
	writeJSON(w, http.StatusOK, uploadResponse{
		Message: "File processed successfully",
		Status:  "success",
		Chunks:  result.Chunks,
	})
}

type chatRequest struct {
	Question string   `json:"question"`
	History  []string `json:"history"`
}

type chatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	History []string `json:"updated_history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleChat answers one question with the flat wire history.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	result, err := s.coord.Chat(r.Context(), req.Question, req.History)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotInitialized):
			// Actionable and distinct from a generation failure.
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			s.logger.Error("Chat failed", "error", err)
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:  result.Answer,
		Sources: result.Sources,
		History: result.History,
	})
}

type statusResponse struct {
	State  string `json:"state"`
	Ready  bool   `json:"ready"`
	Chunks int    `json:"chunks"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.coord.Status()
	writeJSON(w, http.StatusOK, statusResponse{State: st.State, Ready: st.Ready, Chunks: st.Chunks})
}

type healthResponse struct {
	Status    string `json:"status"`
	Engine    string `json:"engine"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Engine:    s.coord.Status().State,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// withCORS allows browser extensions and local UIs to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
