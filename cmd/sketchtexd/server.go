package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"sketchtex/internal/run"
)

// maxUploadBytes bounds the accepted image size.
const maxUploadBytes = 20 << 20

type apiServer struct {
	session *run.Session
}

func newServer(session *run.Session) *apiServer {
	return &apiServer{session: session}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.handleStartRun)
	mux.HandleFunc("/api/runs/", s.handleRunSubpath)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return withCORS(mux)
}

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

// handleStartRun accepts the diagram either as a multipart form field
// named "image" or as the raw request body. Starting a run supersedes
// any run already in flight.
func (s *apiServer) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := readImage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runID := s.session.StartRun(raw)
	log.Printf("started run %s (%d image bytes)", runID, len(raw))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"runId": runID,
		"steps": run.Steps,
	})
}

func readImage(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(r.Body)
}

// handleRunSubpath dispatches /api/runs/{id}/watch and /api/runs/{id}/result.
func (s *apiServer) handleRunSubpath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	runID, action, _ := strings.Cut(rest, "/")
	if runID == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	switch action {
	case "watch":
		s.handleWatch(w, r, runID)
	case "result":
		s.handleResult(w, r, runID)
	default:
		http.NotFound(w, r)
	}
}

func (s *apiServer) handleResult(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result, ok := s.session.Result(runID)
	if !ok {
		http.Error(w, "run not finished or unknown", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":        result.State,
		"failureCause": result.FailureCause,
		"sourceCode":   result.Artifact.SourceCode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
