package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/polisight/polisight/internal/document"
	"github.com/polisight/polisight/internal/pipeline"
	"github.com/polisight/polisight/internal/storage"
)

const maxUploadBodySize = 10 << 20 // 10MB

// PolicyAnalyzer abstracts the analysis pipeline for the API layer.
type PolicyAnalyzer interface {
	Analyze(ctx context.Context, data []byte, name string) (pipeline.Report, error)
}

// QuestionAnswerer abstracts Q&A over extracted policy text.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question, contextText string) (string, error)
}

// AnalysisReader is the read side of the stored corpus.
type AnalysisReader interface {
	Get(id int64) (storage.AnalysisRecord, error)
	Recent(limit int) ([]storage.AnalysisRecord, error)
	Count() (int, error)
}

type AnalyzeRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"` // "" for plain text, "base64" for binary uploads
}

type QuestionRequest struct {
	Question string `json:"question"`
}

type AppDeps struct {
	Analyzer PolicyAnalyzer
	Answerer QuestionAnswerer
	Reader   AnalysisReader
	Token    string
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/analyses", handleAnalyze(deps))
		r.Get("/analyses", handleListAnalyses(deps))
		r.Get("/analyses/{id}", handleGetAnalysis(deps))
		r.Post("/analyses/{id}/questions", handleAskQuestion(deps))
	})

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := deps.Reader.Count()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "storage unavailable: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"analyses": count,
		})
	}
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)
		defer r.Body.Close()

		data, name, err := readUpload(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		report, err := deps.Analyzer.Analyze(r.Context(), data, name)
		if errors.Is(err, document.ErrExtraction) {
			httpError(w, http.StatusUnprocessableEntity, "extraction_error", "could not extract text: %v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "analysis failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(report)
	}
}

// readUpload accepts either a multipart form with a "file" field or a JSON
// body with inline (optionally base64-encoded) content.
func readUpload(r *http.Request) ([]byte, string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBodySize); err != nil {
			return nil, "", fmt.Errorf("invalid multipart form: %w", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("file field is required: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", fmt.Errorf("reading upload: %w", err)
		}
		return data, header.Filename, nil
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", fmt.Errorf("invalid request body: %w", err)
	}
	if req.Content == "" {
		return nil, "", fmt.Errorf("content is required")
	}

	if req.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 content")
		}
		return decoded, req.Name, nil
	}
	return []byte(req.Content), req.Name, nil
}

func handleListAnalyses(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		records, err := deps.Reader.Recent(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list analyses: %v", err)
			return
		}

		if records == nil {
			records = []storage.AnalysisRecord{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}
}

func handleGetAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid analysis id")
			return
		}

		rec, err := deps.Reader.Get(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get analysis: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
	}
}

func handleAskQuestion(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid analysis id")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)
		var req QuestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		rec, err := deps.Reader.Get(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get analysis: %v", err)
			return
		}

		answer, err := deps.Answerer.Answer(r.Context(), req.Question, rec.RawText)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to answer question: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":       id,
			"question": req.Question,
			"answer":   answer,
		})
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
