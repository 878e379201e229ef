package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/snapstudio/snapstudio/internal/apperr"
	"github.com/snapstudio/snapstudio/internal/metrics"
	"github.com/snapstudio/snapstudio/internal/models"
)

// Classifier assigns categories to a batch of thumbnails
type Classifier interface {
	Classify(ctx context.Context, thumbnails []string) ([]models.Category, error)
}

// ToolRunner runs one image tool request
type ToolRunner interface {
	Run(ctx context.Context, req models.ImageToolRequest) (*models.ImageToolResult, error)
}

type Handler struct {
	classifier   Classifier
	tools        ToolRunner
	metrics      *metrics.Collector
	maxBodyBytes int64
}

func New(classifier Classifier, tools ToolRunner, m *metrics.Collector, maxBodyBytes int64) *Handler {
	return &Handler{
		classifier:   classifier,
		tools:        tools,
		metrics:      m,
		maxBodyBytes: maxBodyBytes,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

// decodeJSON reads one JSON object from the capped request body
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := io.Reader(r.Body)
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			return apperr.Newf(apperr.KindInvalidInput, "request body exceeds %d bytes", maxErr.Limit)
		case errors.As(err, &typeErr):
			return apperr.Newf(apperr.KindInvalidInput, "invalid type for field %q", typeErr.Field)
		case errors.Is(err, io.EOF):
			return apperr.New(apperr.KindInvalidInput, "request body is empty")
		default:
			return apperr.Wrap(apperr.KindInvalidInput, "invalid JSON body", err)
		}
	}
	return nil
}

func logFailure(r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	attrs := []any{
		"path", r.URL.Path,
		"kind", apperr.KindOf(err).String(),
		"status", status,
		"request_id", RequestIDFromContext(r.Context()),
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", attrs...)
		return
	}
	slog.Warn("Request failed", attrs...)
}

func methodNotAllowed(method string) error {
	return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("method %s not allowed", method))
}
