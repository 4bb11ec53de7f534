package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"deskrag/internal/api"
	"deskrag/internal/config"
	"deskrag/internal/domain/errs"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response: %v", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	writeJsonResponse(w, httpCode, api.ErrorResponse{Error: message})
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidParameter):
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrSessionNotFound), errors.Is(err, errs.ErrDocumentNotFound):
		WriteErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrVectorIndexUnavailable), errors.Is(err, errs.ErrLLMUnavailable):
		WriteErrorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		WriteErrorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

func validateContext(ctx context.Context) bool {
	logRH.With(config.TRACE_ID_KEY, traceFrom(ctx))
	if ctx.Err() != nil {
		logRH.Warn("context error", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled")
		return false
	default:
		return true

	}
}

func traceFrom(ctx context.Context) string {
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		return trace
	}
	return ""
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, "temporary_data")
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}
