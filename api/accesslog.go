package api

import (
	"log/slog"
	"net/http"
)

// statusRecorder keeps what the access log needs from a response. Only the
// first WriteHeader counts, matching what reaches the client.
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	responseSize int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	if !sr.wroteHeader {
		sr.statusCode = statusCode
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(data []byte) (int, error) {
	sr.wroteHeader = true
	size, err := sr.ResponseWriter.Write(data)
	sr.responseSize += size
	return size, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) level() slog.Level {
	if sr.statusCode >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelInfo
}
