package server

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// responseDTO is the envelope of every JSON response
type responseDTO struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// apiError carries the status code and client-safe message of a failed request
type apiError struct {
	status  int
	message string
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *apiError) Unwrap() error { return e.err }

// clientMessage hides wrapped internal errors behind the message on 5xx
func (e *apiError) clientMessage() string {
	if e.status >= http.StatusInternalServerError {
		return e.message
	}
	return e.Error()
}

func writeSuccess(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(responseDTO{Success: true, Message: message, Data: data})
}

func writeError(log *zap.Logger, w http.ResponseWriter, e *apiError) {
	if e.status >= http.StatusInternalServerError {
		log.Error(e.message, zap.Error(e.err))
	} else {
		log.Info("request rejected", zap.Int("status", e.status), zap.String("reason", e.Error()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.status)
	_ = json.NewEncoder(w).Encode(responseDTO{Success: false, Message: e.clientMessage()})
}
