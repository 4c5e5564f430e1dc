package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/faceoff/internal/domain"
	"go.uber.org/zap"
)

type MessageResponse struct {
	Message string `json:"message"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindUnauthenticated: http.StatusUnauthorized,
	domain.KindForbidden:       http.StatusForbidden,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindInvalidRequest:  http.StatusBadRequest,
	domain.KindUpstream:        http.StatusBadRequest,
	domain.KindUnexpected:      http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeError maps a service error to its status. Unexpected errors are
// logged with their cause and reported with the generic message.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	switch kind {
	case domain.KindUnexpected:
		logger.Error("request failed", zap.Error(err))
		writeMessage(w, status, domain.ErrUnexpected.Message)
		return
	case domain.KindUpstream:
		logger.Warn("face analysis failed", zap.Error(err))
	}

	writeMessage(w, status, domain.MessageOf(err))
}
