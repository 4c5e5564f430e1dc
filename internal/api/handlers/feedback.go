package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/faceoff/internal/api/middleware"
	"github.com/dom/faceoff/internal/service"
	"go.uber.org/zap"
)

type FeedbackHandler struct {
	feedbackService *service.FeedbackService
	logger          *zap.Logger
}

func NewFeedbackHandler(feedbackService *service.FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService, logger: logger}
}

type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := middleware.GetSessionUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Feedback is required")
		return
	}

	if _, err := h.feedbackService.Submit(r.Context(), sessionUser.User.ID, req.Feedback); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "Feedback submitted successfully")
}
