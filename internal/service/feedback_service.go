package service

import (
	"context"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/repository"
	"github.com/dom/faceoff/internal/security"
	"github.com/google/uuid"
)

const maxFeedbackLength = 2000

type FeedbackService struct {
	feedbackRepo repository.FeedbackRepository
}

func NewFeedbackService(feedbackRepo repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{feedbackRepo: feedbackRepo}
}

// Submit stores the text with all markup removed.
func (s *FeedbackService) Submit(ctx context.Context, userID uuid.UUID, text string) (*domain.Feedback, error) {
	clean := security.SanitizeString(security.SanitizeHTML(text), maxFeedbackLength)
	if clean == "" {
		return nil, domain.InvalidRequest("Feedback is required")
	}

	feedback := &domain.Feedback{
		ID:        uuid.New(),
		UserID:    userID,
		Feedback:  clean,
		CreatedAt: time.Now(),
	}
	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, domain.Unexpected(err)
	}
	return feedback, nil
}

func (s *FeedbackService) Since(ctx context.Context, since time.Time) ([]*domain.Feedback, error) {
	return s.feedbackRepo.List(ctx, since)
}
