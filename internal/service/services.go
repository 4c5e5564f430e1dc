package service

import (
	"github.com/dom/faceoff/internal/config"
	"github.com/dom/faceoff/internal/photostore"
	"github.com/dom/faceoff/internal/repository"
	"go.uber.org/zap"
)

type Services struct {
	Auth     *AuthService
	Match    *MatchService
	Feedback *FeedbackService
}

// Dependencies are the outside collaborators the services need besides the
// repositories.
type Dependencies struct {
	Photos   photostore.Store
	Scorer   Scorer
	Notifier Notifier
	Logger   *zap.Logger
}

func NewServices(repos *repository.Repositories, deps Dependencies, cfg *config.Config) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Services{
		Auth:     NewAuthService(repos.User, repos.Session, cfg, logger.Named("auth")),
		Match:    NewMatchService(repos.Match, repos.User, deps.Photos, deps.Scorer, deps.Notifier, cfg.CompareDelay, logger.Named("match")),
		Feedback: NewFeedbackService(repos.Feedback),
	}
}
