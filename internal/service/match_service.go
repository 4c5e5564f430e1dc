package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/facescore"
	"github.com/dom/faceoff/internal/photostore"
	"github.com/dom/faceoff/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const LeaderboardSize = 10

// Scorer rates a single photo.
type Scorer interface {
	Analyze(ctx context.Context, image []byte) (*facescore.Analysis, error)
}

// Notifier receives every match state change after it has been stored.
type Notifier interface {
	Publish(ctx context.Context, event domain.MatchEvent, match *domain.Match)
}

type Photo struct {
	Data        []byte
	ContentType string
}

type CreateMatchInput struct {
	CreatorID       uuid.UUID
	InvitedUsername string
	Photo           *Photo
}

// RespondInput is one answer to an invitation. UploadErr holds a rejected
// photo upload; it is reported only once the responder and the match state
// have been checked.
type RespondInput struct {
	MatchID     uuid.UUID
	ResponderID uuid.UUID
	Accept      bool
	Photo       *Photo
	UploadErr   error
}

type MatchService struct {
	matchRepo    repository.MatchRepository
	userRepo     repository.UserRepository
	photos       photostore.Store
	scorer       Scorer
	notifier     Notifier
	compareDelay time.Duration
	logger       *zap.Logger
}

func NewMatchService(
	matchRepo repository.MatchRepository,
	userRepo repository.UserRepository,
	photos photostore.Store,
	scorer Scorer,
	notifier Notifier,
	compareDelay time.Duration,
	logger *zap.Logger,
) *MatchService {
	return &MatchService{
		matchRepo:    matchRepo,
		userRepo:     userRepo,
		photos:       photos,
		scorer:       scorer,
		notifier:     notifier,
		compareDelay: compareDelay,
		logger:       logger,
	}
}

func (s *MatchService) Create(ctx context.Context, input CreateMatchInput) (*domain.Match, error) {
	username := strings.TrimSpace(input.InvitedUsername)
	if username == "" {
		return nil, domain.InvalidRequest("Invited username is required")
	}
	if input.Photo == nil || len(input.Photo.Data) == 0 {
		return nil, domain.InvalidRequest("No photo uploaded")
	}

	creator, err := s.userRepo.GetByID(ctx, input.CreatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, domain.Unexpected(err)
	}

	invited, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("Invited user not found")
		}
		return nil, domain.Unexpected(err)
	}
	if invited.ID == creator.ID {
		return nil, domain.InvalidRequest("You cannot invite yourself")
	}

	ref, err := s.photos.Put(ctx, creator.Username, input.Photo.Data, input.Photo.ContentType)
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("store creator photo: %w", err))
	}

	now := time.Now()
	match := &domain.Match{
		ID:           uuid.New(),
		CreatorID:    creator.ID,
		InvitedID:    invited.ID,
		CreatorPhoto: ref,
		Status:       domain.MatchStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		s.discardPhoto(ref)
		return nil, domain.Unexpected(err)
	}

	s.logger.Info("match created",
		zap.String("match_id", match.ID.String()),
		zap.String("creator_id", creator.ID.String()),
		zap.String("invited_id", invited.ID.String()),
	)
	s.notifier.Publish(ctx, domain.MatchEventCreated, match)

	return match.ForParticipant(), nil
}

// Respond lets the invited user decline, or accept with their own photo.
// A decline ignores any photo that came with it.
func (s *MatchService) Respond(ctx context.Context, input RespondInput) (*domain.Match, error) {
	match, err := s.load(ctx, input.MatchID)
	if err != nil {
		return nil, err
	}
	if match.InvitedID != input.ResponderID {
		return nil, domain.Forbidden("Not authorized")
	}

	next := domain.MatchStatusDeclined
	if input.Accept {
		next = domain.MatchStatusReady
	}
	if !match.Status.CanTransition(next) {
		return nil, domain.InvalidRequest("Match is not pending")
	}

	var updated *domain.Match
	if !input.Accept {
		updated, err = s.matchRepo.Respond(ctx, match.ID, next, nil)
	} else {
		if input.UploadErr != nil {
			return nil, input.UploadErr
		}
		if input.Photo == nil || len(input.Photo.Data) == 0 {
			return nil, domain.InvalidRequest("No photo uploaded")
		}

		owner := input.ResponderID.String()
		if invited, lookupErr := s.userRepo.GetByID(ctx, input.ResponderID); lookupErr == nil {
			owner = invited.Username
		}

		ref, putErr := s.photos.Put(ctx, owner, input.Photo.Data, input.Photo.ContentType)
		if putErr != nil {
			return nil, domain.Unexpected(fmt.Errorf("store invited photo: %w", putErr))
		}
		updated, err = s.matchRepo.Respond(ctx, match.ID, next, &ref)
		if err != nil {
			s.discardPhoto(ref)
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.InvalidRequest("Match is not pending")
		}
		return nil, domain.Unexpected(err)
	}

	s.logger.Info("match response recorded",
		zap.String("match_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
	)
	s.notifier.Publish(ctx, domain.MatchEventUpdated, updated)

	return updated.ForParticipant(), nil
}

// Compare scores both photos one after the other and settles the match.
// Nothing is written unless both scores come back.
func (s *MatchService) Compare(ctx context.Context, matchID, requesterID uuid.UUID) (*domain.CompareResult, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.CreatorID != requesterID {
		return nil, domain.Forbidden("Not authorized")
	}
	if !match.Status.CanTransition(domain.MatchStatusCompleted) || match.InvitedPhoto == nil {
		return nil, domain.InvalidRequest("Match not ready for comparison")
	}

	creatorImage, err := s.photos.Get(ctx, match.CreatorPhoto)
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("load creator photo: %w", err))
	}
	invitedImage, err := s.photos.Get(ctx, *match.InvitedPhoto)
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("load invited photo: %w", err))
	}

	creator, err := s.scorer.Analyze(ctx, creatorImage)
	if err != nil {
		return nil, scoringError(err)
	}

	if err := sleepWithContext(ctx, s.compareDelay); err != nil {
		return nil, domain.Unexpected(err)
	}

	invited, err := s.scorer.Analyze(ctx, invitedImage)
	if err != nil {
		return nil, scoringError(err)
	}

	var winnerID *uuid.UUID
	switch {
	case creator.Score > invited.Score:
		winnerID = &match.CreatorID
	case invited.Score > creator.Score:
		winnerID = &match.InvitedID
	}

	details, err := json.Marshal(domain.ScoreDetails{
		Creator: photoScore(creator),
		Invited: photoScore(invited),
		Draw:    winnerID == nil,
	})
	if err != nil {
		return nil, domain.Unexpected(err)
	}

	completed, err := s.matchRepo.Complete(ctx, match.ID, repository.CompleteInput{
		CreatorScore: creator.Score,
		InvitedScore: invited.Score,
		WinnerID:     winnerID,
		ScoreDetails: details,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.InvalidRequest("Match not ready for comparison")
		}
		return nil, domain.Unexpected(err)
	}

	fields := []zap.Field{
		zap.String("match_id", completed.ID.String()),
		zap.Float64("creator_score", creator.Score),
		zap.Float64("invited_score", invited.Score),
	}
	if winnerID != nil {
		fields = append(fields, zap.String("winner_id", winnerID.String()))
	} else {
		fields = append(fields, zap.Bool("draw", true))
	}
	s.logger.Info("match completed", fields...)
	s.notifier.Publish(ctx, domain.MatchEventUpdated, completed)

	return &domain.CompareResult{
		CreatorScore: creator.Score,
		InvitedScore: invited.Score,
	}, nil
}

func (s *MatchService) Get(ctx context.Context, matchID, requesterID uuid.UUID) (*domain.Match, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsParticipant(requesterID) {
		return nil, domain.Forbidden("Not authorized")
	}
	return match.ForParticipant(), nil
}

// List returns every match the user created or was invited to, newest
// first. Declined matches are included.
func (s *MatchService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Match, error) {
	matches, err := s.matchRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Unexpected(err)
	}

	views := make([]*domain.Match, 0, len(matches))
	for _, m := range matches {
		views = append(views, m.ForParticipant())
	}
	return views, nil
}

func (s *MatchService) Leaderboard(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.Top(ctx, LeaderboardSize)
	if err != nil {
		return nil, domain.Unexpected(err)
	}
	return users, nil
}

func (s *MatchService) load(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("Match not found")
		}
		return nil, domain.Unexpected(err)
	}
	return match, nil
}

// discardPhoto removes a stored photo whose match row was never written.
// It runs detached from the request so a cancelled request still cleans up.
func (s *MatchService) discardPhoto(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.photos.Delete(ctx, ref); err != nil {
		s.logger.Warn("failed to discard orphaned photo", zap.Error(err))
	}
}

func scoringError(err error) error {
	var upstream *facescore.UpstreamError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Unexpected(err)
	case errors.Is(err, facescore.ErrNoFaceDetected):
		return domain.Upstream(err.Error(), err)
	case errors.As(err, &upstream):
		return domain.Upstream(upstream.Error(), err)
	default:
		return domain.Upstream("Face analysis service unavailable", err)
	}
}

func photoScore(a *facescore.Analysis) domain.PhotoScore {
	return domain.PhotoScore{Score: a.Score, MaleScore: a.MaleScore, FemaleScore: a.FemaleScore}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
