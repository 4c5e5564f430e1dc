package postgres

import (
	"context"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *matchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, match *domain.Match) error {
	return r.db.WithContext(ctx).Create(match).Error
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	var match domain.Match
	if err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &match, nil
}

func (r *matchRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Match, error) {
	var matches []*domain.Match
	err := r.db.WithContext(ctx).
		Where("creator_id = ? OR invited_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *matchRepository) Respond(ctx context.Context, id uuid.UUID, status domain.MatchStatus, invitedPhoto *string) (*domain.Match, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if invitedPhoto != nil {
		updates["invited_photo"] = *invitedPhoto
	}

	var match domain.Match
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Match{}).
			Where("id = ? AND status = ?", id, domain.MatchStatusPending).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrConflict
		}
		return tx.First(&match, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &match, nil
}

func (r *matchRepository) Complete(ctx context.Context, id uuid.UUID, in repository.CompleteInput) (*domain.Match, error) {
	updates := map[string]interface{}{
		"creator_score": in.CreatorScore,
		"invited_score": in.InvitedScore,
		"winner_id":     nil,
		"score_details": datatypes.JSON(in.ScoreDetails),
		"status":        domain.MatchStatusCompleted,
		"updated_at":    time.Now(),
	}
	if in.WinnerID != nil {
		updates["winner_id"] = *in.WinnerID
	}

	var match domain.Match
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Match{}).
			Where("id = ? AND status = ?", id, domain.MatchStatusReady).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrConflict
		}

		if in.WinnerID != nil {
			err := tx.Model(&domain.User{}).
				Where("id = ?", *in.WinnerID).
				UpdateColumn("score", gorm.Expr("score + ?", 1)).Error
			if err != nil {
				return err
			}
		}

		return tx.First(&match, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &match, nil
}

func (r *matchRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Delete(&domain.Match{}, "creator_id = ? OR invited_id = ?", userID, userID)
	return result.RowsAffected, result.Error
}
