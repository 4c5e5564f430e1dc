package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matches no row
	// because the row is no longer in the expected state.
	ErrConflict = errors.New("record state changed")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Top(ctx context.Context, limit int) ([]*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteAccount removes the user, their sessions and every match they
	// took part in as one unit, returning the number of matches removed.
	DeleteAccount(ctx context.Context, id uuid.UUID) (int64, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CompleteInput carries everything written when a ready match is scored.
// WinnerID is nil on a draw.
type CompleteInput struct {
	CreatorScore float64
	InvitedScore float64
	WinnerID     *uuid.UUID
	ScoreDetails []byte
}

type MatchRepository interface {
	Create(ctx context.Context, match *domain.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Match, error)
	// Respond moves a pending match to declined or ready. It returns
	// ErrConflict if the match is no longer pending.
	Respond(ctx context.Context, id uuid.UUID, status domain.MatchStatus, invitedPhoto *string) (*domain.Match, error)
	// Complete records both scores, marks the match completed and credits
	// the winner in one transaction. It returns ErrConflict if the match is
	// no longer ready.
	Complete(ctx context.Context, id uuid.UUID, in CompleteInput) (*domain.Match, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	List(ctx context.Context, since time.Time) ([]*domain.Feedback, error)
}

type Repositories struct {
	User     UserRepository
	Session  SessionRepository
	Match    MatchRepository
	Feedback FeedbackRepository
}
